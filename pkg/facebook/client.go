// Package facebook implements the Graph API chunked video upload protocol:
// session init (upload_phase=start), resumable chunk transfer
// (upload_phase=transfer) and publish (upload_phase=finish).
package facebook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/psa231093/fbrelay/internal/config"
	"github.com/psa231093/fbrelay/internal/domain"
)

// Client calls the Graph API video endpoints for one target profile/page.
type Client struct {
	httpClient  *http.Client
	accessToken string
	targetID    string
	baseURL     string
}

// NewClient creates a Graph API client from configuration.
func NewClient(cfg config.FacebookConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		accessToken: cfg.AccessToken,
		targetID:    cfg.TargetID,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.GraphVersion,
	}
}

// Session is the server-side handle for an in-progress chunked upload.
type Session struct {
	UploadSessionID string
	VideoID         string
	StartOffset     int64
	EndOffset       int64
}

// Account identifies the profile/page behind an access token.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// flexInt64 decodes Graph API offsets, which arrive as JSON strings
// ("5242880") on current API versions and as numbers on older ones.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse offset %q: %w", s, err)
	}
	*f = flexInt64(v)
	return nil
}

// InitSession starts an upload session, declaring the total byte size up
// front. Auth and quota rejections are fatal and never retried.
func (c *Client) InitSession(ctx context.Context, fileSize int64) (*Session, error) {
	form := url.Values{
		"upload_phase": {"start"},
		"file_size":    {strconv.FormatInt(fileSize, 10)},
		"access_token": {c.accessToken},
	}

	var resp struct {
		UploadSessionID string    `json:"upload_session_id"`
		VideoID         string    `json:"video_id"`
		StartOffset     flexInt64 `json:"start_offset"`
		EndOffset       flexInt64 `json:"end_offset"`
	}
	if err := c.postForm(ctx, c.videosURL(), form, &resp); err != nil {
		return nil, err
	}

	if resp.UploadSessionID == "" {
		return nil, fmt.Errorf("init response missing upload_session_id")
	}

	return &Session{
		UploadSessionID: resp.UploadSessionID,
		VideoID:         resp.VideoID,
		StartOffset:     int64(resp.StartOffset),
		EndOffset:       int64(resp.EndOffset),
	}, nil
}

// TransferChunk sends one chunk starting at startOffset and returns the next
// offset the server expects. Resuming at the returned offset after a failure
// continues the upload without restarting from byte 0.
func (c *Client) TransferChunk(ctx context.Context, sessionID string, startOffset int64, chunk io.Reader, filename string) (int64, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"upload_phase":      "transfer",
		"upload_session_id": sessionID,
		"start_offset":      strconv.FormatInt(startOffset, 10),
		"access_token":      c.accessToken,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return 0, fmt.Errorf("write form field: %w", err)
		}
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video_file_chunk"; filename=%q`, filename))
	hdr.Set("Content-Type", "video/mp4")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return 0, fmt.Errorf("create chunk part: %w", err)
	}
	if _, err := io.Copy(part, chunk); err != nil {
		return 0, fmt.Errorf("%w: read chunk: %v", domain.ErrTransfer, err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.videosURL(), &body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		StartOffset flexInt64 `json:"start_offset"`
		EndOffset   flexInt64 `json:"end_offset"`
	}
	if err := c.do(req, &resp); err != nil {
		return 0, transferClass(err)
	}

	return int64(resp.StartOffset), nil
}

// Publish finishes the session, attaching title and description when present.
// The session is terminal afterwards and must not be reused.
func (c *Client) Publish(ctx context.Context, sessionID, title, description string) error {
	form := url.Values{
		"upload_phase":      {"finish"},
		"upload_session_id": {sessionID},
		"access_token":      {c.accessToken},
	}
	if title != "" {
		form.Set("title", title)
	}
	if description != "" {
		form.Set("description", description)
	}

	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.postForm(ctx, c.videosURL(), form, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("publish rejected by server")
	}
	return nil
}

// TestConnection verifies the configured token against /me.
func (c *Client) TestConnection(ctx context.Context) (*Account, error) {
	u := fmt.Sprintf("%s/me?%s", c.baseURL, url.Values{
		"fields":       {"id,name"},
		"access_token": {c.accessToken},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var account Account
	if err := c.do(req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// PermalinkURL builds the public video URL for a published video id.
func (c *Client) PermalinkURL(videoID string) string {
	return fmt.Sprintf("https://www.facebook.com/%s/videos/%s", c.targetID, videoID)
}

func (c *Client) videosURL() string {
	return fmt.Sprintf("%s/%s/videos", c.baseURL, c.targetID)
}

func (c *Client) postForm(ctx context.Context, u string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransfer, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrTransfer, err)
	}

	if resp.StatusCode != http.StatusOK {
		return classifyAPIError(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// APIError is a structured Graph API error response.
type APIError struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
	Subcode    int    `json:"error_subcode"`
	TraceID    string `json:"fbtrace_id"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error (http %d, code %d): %s", e.HTTPStatus, e.Code, e.Message)
}

// Graph API error codes. 190/102 are OAuth failures; 4, 17, 32 and 613 are
// the documented application/user/page rate limit codes.
const (
	codeOAuthInvalid = 190
	codeSessionAuth  = 102
	codeAppLimit     = 4
	codeUserLimit    = 17
	codePageLimit    = 32
	codeCustomLimit  = 613
)

func classifyAPIError(status int, body []byte) error {
	var wrapper struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error.Code == 0 && wrapper.Error.Message == "" {
		if status >= 500 {
			return fmt.Errorf("%w: server error (http %d)", domain.ErrTransfer, status)
		}
		return fmt.Errorf("graph api error (http %d): %s", status, strings.TrimSpace(string(body)))
	}

	apiErr := wrapper.Error
	apiErr.HTTPStatus = status

	switch {
	case apiErr.Code == codeOAuthInvalid || apiErr.Code == codeSessionAuth || apiErr.Type == "OAuthException":
		return fmt.Errorf("%w: %s", domain.ErrAuth, apiErr.Message)
	case apiErr.Code == codeAppLimit || apiErr.Code == codeUserLimit || apiErr.Code == codePageLimit || apiErr.Code == codeCustomLimit:
		return fmt.Errorf("%w: %s", domain.ErrQuota, apiErr.Message)
	case status >= 500:
		return fmt.Errorf("%w: %s", domain.ErrTransfer, apiErr.Message)
	default:
		return &apiErr
	}
}

// transferClass widens unclassified transfer failures to ErrTransfer so the
// chunk loop retries them, while keeping auth/quota fatal.
func transferClass(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrAuth) || errors.Is(err, domain.ErrQuota) || errors.Is(err, domain.ErrTransfer) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrTransfer, err)
}
