package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/psa231093/fbrelay/internal/config"
	"github.com/psa231093/fbrelay/internal/domain"
)

const probeTimeout = 60 * time.Second

// YTDLP implements Extractor by shelling out to yt-dlp.
type YTDLP struct {
	binPath     string
	cfg         config.ExtractorConfig
	downloadDir string
	logger      *slog.Logger
}

// NewYTDLP creates a yt-dlp backed extractor. The binary is resolved from
// PATH (or used as-is when the configured path is absolute).
func NewYTDLP(cfg config.ExtractorConfig, storage config.StorageConfig, logger *slog.Logger) (*YTDLP, error) {
	binPath, err := exec.LookPath(cfg.BinPath)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found (%s): %w", cfg.BinPath, err)
	}

	return &YTDLP{
		binPath:     binPath,
		cfg:         cfg,
		downloadDir: storage.DownloadDir,
		logger:      logger,
	}, nil
}

// infoJSON is the subset of yt-dlp's metadata dump we care about.
type infoJSON struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Duration       float64 `json:"duration"`
	Thumbnail      string  `json:"thumbnail"`
	Uploader       string  `json:"uploader"`
	WebpageURL     string  `json:"webpage_url"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
}

// Probe resolves metadata without downloading (yt-dlp --dump-json).
func (y *YTDLP) Probe(ctx context.Context, url, cookiesFile string) (*domain.VideoInfo, error) {
	if url == "" {
		return nil, domain.ErrInvalidURL
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := y.probeArgs(url, cookiesFile)
	cmd := exec.CommandContext(ctx, y.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDownload, lastLines(stderr.String(), 3))
	}

	var info infoJSON
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	size := info.Filesize
	if size == 0 {
		size = info.FilesizeApprox
	}

	return &domain.VideoInfo{
		ID:           info.ID,
		Title:        info.Title,
		Description:  info.Description,
		DurationSecs: int(info.Duration),
		Thumbnail:    info.Thumbnail,
		Uploader:     info.Uploader,
		WebpageURL:   info.WebpageURL,
		SizeApprox:   size,
	}, nil
}

// Extract downloads the media file behind the URL.
func (y *YTDLP) Extract(ctx context.Context, req Request) (*domain.DownloadedFile, error) {
	info, err := y.Probe(ctx, req.URL, req.CookiesFile)
	if err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, fmt.Errorf("%w: extractor returned no video id", domain.ErrDownload)
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = y.downloadDir
	}

	if y.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.cfg.Timeout)
		defer cancel()
	}

	args := y.downloadArgs(req, outputDir)
	y.logger.Info("running extractor", "url", req.URL, "output_dir", outputDir)

	cmd := exec.CommandContext(ctx, y.binPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	// yt-dlp occasionally exits nonzero after producing the file (post-
	// processing warnings). Success is judged by the output existing.
	path, found := locateOutput(outputDir, info.ID)
	if !found {
		if runErr == nil {
			return nil, fmt.Errorf("%w: no output file produced", domain.ErrDownload)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrDownload, lastLines(stderr.String(), 3))
	}
	if runErr != nil {
		y.logger.Warn("extractor exited nonzero but produced output",
			"url", req.URL,
			"error", runErr,
		)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat output: %v", domain.ErrDownload, err)
	}
	if stat.Size() == 0 {
		return nil, fmt.Errorf("%w: output file is empty", domain.ErrDownload)
	}

	return &domain.DownloadedFile{
		Path:          path,
		Filename:      filepath.Base(path),
		SizeBytes:     stat.Size(),
		Title:         info.Title,
		DurationSecs:  info.DurationSecs,
		ThumbnailPath: locateThumbnail(outputDir, info.ID),
		SourceURL:     req.URL,
		DownloadedAt:  time.Now(),
	}, nil
}

func (y *YTDLP) probeArgs(url, cookiesFile string) []string {
	args := []string{
		"--dump-json",
		"--skip-download",
		"--no-playlist",
	}
	if cookiesFile == "" {
		cookiesFile = y.cfg.CookiesFile
	}
	if cookiesFile != "" {
		args = append(args, "--cookies", cookiesFile)
	}
	return append(args, url)
}

func (y *YTDLP) downloadArgs(req Request, outputDir string) []string {
	args := []string{
		"--output", filepath.Join(outputDir, "%(id)s.%(ext)s"),
		"--format", fmt.Sprintf("%s[ext=%s]/%s", y.cfg.Quality, y.cfg.Format, y.cfg.Quality),
		"--no-playlist",
		"--no-progress",
	}

	cookiesFile := req.CookiesFile
	if cookiesFile == "" {
		cookiesFile = y.cfg.CookiesFile
	}
	if cookiesFile != "" {
		args = append(args, "--cookies", cookiesFile)
	}
	if y.cfg.WriteInfo {
		args = append(args, "--write-info-json")
	}
	if y.cfg.Thumbnail {
		args = append(args, "--write-thumbnail")
	}
	if y.cfg.RateLimit != "" {
		args = append(args, "--limit-rate", y.cfg.RateLimit)
	}
	if y.cfg.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(y.cfg.Retries))
	}

	return append(args, req.URL)
}

// locateOutput finds the media file yt-dlp produced for a video id,
// ignoring sidecars and partial downloads.
func locateOutput(dir, id string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, id+".*"))
	if err != nil {
		return "", false
	}

	for _, m := range matches {
		switch strings.ToLower(filepath.Ext(m)) {
		case ".json", ".part", ".ytdl", ".jpg", ".jpeg", ".png", ".webp":
			continue
		}
		return m, true
	}
	return "", false
}

func locateThumbnail(dir, id string) string {
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
		p := filepath.Join(dir, id+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// lastLines returns the trailing n non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, strings.TrimSpace(l))
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	if len(kept) == 0 {
		return "extractor failed with no output"
	}
	return strings.Join(kept, "; ")
}
