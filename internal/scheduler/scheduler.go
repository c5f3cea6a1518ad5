// Package scheduler publishes posts from the schedule table when their time
// arrives.
package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/psa231093/fbrelay/internal/domain"
	"github.com/psa231093/fbrelay/internal/repository"
)

// Publisher relays a local file to Facebook. *service.RelayService satisfies
// it through UploadFile.
type Publisher interface {
	UploadFile(ctx context.Context, path, title, description string) (*domain.UploadResult, error)
}

// Scheduler polls for due posts and publishes them one at a time.
type Scheduler struct {
	repo      repository.ScheduleRepository
	publisher Publisher
	interval  time.Duration
	logger    *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler polling at the given interval.
func New(repo repository.ScheduleRepository, publisher Publisher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the polling loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.run()
}

// Stop stops the polling loop and waits for an in-flight publish to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.ctx, time.Now())
		}
	}
}

// Tick publishes every post due at the given time. A post that fails is
// marked failed and does not stop the rest.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	due, err := s.repo.Due(ctx, now)
	if err != nil {
		s.logger.Error("failed to query due posts", "error", err)
		return
	}

	for _, post := range due {
		if ctx.Err() != nil {
			return
		}
		s.publish(ctx, post)
	}
}

func (s *Scheduler) publish(ctx context.Context, post *domain.ScheduledPost) {
	logger := s.logger.With("post_id", post.ID, "path", post.FilePath)
	logger.Info("publishing scheduled post", "scheduled_at", post.ScheduledAt)

	// Claim the post so a slow upload is not picked up again next tick.
	post.Status = domain.PostProcessing
	if err := s.repo.Update(ctx, post); err != nil {
		logger.Error("failed to claim post", "error", err)
		return
	}

	if _, err := os.Stat(post.FilePath); err != nil {
		s.finish(ctx, post, nil, domain.ErrFileNotFound)
		return
	}

	result, err := s.publisher.UploadFile(ctx, post.FilePath, post.Title, post.Description)
	s.finish(ctx, post, result, err)
}

func (s *Scheduler) finish(ctx context.Context, post *domain.ScheduledPost, result *domain.UploadResult, err error) {
	if err != nil {
		post.Status = domain.PostFailed
		post.Error = err.Error()
		s.logger.Error("scheduled post failed", "post_id", post.ID, "error", err)
	} else {
		post.Status = domain.PostPublished
		post.Error = ""
		if result != nil {
			post.VideoID = result.VideoID
			post.PermalinkURL = result.PermalinkURL
		}
		s.logger.Info("scheduled post published",
			"post_id", post.ID,
			"video_id", post.VideoID,
		)
	}

	if updateErr := s.repo.Update(ctx, post); updateErr != nil {
		s.logger.Error("failed to persist post outcome", "post_id", post.ID, "error", updateErr)
	}
}
