package errorlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/internal/core/events"
)

const (
	SourceAccessVerifier = "access_verifier"

	defaultListLimit = 100
	maxListLimit     = 1000
)

type Service struct {
	repo    Repository
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewService(repo Repository, logger *slog.Logger, timeout time.Duration) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *Service) Record(ctx context.Context, source, message string, details map[string]interface{}) error {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry := &Entry{
		Source:    source,
		Message:   message,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to persist error log", "source", source, "message", message, "error", err)
		return fmt.Errorf("record error log: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, internal.NewStorageError("failed to list error logs", err)
	}
	return entries, nil
}

func (s *Service) Clear(ctx context.Context) (int64, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, internal.NewStorageError("failed to clear error logs", err)
	}
	s.logger.Info("error logs cleared", "deleted", n)
	return n, nil
}

// PruneOlderThan deletes entries created before cutoff.
func (s *Service) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, internal.NewStorageError("failed to prune error logs", err)
	}
	return n, nil
}

// Subscribe routes audit write failures reported by the verifier into the
// error log.
func (s *Service) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeAuditWriteFailed, s.handleAuditWriteFailed)
}

func (s *Service) handleAuditWriteFailed(ctx context.Context, event events.Event) error {
	details := map[string]interface{}{}
	if data, ok := event.Payload().(map[string]interface{}); ok {
		for k, v := range data {
			details[k] = v
		}
	}
	details["event_id"] = event.EventID()
	details["occurred_at"] = event.OccurredAt().UTC().Format(time.RFC3339Nano)

	return s.Record(ctx, SourceAccessVerifier, "access granted without audit log entry", details)
}
