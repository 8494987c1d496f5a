package accesslog

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/site-access/internal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Service struct {
	repo    Repository
	logger  *slog.Logger
	timeout time.Duration
}

func NewService(repo Repository, logger *slog.Logger, timeout time.Duration) *Service {
	return &Service{repo: repo, logger: logger, timeout: timeout}
}

func (s *Service) History(ctx context.Context, employeeID int64, limit int) (*HistoryResponse, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	ctx, cancel := internal.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		total   int64
		entries []*Entry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.repo.CountForEmployee(gctx, employeeID)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.repo.ListForEmployee(gctx, employeeID, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load access history", "employee_id", employeeID, "error", err)
		return nil, internal.NewStorageError("failed to load access history", err)
	}

	resp := &HistoryResponse{
		EmployeeID: employeeID,
		Total:      total,
		Entries:    make([]EntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, e.ToResponse())
	}
	return resp, nil
}
