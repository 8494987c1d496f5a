package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/pkg/logger"
)

type Repository interface {
	Create(ctx context.Context, e *Employee) error
	GetByID(ctx context.Context, id int64) (*Employee, error)
	FindByRfid(ctx context.Context, rfidTag string) (*Employee, error)
	FindFingerprintHolders(ctx context.Context, branch string, tokens []string, excludeID *int64) ([]*Employee, error)
	List(ctx context.Context, filter ListFilter) ([]*Employee, error)
	Update(ctx context.Context, e *Employee) error
	RecordAccess(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// AccessLogCleaner removes an employee's access history ahead of the
// employee record itself.
type AccessLogCleaner interface {
	DeleteAllForEmployee(ctx context.Context, employeeID int64) (int64, error)
}

type ListFilter struct {
	Branch string
	Limit  int
	Offset int
}

type Options struct {
	DefaultProfileImage string
	StorageTimeout      time.Duration
}

type Service struct {
	repo    Repository
	guard   *Guard
	logs    AccessLogCleaner
	logger  *slog.Logger
	opts    Options
	nowFunc func() time.Time
}

func NewService(repo Repository, guard *Guard, logs AccessLogCleaner, logger *slog.Logger, opts Options) *Service {
	if opts.DefaultProfileImage == "" {
		opts.DefaultProfileImage = internal.DefaultProfileImage
	}
	if guard == nil {
		guard = NewGuard(repo)
	}
	return &Service{
		repo:    repo,
		guard:   guard,
		logs:    logs,
		logger:  logger,
		opts:    opts,
		nowFunc: time.Now,
	}
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromOr(ctx, s.logger)
}

func (s *Service) Create(ctx context.Context, dto CreateEmployeeDTO) (*Employee, error) {
	emp := dto.ToEmployee(s.opts.DefaultProfileImage)
	if appErr := ValidateEmployee(emp); appErr != nil {
		return nil, appErr
	}

	ctx, cancel := internal.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	if err := s.guard.CheckUnique(ctx, emp, nil); err != nil {
		return nil, s.mapError(ctx, "create", err)
	}

	emp.RegisteredAt = s.nowFunc().UTC()
	if err := s.repo.Create(ctx, emp); err != nil {
		return nil, s.resolveWriteError(ctx, "create", emp, nil, err)
	}

	s.log(ctx).Info("employee created",
		"employee_id", emp.ID,
		"branch", emp.Branch,
		"fingerprints", len(emp.FingerprintTokens()))
	return emp, nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateEmployeeDTO) (*Employee, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(ctx, "load", err)
	}

	dto.ApplyTo(current)
	if appErr := ValidateEmployee(current); appErr != nil {
		return nil, appErr
	}

	if err := s.guard.CheckUnique(ctx, current, &id); err != nil {
		return nil, s.mapError(ctx, "update", err)
	}

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, s.resolveWriteError(ctx, "update", current, &id, err)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(ctx, "reload", err)
	}

	s.log(ctx).Info("employee updated", "employee_id", id, "branch", updated.Branch)
	return updated, nil
}

// Delete removes the employee's access logs first, then the employee. If the
// second step fails the logs stay deleted and a storage error is returned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, cancel := internal.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return s.mapError(ctx, "load", err)
	}

	removed, err := s.logs.DeleteAllForEmployee(ctx, id)
	if err != nil {
		s.log(ctx).Error("failed to delete access logs", "employee_id", id, "error", err)
		return internal.NewStorageError("failed to delete access logs", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapError(ctx, "delete", err)
	}

	s.log(ctx).Info("employee deleted", "employee_id", id, "access_logs_removed", removed)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Employee, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	emp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(ctx, "load", err)
	}
	return emp, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Employee, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	ctx, cancel := internal.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	employees, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, s.mapError(ctx, "list", err)
	}
	return employees, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	ctx, cancel := internal.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.mapError(ctx, "count", err)
	}
	return n, nil
}

// resolveWriteError turns a unique-constraint rejection into the same
// conflict the guard would have produced, naming the holder when it can
// still be found.
func (s *Service) resolveWriteError(ctx context.Context, op string, candidate *Employee, excludeID *int64, err error) error {
	if !errors.Is(err, ErrFingerprintTaken) && !errors.Is(err, ErrRfidTaken) {
		return s.mapError(ctx, op, err)
	}

	s.log(ctx).Warn("storage constraint rejected write", "operation", op, "branch", candidate.Branch, "error", err)

	if guardErr := s.guard.CheckUnique(ctx, candidate, excludeID); guardErr != nil {
		if appErr, ok := internal.IsAppError(guardErr); ok && appErr.Type == internal.ErrorTypeConflict {
			return appErr
		}
	}

	if errors.Is(err, ErrRfidTaken) {
		return NewRfidConflictError("", "")
	}
	return NewFingerprintConflictError("", candidate.Branch)
}

func (s *Service) mapError(ctx context.Context, op string, err error) error {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, ErrEmployeeNotFound) {
		return internal.NewEmployeeNotFoundError()
	}

	s.log(ctx).Error("employee storage failure", "operation", op, "error", err)
	return internal.NewStorageError(fmt.Sprintf("failed to %s employee", op), err)
}
