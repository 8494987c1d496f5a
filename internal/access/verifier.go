package access

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/internal/accesslog"
	"github.com/frahmantamala/site-access/internal/core/events"
	"github.com/frahmantamala/site-access/internal/employee"
	"github.com/frahmantamala/site-access/pkg/logger"
)

type EmployeeStore interface {
	GetByID(ctx context.Context, id int64) (*employee.Employee, error)
	FindByRfid(ctx context.Context, rfidTag string) (*employee.Employee, error)
	RecordAccess(ctx context.Context, id int64, at time.Time) error
}

type LogAppender interface {
	Append(ctx context.Context, entry *accesslog.Entry) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
	PublishSync(ctx context.Context, event events.Event) error
}

// Verifier decides reader requests. Decisions for one employee are
// serialized so every grant yields exactly one last-access update and one
// log entry, in the order the grants were decided.
type Verifier struct {
	employees EmployeeStore
	logs      LogAppender
	bus       EventPublisher
	locks     *KeyedMutex
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewVerifier(employees EmployeeStore, logs LogAppender, bus EventPublisher, logger *slog.Logger, timeout time.Duration) *Verifier {
	return &Verifier{
		employees: employees,
		logs:      logs,
		bus:       bus,
		locks:     NewKeyedMutex(),
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (v *Verifier) log(ctx context.Context) *slog.Logger {
	return logger.FromOr(ctx, v.logger)
}

// Verify authenticates an RFID tag plus fingerprint pair. Denials are
// results, not errors. An error means storage failed before a decision
// could be reached or persisted, or the caller went away first
// (context.Canceled, returned unwrapped).
func (v *Verifier) Verify(ctx context.Context, rfidTag, fingerprint string) (*Result, error) {
	rfidTag = strings.TrimSpace(rfidTag)
	fingerprint = strings.TrimSpace(fingerprint)
	if rfidTag == "" || fingerprint == "" {
		return nil, internal.NewValidationError("rfid_tag and fingerprint are required", internal.ErrCodeMissingCredentials)
	}

	lookupCtx, cancel := internal.WithTimeout(ctx, v.timeout)
	defer cancel()

	emp, err := v.employees.FindByRfid(lookupCtx, rfidTag)
	if err != nil {
		return v.lookupFailed(ctx, rfidTag, 0, err)
	}

	employeeID := emp.ID
	unlock, err := v.locks.Lock(lookupCtx, employeeID)
	if err != nil {
		return v.lookupFailed(ctx, rfidTag, employeeID, err)
	}
	defer unlock()

	// Re-read under the lock; the record may have changed while waiting.
	emp, err = v.employees.GetByID(lookupCtx, employeeID)
	if err != nil {
		return v.lookupFailed(ctx, rfidTag, employeeID, err)
	}
	if emp.RfidTag != rfidTag {
		return v.deny(ctx, rfidTag, emp.ID, ReasonRfidNotFound), nil
	}

	slot, ok := emp.MatchFingerprint(fingerprint)
	if !ok {
		return v.deny(ctx, rfidTag, emp.ID, ReasonFingerprintMismatch), nil
	}

	return v.grant(ctx, emp, rfidTag, fingerprint, slot)
}

// grant persists an accepted decision. The writes run detached from the
// caller so a disconnect cannot leave last-access updated without its log.
func (v *Verifier) grant(ctx context.Context, emp *employee.Employee, rfidTag, fingerprint string, slot int) (*Result, error) {
	writeCtx, cancel := internal.Detached(ctx, v.timeout)
	defer cancel()

	at := v.now().UTC()
	if err := v.employees.RecordAccess(writeCtx, emp.ID, at); err != nil {
		if internal.IsTimeout(err) {
			return v.deny(ctx, rfidTag, emp.ID, ReasonTimeout), nil
		}
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return v.deny(ctx, rfidTag, emp.ID, ReasonRfidNotFound), nil
		}
		v.log(ctx).Error("failed to record access", "employee_id", emp.ID, "error", err)
		return nil, internal.NewStorageError("failed to record access", err)
	}

	result := &Result{
		Granted:       true,
		Employee:      grantFor(emp),
		EmployeeID:    emp.ID,
		MatchedSlot:   slot,
		AuditRecorded: true,
	}

	entry := &accesslog.Entry{
		EmployeeID:         emp.ID,
		MatchedFingerprint: fingerprint,
		MatchedSlot:        slot,
		RfidTag:            rfidTag,
		Branch:             emp.Branch,
		AccessedAt:         at,
	}
	if err := v.logs.Append(writeCtx, entry); err != nil {
		result.AuditRecorded = false
		v.log(ctx).Error("access granted but log entry not written",
			"employee_id", emp.ID,
			"branch", emp.Branch,
			"error", err)
		v.reportAuditFailure(ctx, emp, err, at)
	}

	_ = v.bus.Publish(ctx, events.NewAccessGrantedEvent(emp.ID, emp.Branch, slot, at))
	v.log(ctx).Info("access granted", "employee_id", emp.ID, "branch", emp.Branch, "slot", slot)
	return result, nil
}

// reportAuditFailure gets its own deadline: the write context is usually
// spent by the time Append gives up.
func (v *Verifier) reportAuditFailure(ctx context.Context, emp *employee.Employee, cause error, at time.Time) {
	reportCtx, cancel := internal.Detached(ctx, v.timeout)
	defer cancel()

	if err := v.bus.PublishSync(reportCtx, events.NewAuditWriteFailedEvent(emp.ID, emp.Branch, cause, at)); err != nil {
		v.log(ctx).Error("failed to report audit write failure", "employee_id", emp.ID, "error", err)
	}
}

func (v *Verifier) lookupFailed(ctx context.Context, rfidTag string, employeeID int64, err error) (*Result, error) {
	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return v.deny(ctx, rfidTag, employeeID, ReasonRfidNotFound), nil
	case internal.IsTimeout(err):
		return v.deny(ctx, rfidTag, employeeID, ReasonTimeout), nil
	case errors.Is(err, context.Canceled):
		v.log(ctx).Debug("verification abandoned by caller", "employee_id", employeeID)
		return nil, err
	}
	v.log(ctx).Error("employee lookup failed", "error", err)
	return nil, internal.NewStorageError("failed to look up employee", err)
}

func (v *Verifier) deny(ctx context.Context, rfidTag string, employeeID int64, reason DenialReason) *Result {
	v.log(ctx).Info("access denied", "employee_id", employeeID, "reason", reason)
	_ = v.bus.Publish(ctx, events.NewAccessDeniedEvent(rfidTag, employeeID, string(reason), v.now().UTC()))
	return denied(reason)
}

// CheckRfid tells a reader whether the card is known and has a fingerprint
// enrolled. It changes nothing.
func (v *Verifier) CheckRfid(ctx context.Context, rfidTag string) (*Probe, error) {
	rfidTag = strings.TrimSpace(rfidTag)
	if rfidTag == "" {
		return nil, internal.NewValidationError("rfid_tag is required", internal.ErrCodeMissingCredentials)
	}

	ctx, cancel := internal.WithTimeout(ctx, v.timeout)
	defer cancel()

	emp, err := v.employees.FindByRfid(ctx, rfidTag)
	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return &Probe{Reason: ReasonRfidNotFound}, nil
	case internal.IsTimeout(err):
		return &Probe{Reason: ReasonTimeout}, nil
	case errors.Is(err, context.Canceled):
		return nil, err
	case err != nil:
		v.log(ctx).Error("rfid probe failed", "error", err)
		return nil, internal.NewStorageError("failed to look up employee", err)
	}

	if !emp.HasFingerprint() {
		return &Probe{Reason: ReasonNoFingerprint, Employee: grantFor(emp)}, nil
	}
	return &Probe{Ready: true, Employee: grantFor(emp)}, nil
}
