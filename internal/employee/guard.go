package employee

import (
	"context"
	"errors"
)

// Guard decides whether a candidate record's credentials collide with any
// other employee. It only reads; the storage constraints catch what races
// past it.
type Guard struct {
	repo Repository
}

func NewGuard(repo Repository) *Guard {
	return &Guard{repo: repo}
}

// CheckUnique returns a conflict AppError when any non-empty fingerprint of
// candidate is held by another employee of the same branch, or when its RFID
// tag is assigned to anyone else. excludeID is the record being updated.
func (g *Guard) CheckUnique(ctx context.Context, candidate *Employee, excludeID *int64) error {
	if tokens := candidate.FingerprintTokens(); len(tokens) > 0 {
		holders, err := g.repo.FindFingerprintHolders(ctx, candidate.Branch, tokens, excludeID)
		if err != nil {
			return err
		}
		if len(holders) > 0 {
			return NewFingerprintConflictError(holders[0].Fullname, candidate.Branch)
		}
	}

	if candidate.RfidTag != "" {
		holder, err := g.repo.FindByRfid(ctx, candidate.RfidTag)
		switch {
		case errors.Is(err, ErrEmployeeNotFound):
		case err != nil:
			return err
		case excludeID == nil || holder.ID != *excludeID:
			return NewRfidConflictError(holder.Fullname, holder.Branch)
		}
	}

	return nil
}
