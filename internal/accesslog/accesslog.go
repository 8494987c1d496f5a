package accesslog

import (
	"context"
	"time"

	accesslogDatamodel "github.com/frahmantamala/site-access/internal/core/datamodel/accesslog"
)

// Entry is one granted access. EmployeeID is a weak reference; entries are
// removed explicitly before their employee is.
type Entry struct {
	ID                 int64
	EmployeeID         int64
	MatchedFingerprint string
	MatchedSlot        int
	RfidTag            string
	Branch             string
	AccessedAt         time.Time
}

type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	DeleteAllForEmployee(ctx context.Context, employeeID int64) (int64, error)
	CountForEmployee(ctx context.Context, employeeID int64) (int64, error)
	ListForEmployee(ctx context.Context, employeeID int64, limit int) ([]*Entry, error)
}

// EntryResponse omits the matched token; the slot number is enough for audit.
type EntryResponse struct {
	ID          int64     `json:"id"`
	EmployeeID  int64     `json:"employee_id"`
	MatchedSlot int       `json:"matched_slot"`
	RfidTag     string    `json:"rfid_tag"`
	Branch      string    `json:"branch"`
	AccessedAt  time.Time `json:"accessed_at"`
}

type HistoryResponse struct {
	EmployeeID int64           `json:"employee_id"`
	Total      int64           `json:"total"`
	Entries    []EntryResponse `json:"entries"`
}

func (e *Entry) ToResponse() EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		EmployeeID:  e.EmployeeID,
		MatchedSlot: e.MatchedSlot,
		RfidTag:     e.RfidTag,
		Branch:      e.Branch,
		AccessedAt:  e.AccessedAt,
	}
}

func ToDataModel(e *Entry) *accesslogDatamodel.AccessLog {
	return &accesslogDatamodel.AccessLog{
		ID:                 e.ID,
		EmployeeID:         e.EmployeeID,
		MatchedFingerprint: e.MatchedFingerprint,
		MatchedSlot:        e.MatchedSlot,
		RfidTag:            e.RfidTag,
		Branch:             e.Branch,
		AccessedAt:         e.AccessedAt,
	}
}

func FromDataModel(m *accesslogDatamodel.AccessLog) *Entry {
	return &Entry{
		ID:                 m.ID,
		EmployeeID:         m.EmployeeID,
		MatchedFingerprint: m.MatchedFingerprint,
		MatchedSlot:        m.MatchedSlot,
		RfidTag:            m.RfidTag,
		Branch:             m.Branch,
		AccessedAt:         m.AccessedAt,
	}
}
