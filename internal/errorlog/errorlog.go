package errorlog

import (
	"context"
	"encoding/json"
	"time"

	errorlogDatamodel "github.com/frahmantamala/site-access/internal/core/datamodel/errorlog"
)

// Entry is an operational failure worth keeping beyond process logs, such
// as a granted access whose audit entry could not be written.
type Entry struct {
	ID        int64                  `json:"id"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit int) ([]*Entry, error)
	DeleteAll(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ListResponse struct {
	Entries []*Entry `json:"entries"`
}

func ToDataModel(e *Entry) (*errorlogDatamodel.ErrorLog, error) {
	details := "{}"
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, err
		}
		details = string(raw)
	}
	return &errorlogDatamodel.ErrorLog{
		ID:        e.ID,
		Source:    e.Source,
		Message:   e.Message,
		Details:   details,
		CreatedAt: e.CreatedAt,
	}, nil
}

// FromDataModel tolerates malformed details; the row is still returned.
func FromDataModel(m *errorlogDatamodel.ErrorLog) *Entry {
	e := &Entry{
		ID:        m.ID,
		Source:    m.Source,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
	if m.Details != "" && m.Details != "{}" {
		var details map[string]interface{}
		if err := json.Unmarshal([]byte(m.Details), &details); err == nil {
			e.Details = details
		}
	}
	return e
}
