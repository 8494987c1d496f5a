package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAccessGranted    = "access.granted"
	EventTypeAccessDenied     = "access.denied"
	EventTypeAuditWriteFailed = "audit.write_failed"
)

type AccessGrantedEvent struct {
	BaseEvent
	EmployeeID  int64  `json:"employee_id"`
	Branch      string `json:"branch"`
	MatchedSlot int    `json:"matched_slot"`
}

func NewAccessGrantedEvent(employeeID int64, branch string, matchedSlot int, at time.Time) *AccessGrantedEvent {
	return &AccessGrantedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessGranted,
			Timestamp: at,
			Data: map[string]interface{}{
				"employee_id":  employeeID,
				"branch":       branch,
				"matched_slot": matchedSlot,
			},
		},
		EmployeeID:  employeeID,
		Branch:      branch,
		MatchedSlot: matchedSlot,
	}
}

// AccessDeniedEvent carries the presented RFID tag but never the presented
// fingerprint.
type AccessDeniedEvent struct {
	BaseEvent
	RfidTag    string `json:"rfid_tag"`
	EmployeeID int64  `json:"employee_id,omitempty"`
	Reason     string `json:"reason"`
}

func NewAccessDeniedEvent(rfidTag string, employeeID int64, reason string, at time.Time) *AccessDeniedEvent {
	return &AccessDeniedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAccessDenied,
			Timestamp: at,
			Data: map[string]interface{}{
				"rfid_tag":    rfidTag,
				"employee_id": employeeID,
				"reason":      reason,
			},
		},
		RfidTag:    rfidTag,
		EmployeeID: employeeID,
		Reason:     reason,
	}
}

// AuditWriteFailedEvent reports a granted access whose log entry could not
// be written.
type AuditWriteFailedEvent struct {
	BaseEvent
	EmployeeID int64  `json:"employee_id"`
	Branch     string `json:"branch"`
	Error      string `json:"error"`
}

func NewAuditWriteFailedEvent(employeeID int64, branch string, cause error, at time.Time) *AuditWriteFailedEvent {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &AuditWriteFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAuditWriteFailed,
			Timestamp: at,
			Data: map[string]interface{}{
				"employee_id": employeeID,
				"branch":      branch,
				"error":       msg,
			},
		},
		EmployeeID: employeeID,
		Branch:     branch,
		Error:      msg,
	}
}
