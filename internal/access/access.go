package access

import (
	"github.com/frahmantamala/site-access/internal/employee"
)

type DenialReason string

const (
	ReasonRfidNotFound        DenialReason = "rfid_not_found"
	ReasonFingerprintMismatch DenialReason = "fingerprint_mismatch"
	ReasonNoFingerprint       DenialReason = "no_fingerprint_enrolled"
	ReasonTimeout             DenialReason = "timeout"
	// ReasonStorageError only appears on the wire; Verify reports storage
	// failures as errors.
	ReasonStorageError DenialReason = "storage_error"
)

var reasonMessages = map[DenialReason]string{
	ReasonRfidNotFound:        "Employee not found",
	ReasonFingerprintMismatch: "Fingerprint does not match",
	ReasonNoFingerprint:       "Employee has no fingerprint",
	ReasonTimeout:             "Verification timed out, please try again",
	ReasonStorageError:        "Verification is temporarily unavailable",
}

// Message is the text shown on the reader display.
func (r DenialReason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "Access denied"
}

// Grant is what the reader may show about the admitted employee.
type Grant struct {
	Fullname     string `json:"fullname"`
	Role         string `json:"role"`
	ProfileImage string `json:"profile_image"`
}

type Result struct {
	Granted       bool
	Reason        DenialReason
	Employee      *Grant
	EmployeeID    int64
	MatchedSlot   int
	AuditRecorded bool
}

func denied(reason DenialReason) *Result {
	return &Result{Reason: reason}
}

// Probe is the outcome of a card-only check used by readers before
// prompting for a fingerprint.
type Probe struct {
	Ready    bool
	Reason   DenialReason
	Employee *Grant
}

func grantFor(e *employee.Employee) *Grant {
	return &Grant{
		Fullname:     e.Fullname,
		Role:         e.Role,
		ProfileImage: e.ProfileImage,
	}
}

type VerifyRequest struct {
	RfidTag     string `json:"rfid_tag"`
	Fingerprint string `json:"fingerprint"`
}

type VerifyResponse struct {
	Granted  bool         `json:"granted"`
	Reason   DenialReason `json:"reason,omitempty"`
	Message  string       `json:"message"`
	Employee *Grant       `json:"employee,omitempty"`
}

type ProbeResponse struct {
	Ready    bool         `json:"ready"`
	Reason   DenialReason `json:"reason,omitempty"`
	Message  string       `json:"message"`
	Employee *Grant       `json:"employee,omitempty"`
}

func (r *Result) ToResponse() VerifyResponse {
	if r.Granted {
		return VerifyResponse{Granted: true, Message: "Access granted", Employee: r.Employee}
	}
	return VerifyResponse{Reason: r.Reason, Message: r.Reason.Message()}
}

func (p *Probe) ToResponse() ProbeResponse {
	if p.Ready {
		return ProbeResponse{Ready: true, Message: "Place finger on the reader", Employee: p.Employee}
	}
	return ProbeResponse{Reason: p.Reason, Message: p.Reason.Message()}
}
