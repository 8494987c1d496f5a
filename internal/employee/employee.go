package employee

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/site-access/internal"
	employeeDatamodel "github.com/frahmantamala/site-access/internal/core/datamodel/employee"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrFingerprintTaken and ErrRfidTaken are raised by repositories when a
	// storage unique constraint rejects a write the guard let through.
	ErrFingerprintTaken = errors.New("fingerprint token already enrolled in branch")
	ErrRfidTaken        = errors.New("rfid tag already assigned")
)

// Employee is an enrolled person. Empty credential fields mean "not set";
// they are normalized to NULL in storage and never take part in matching.
type Employee struct {
	ID           int64
	Fullname     string
	Phone        string
	Email        string
	Role         string
	Branch       string
	Fingerprint1 string
	Fingerprint2 string
	RfidTag      string
	LastAccessAt *time.Time
	ProfileImage string
	RegisteredAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeToken trims surrounding whitespace; blank tokens become "".
func NormalizeToken(token string) string {
	return strings.TrimSpace(token)
}

// FingerprintTokens returns the non-empty enrolled tokens in slot order.
func (e *Employee) FingerprintTokens() []string {
	tokens := make([]string, 0, 2)
	if e.Fingerprint1 != "" {
		tokens = append(tokens, e.Fingerprint1)
	}
	if e.Fingerprint2 != "" && e.Fingerprint2 != e.Fingerprint1 {
		tokens = append(tokens, e.Fingerprint2)
	}
	return tokens
}

func (e *Employee) HasFingerprint() bool {
	return e.Fingerprint1 != "" || e.Fingerprint2 != ""
}

// MatchFingerprint reports which slot holds token. Empty tokens never match.
func (e *Employee) MatchFingerprint(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	switch token {
	case e.Fingerprint1:
		return 1, true
	case e.Fingerprint2:
		return 2, true
	}
	return 0, false
}

func (e *Employee) normalize() {
	e.Fullname = strings.TrimSpace(e.Fullname)
	e.Branch = strings.TrimSpace(e.Branch)
	e.Role = strings.TrimSpace(e.Role)
	e.Fingerprint1 = NormalizeToken(e.Fingerprint1)
	e.Fingerprint2 = NormalizeToken(e.Fingerprint2)
	e.RfidTag = NormalizeToken(e.RfidTag)
}

// ConflictDetails is attached to conflict errors so the admin UI can name the
// record already holding the credential.
type ConflictDetails struct {
	ConflictingEmployeeName string `json:"conflicting_employee_name,omitempty"`
	Branch                  string `json:"branch,omitempty"`
}

func NewFingerprintConflictError(holderName, branch string) *internal.AppError {
	msg := fmt.Sprintf("Fingerprint is already enrolled for another employee in branch %s", branch)
	if holderName != "" {
		msg = fmt.Sprintf("Fingerprint is already enrolled for %s in branch %s", holderName, branch)
	}
	return internal.NewConflictError(msg, internal.ErrCodeFingerprintConflict).
		WithDetails(ConflictDetails{ConflictingEmployeeName: holderName, Branch: branch})
}

func NewRfidConflictError(holderName, branch string) *internal.AppError {
	msg := "RFID tag is already assigned to another employee"
	if holderName != "" {
		msg = fmt.Sprintf("RFID tag is already assigned to %s", holderName)
	}
	return internal.NewConflictError(msg, internal.ErrCodeRfidConflict).
		WithDetails(ConflictDetails{ConflictingEmployeeName: holderName, Branch: branch})
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return NormalizeToken(*s)
}

func ToDataModel(e *Employee) *employeeDatamodel.Employee {
	return &employeeDatamodel.Employee{
		ID:           e.ID,
		Fullname:     e.Fullname,
		Phone:        e.Phone,
		Email:        e.Email,
		Role:         e.Role,
		Branch:       e.Branch,
		Fingerprint1: nullable(NormalizeToken(e.Fingerprint1)),
		Fingerprint2: nullable(NormalizeToken(e.Fingerprint2)),
		RfidTag:      nullable(NormalizeToken(e.RfidTag)),
		LastAccessAt: e.LastAccessAt,
		ProfileImage: e.ProfileImage,
		RegisteredAt: e.RegisteredAt,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func FromDataModel(m *employeeDatamodel.Employee) *Employee {
	return &Employee{
		ID:           m.ID,
		Fullname:     m.Fullname,
		Phone:        m.Phone,
		Email:        m.Email,
		Role:         m.Role,
		Branch:       m.Branch,
		Fingerprint1: deref(m.Fingerprint1),
		Fingerprint2: deref(m.Fingerprint2),
		RfidTag:      deref(m.RfidTag),
		LastAccessAt: m.LastAccessAt,
		ProfileImage: m.ProfileImage,
		RegisteredAt: m.RegisteredAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
