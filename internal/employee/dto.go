package employee

import (
	"time"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/internal/core/common/validation"
)

type CreateEmployeeDTO struct {
	Fullname     string `json:"fullname"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Branch       string `json:"branch"`
	Fingerprint1 string `json:"fingerprint1"`
	Fingerprint2 string `json:"fingerprint2"`
	RfidTag      string `json:"rfid_tag"`
	ProfileImage string `json:"profile_image"`
}

// UpdateEmployeeDTO is a partial update: nil leaves a field untouched and an
// empty string clears a credential slot.
type UpdateEmployeeDTO struct {
	Fullname     *string `json:"fullname,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	Role         *string `json:"role,omitempty"`
	Branch       *string `json:"branch,omitempty"`
	Fingerprint1 *string `json:"fingerprint1,omitempty"`
	Fingerprint2 *string `json:"fingerprint2,omitempty"`
	RfidTag      *string `json:"rfid_tag,omitempty"`
	ProfileImage *string `json:"profile_image,omitempty"`
}

// EmployeeResponse never carries raw fingerprint tokens.
type EmployeeResponse struct {
	ID                   int64      `json:"id"`
	Fullname             string     `json:"fullname"`
	Phone                string     `json:"phone"`
	Email                string     `json:"email"`
	Role                 string     `json:"role"`
	Branch               string     `json:"branch"`
	RfidTag              string     `json:"rfid_tag,omitempty"`
	Fingerprint1Enrolled bool       `json:"fingerprint1_enrolled"`
	Fingerprint2Enrolled bool       `json:"fingerprint2_enrolled"`
	ProfileImage         string     `json:"profile_image"`
	LastAccessAt         *time.Time `json:"last_access_at,omitempty"`
	RegisteredAt         time.Time  `json:"registered_at"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

func (d CreateEmployeeDTO) ToEmployee(defaultProfileImage string) *Employee {
	e := &Employee{
		Fullname:     d.Fullname,
		Phone:        d.Phone,
		Email:        d.Email,
		Role:         d.Role,
		Branch:       d.Branch,
		Fingerprint1: d.Fingerprint1,
		Fingerprint2: d.Fingerprint2,
		RfidTag:      d.RfidTag,
		ProfileImage: d.ProfileImage,
	}
	if e.ProfileImage == "" {
		e.ProfileImage = defaultProfileImage
	}
	e.normalize()
	return e
}

// ApplyTo merges the patch into e and normalizes the result.
func (d UpdateEmployeeDTO) ApplyTo(e *Employee) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.Fullname, d.Fullname)
	set(&e.Phone, d.Phone)
	set(&e.Email, d.Email)
	set(&e.Role, d.Role)
	set(&e.Branch, d.Branch)
	set(&e.Fingerprint1, d.Fingerprint1)
	set(&e.Fingerprint2, d.Fingerprint2)
	set(&e.RfidTag, d.RfidTag)
	set(&e.ProfileImage, d.ProfileImage)
	e.normalize()
}

func (d UpdateEmployeeDTO) IsEmpty() bool {
	return d.Fullname == nil && d.Phone == nil && d.Email == nil && d.Role == nil &&
		d.Branch == nil && d.Fingerprint1 == nil && d.Fingerprint2 == nil &&
		d.RfidTag == nil && d.ProfileImage == nil
}

// ValidateEmployee checks a normalized record before it reaches the guard.
func ValidateEmployee(e *Employee) *internal.AppError {
	v := validation.NewValidator()
	v.Field("fullname", e.Fullname).Required().MaxLength(255)
	v.Field("branch", e.Branch).Required().MaxLength(100)
	v.Field("role", e.Role).MaxLength(100)
	v.Field("phone", e.Phone).MaxLength(50)
	v.Field("email", e.Email).MaxLength(255)
	v.Field("fingerprint1", e.Fingerprint1).MaxLength(512)
	v.Field("fingerprint2", e.Fingerprint2).MaxLength(512).
		DistinctFrom("fingerprint1", e.Fingerprint1, internal.ErrCodeDuplicateSlotToken)
	v.Field("rfid_tag", e.RfidTag).MaxLength(128)
	v.Field("profile_image", e.ProfileImage).MaxLength(255)
	return v.Validate()
}

func (e *Employee) ToResponse() EmployeeResponse {
	return EmployeeResponse{
		ID:                   e.ID,
		Fullname:             e.Fullname,
		Phone:                e.Phone,
		Email:                e.Email,
		Role:                 e.Role,
		Branch:               e.Branch,
		RfidTag:              e.RfidTag,
		Fingerprint1Enrolled: e.Fingerprint1 != "",
		Fingerprint2Enrolled: e.Fingerprint2 != "",
		ProfileImage:         e.ProfileImage,
		LastAccessAt:         e.LastAccessAt,
		RegisteredAt:         e.RegisteredAt,
	}
}
