package employee

import "time"

// Employee mirrors the employees table. Nullable columns are pointers so an
// unset credential is stored as NULL rather than an empty string.
type Employee struct {
	ID           int64      `gorm:"primaryKey"`
	Fullname     string     `gorm:"column:fullname;not null"`
	Phone        string     `gorm:"column:phone"`
	Email        string     `gorm:"column:email"`
	Role         string     `gorm:"column:role"`
	Branch       string     `gorm:"column:branch;not null;index"`
	Fingerprint1 *string    `gorm:"column:fingerprint1;index"`
	Fingerprint2 *string    `gorm:"column:fingerprint2;index"`
	RfidTag      *string    `gorm:"column:rfid_tag;uniqueIndex"`
	LastAccessAt *time.Time `gorm:"column:last_access_at"`
	ProfileImage string     `gorm:"column:profile_image"`
	RegisteredAt time.Time  `gorm:"column:registered_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Employee) TableName() string {
	return "employees"
}

// Fingerprint is one enrolled token. The (branch, token) unique index is the
// storage-level backstop for per-branch fingerprint uniqueness.
type Fingerprint struct {
	ID         int64  `gorm:"primaryKey"`
	EmployeeID int64  `gorm:"column:employee_id;not null;index"`
	Branch     string `gorm:"column:branch;not null;uniqueIndex:idx_employee_fingerprints_branch_token"`
	Token      string `gorm:"column:token;not null;uniqueIndex:idx_employee_fingerprints_branch_token"`
	Slot       int    `gorm:"column:slot;not null"`
}

func (Fingerprint) TableName() string {
	return "employee_fingerprints"
}
