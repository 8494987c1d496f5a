package accesslog

import "time"

type AccessLog struct {
	ID                 int64     `gorm:"primaryKey"`
	EmployeeID         int64     `gorm:"column:employee_id;not null;index"`
	MatchedFingerprint string    `gorm:"column:matched_fingerprint;not null"`
	MatchedSlot        int       `gorm:"column:matched_slot;not null"`
	RfidTag            string    `gorm:"column:rfid_tag;not null"`
	Branch             string    `gorm:"column:branch;not null"`
	AccessedAt         time.Time `gorm:"column:accessed_at;not null;index"`
}

func (AccessLog) TableName() string {
	return "access_logs"
}
