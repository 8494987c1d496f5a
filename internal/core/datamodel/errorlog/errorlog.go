package errorlog

import "time"

// ErrorLog is read and written through sqlx, hence the db tags.
type ErrorLog struct {
	ID        int64     `db:"id"`
	Source    string    `db:"source"`
	Message   string    `db:"message"`
	Details   string    `db:"details"`
	CreatedAt time.Time `db:"created_at"`
}

const TableName = "error_logs"
