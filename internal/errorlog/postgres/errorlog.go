package postgres

import (
	"context"
	"time"

	errorlogDatamodel "github.com/frahmantamala/site-access/internal/core/datamodel/errorlog"
	"github.com/frahmantamala/site-access/internal/errorlog"
	"github.com/jmoiron/sqlx"
)

// ErrorLogRepository uses plain SQL through sqlx; statements are written with
// ? placeholders and rebound for the connected driver.
type ErrorLogRepository struct {
	db *sqlx.DB
}

func NewErrorLogRepository(db *sqlx.DB) *ErrorLogRepository {
	return &ErrorLogRepository{db: db}
}

var _ errorlog.Repository = (*ErrorLogRepository)(nil)

const (
	insertErrorLog = `INSERT INTO error_logs (source, message, details, created_at) VALUES (?, ?, ?, ?) RETURNING id`
	listErrorLogs  = `SELECT id, source, message, details, created_at FROM error_logs ORDER BY created_at DESC, id DESC LIMIT ?`
	pruneErrorLogs = `DELETE FROM error_logs WHERE created_at < ?`
	clearErrorLogs = `DELETE FROM error_logs`
)

func (r *ErrorLogRepository) Create(ctx context.Context, entry *errorlog.Entry) error {
	model, err := errorlog.ToDataModel(entry)
	if err != nil {
		return err
	}

	var id int64
	err = r.db.QueryRowxContext(ctx, r.db.Rebind(insertErrorLog),
		model.Source, model.Message, model.Details, model.CreatedAt).Scan(&id)
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

func (r *ErrorLogRepository) List(ctx context.Context, limit int) ([]*errorlog.Entry, error) {
	var rows []*errorlogDatamodel.ErrorLog
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(listErrorLogs), limit); err != nil {
		return nil, err
	}

	entries := make([]*errorlog.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, errorlog.FromDataModel(row))
	}
	return entries, nil
}

func (r *ErrorLogRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, clearErrorLogs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ErrorLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(pruneErrorLogs), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
