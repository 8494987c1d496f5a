package postgres

import (
	"context"

	"github.com/frahmantamala/site-access/internal/accesslog"
	accesslogDatamodel "github.com/frahmantamala/site-access/internal/core/datamodel/accesslog"
	"gorm.io/gorm"
)

type AccessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) *AccessLogRepository {
	return &AccessLogRepository{db: db}
}

var _ accesslog.Repository = (*AccessLogRepository)(nil)

func (r *AccessLogRepository) Append(ctx context.Context, entry *accesslog.Entry) error {
	model := accesslog.ToDataModel(entry)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	entry.ID = model.ID
	return nil
}

func (r *AccessLogRepository) DeleteAllForEmployee(ctx context.Context, employeeID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Delete(&accesslogDatamodel.AccessLog{})
	return res.RowsAffected, res.Error
}

func (r *AccessLogRepository) CountForEmployee(ctx context.Context, employeeID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&accesslogDatamodel.AccessLog{}).Where("employee_id = ?", employeeID).Count(&n).Error
	return n, err
}

// ListForEmployee returns the most recent entries first.
func (r *AccessLogRepository) ListForEmployee(ctx context.Context, employeeID int64, limit int) ([]*accesslog.Entry, error) {
	var models []*accesslogDatamodel.AccessLog
	q := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Order("accessed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]*accesslog.Entry, 0, len(models))
	for _, m := range models {
		entries = append(entries, accesslog.FromDataModel(m))
	}
	return entries, nil
}
