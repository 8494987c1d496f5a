package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	employeeDatamodel "github.com/frahmantamala/site-access/internal/core/datamodel/employee"
	"github.com/frahmantamala/site-access/internal/employee"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

var _ employee.Repository = (*EmployeeRepository)(nil)

// Create inserts the employee and its fingerprint index rows in one
// transaction. The employees insert can only trip the rfid_tag index and the
// index insert can only trip (branch, token), so the failing statement tells
// which credential collided.
func (r *EmployeeRepository) Create(ctx context.Context, emp *employee.Employee) error {
	model := employee.ToDataModel(emp)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			if isUniqueViolation(err) {
				return employee.ErrRfidTaken
			}
			return err
		}
		return insertFingerprints(tx, model)
	})
	if err != nil {
		return err
	}

	*emp = *employee.FromDataModel(model)
	return nil
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*employee.Employee, error) {
	var model employeeDatamodel.Employee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return employee.FromDataModel(&model), nil
}

func (r *EmployeeRepository) FindByRfid(ctx context.Context, rfidTag string) (*employee.Employee, error) {
	var model employeeDatamodel.Employee
	if err := r.db.WithContext(ctx).Where("rfid_tag = ?", rfidTag).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return employee.FromDataModel(&model), nil
}

func (r *EmployeeRepository) FindFingerprintHolders(ctx context.Context, branch string, tokens []string, excludeID *int64) ([]*employee.Employee, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).
		Where("branch = ?", branch).
		Where("(fingerprint1 IN ? OR fingerprint2 IN ?)", tokens, tokens)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var models []*employeeDatamodel.Employee
	if err := q.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	holders := make([]*employee.Employee, 0, len(models))
	for _, m := range models {
		holders = append(holders, employee.FromDataModel(m))
	}
	return holders, nil
}

func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListFilter) ([]*employee.Employee, error) {
	q := r.db.WithContext(ctx).Order("id ASC")
	if filter.Branch != "" {
		q = q.Where("branch = ?", filter.Branch)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var models []*employeeDatamodel.Employee
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	result := make([]*employee.Employee, 0, len(models))
	for _, m := range models {
		result = append(result, employee.FromDataModel(m))
	}
	return result, nil
}

// Update persists the effective record and rebuilds its fingerprint index
// rows. last_access_at is left alone so a concurrent grant is not undone.
func (r *EmployeeRepository) Update(ctx context.Context, emp *employee.Employee) error {
	model := employee.ToDataModel(emp)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&employeeDatamodel.Employee{}).Where("id = ?", model.ID).Updates(map[string]interface{}{
			"fullname":      model.Fullname,
			"phone":         model.Phone,
			"email":         model.Email,
			"role":          model.Role,
			"branch":        model.Branch,
			"fingerprint1":  model.Fingerprint1,
			"fingerprint2":  model.Fingerprint2,
			"rfid_tag":      model.RfidTag,
			"profile_image": model.ProfileImage,
			"updated_at":    time.Now().UTC(),
		})
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return employee.ErrRfidTaken
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return employee.ErrEmployeeNotFound
		}

		if err := tx.Where("employee_id = ?", model.ID).Delete(&employeeDatamodel.Fingerprint{}).Error; err != nil {
			return err
		}
		return insertFingerprints(tx, model)
	})
}

// RecordAccess stamps last_access_at under a row lock. SQLite has no row
// locks and the gorm sqlite dialect drops the clause.
func (r *EmployeeRepository) RecordAccess(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked employeeDatamodel.Employee
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", id).
			First(&locked).Error
		if err != nil {
			return notFound(err)
		}

		return tx.Model(&employeeDatamodel.Employee{}).
			Where("id = ?", id).
			Update("last_access_at", at).Error
	})
}

func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", id).Delete(&employeeDatamodel.Fingerprint{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&employeeDatamodel.Employee{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return employee.ErrEmployeeNotFound
		}
		return nil
	})
}

func (r *EmployeeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&employeeDatamodel.Employee{}).Count(&n).Error
	return n, err
}

func insertFingerprints(tx *gorm.DB, model *employeeDatamodel.Employee) error {
	rows := make([]*employeeDatamodel.Fingerprint, 0, 2)
	for slot, token := range []*string{model.Fingerprint1, model.Fingerprint2} {
		if token == nil || *token == "" {
			continue
		}
		rows = append(rows, &employeeDatamodel.Fingerprint{
			EmployeeID: model.ID,
			Branch:     model.Branch,
			Token:      *token,
			Slot:       slot + 1,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	if err := tx.Create(&rows).Error; err != nil {
		if isUniqueViolation(err) {
			return employee.ErrFingerprintTaken
		}
		return err
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return employee.ErrEmployeeNotFound
	}
	return err
}

// isUniqueViolation recognises duplicate-key failures from both the pgx
// driver and the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
