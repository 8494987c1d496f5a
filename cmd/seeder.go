package cmd

import (
	"context"
	"errors"
	"log"

	"github.com/frahmantamala/site-access/internal"
	accesslogDatamodel "github.com/frahmantamala/site-access/internal/core/datamodel/accesslog"
	employeeDatamodel "github.com/frahmantamala/site-access/internal/core/datamodel/employee"
	"github.com/frahmantamala/site-access/internal/employee"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample employees for development and reader testing.`,
	Run: func(cmd *cobra.Command, args []string) {
		deps, err := initializeDependencies()
		if err != nil {
			log.Fatalf("failed to init dependencies: %v", err)
		}
		defer deps.close()

		ctx := context.Background()

		if clearData {
			if err := clearSeedData(deps.Gorm); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			deps.Logger.Info("cleared employees and access logs")
		}

		for _, dto := range sampleEmployees() {
			emp, err := deps.Employees.Create(ctx, dto)
			if err != nil {
				var appErr *internal.AppError
				if errors.As(err, &appErr) && appErr.Type == internal.ErrorTypeConflict {
					deps.Logger.Info("employee already seeded", "fullname", dto.Fullname, "branch", dto.Branch)
					continue
				}
				log.Fatalf("failed to seed %s: %v", dto.Fullname, err)
			}
			deps.Logger.Info("seeded employee", "employee_id", emp.ID, "fullname", emp.Fullname, "branch", emp.Branch)
		}
	},
}

// sampleEmployees go through the enrollment service so the seed data obeys
// the same uniqueness rules as the admin API.
func sampleEmployees() []employee.CreateEmployeeDTO {
	return []employee.CreateEmployeeDTO{
		{Fullname: "Fadhil Rahman", Role: "Site Manager", Branch: "north", Email: "fadhil@mail.com", Fingerprint1: "FP-NORTH-0001", Fingerprint2: "FP-NORTH-0002", RfidTag: "RFID-0001"},
		{Fullname: "Ana Reyes", Role: "Technician", Branch: "north", Email: "ana@mail.com", Fingerprint1: "FP-NORTH-0003", RfidTag: "RFID-0002"},
		{Fullname: "Jun Santos", Role: "Guard", Branch: "south", Email: "jun@mail.com", Fingerprint1: "FP-NORTH-0001", RfidTag: "RFID-0003"},
		{Fullname: "Lea Cruz", Role: "Intern", Branch: "south", Email: "lea@mail.com", RfidTag: "RFID-0004"},
	}
}

func clearSeedData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&accesslogDatamodel.AccessLog{},
			&employeeDatamodel.Fingerprint{},
			&employeeDatamodel.Employee{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
