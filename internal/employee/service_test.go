package employee_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/internal/accesslog"
	accesslogPostgres "github.com/frahmantamala/site-access/internal/accesslog/postgres"
	"github.com/frahmantamala/site-access/internal/employee"
	employeePostgres "github.com/frahmantamala/site-access/internal/employee/postgres"
	"github.com/frahmantamala/site-access/internal/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func ptr(s string) *string {
	return &s
}

func expectAppError(err error, errType internal.ErrorType, code internal.ErrorCode) *internal.AppError {
	GinkgoHelper()
	Expect(err).To(HaveOccurred())
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected AppError, got %v", err)
	Expect(appErr.Type).To(Equal(errType))
	Expect(appErr.Code).To(Equal(code))
	return appErr
}

var _ = Describe("Employee Service", func() {
	var (
		ctx      context.Context
		db       *gorm.DB
		repo     *employeePostgres.EmployeeRepository
		logsRepo *accesslogPostgres.AccessLogRepository
		service  *employee.Service
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(testutil.Close, db)

		repo = employeePostgres.NewEmployeeRepository(db)
		logsRepo = accesslogPostgres.NewAccessLogRepository(db)
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = employee.NewService(repo, employee.NewGuard(repo), logsRepo, slogger, employee.Options{
			StorageTimeout: 2 * time.Second,
		})
	})

	create := func(name, branch, fp1, fp2, rfid string) *employee.Employee {
		GinkgoHelper()
		emp, err := service.Create(ctx, employee.CreateEmployeeDTO{
			Fullname:     name,
			Branch:       branch,
			Role:         "Technician",
			Fingerprint1: fp1,
			Fingerprint2: fp2,
			RfidTag:      rfid,
		})
		Expect(err).NotTo(HaveOccurred())
		return emp
	}

	Describe("Create", func() {
		It("should enroll an employee with defaults applied", func() {
			emp := create("Ana Reyes", "north", "T1", "T2", "R1")

			Expect(emp.ID).To(BeNumerically(">", 0))
			Expect(emp.ProfileImage).To(Equal(internal.DefaultProfileImage))
			Expect(emp.RegisteredAt).NotTo(BeZero())
			Expect(emp.LastAccessAt).To(BeNil())

			stored, err := service.Get(ctx, emp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Fingerprint1).To(Equal("T1"))
			Expect(stored.Fingerprint2).To(Equal("T2"))
			Expect(stored.RfidTag).To(Equal("R1"))
		})

		It("should trim tokens and treat blank slots as unset", func() {
			emp := create("Ana Reyes", "north", "  T1 ", "   ", "")

			stored, err := service.Get(ctx, emp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Fingerprint1).To(Equal("T1"))
			Expect(stored.Fingerprint2).To(BeEmpty())
			Expect(stored.RfidTag).To(BeEmpty())
		})

		It("should allow many employees without fingerprints in one branch", func() {
			create("Ana Reyes", "north", "", "", "")
			create("Jun Santos", "north", "   ", "", "")
			create("Lea Cruz", "north", "", "", "")

			n, err := service.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(3)))
		})

		It("should allow the same token in different branches", func() {
			create("Ana Reyes", "north", "T1", "", "")
			emp := create("Jun Santos", "south", "T1", "", "")
			Expect(emp.Branch).To(Equal("south"))
		})

		DescribeTable("should reject a token already held in the same branch",
			func(existing1, existing2, candidate1, candidate2 string) {
				holder := create("Ana Reyes", "north", existing1, existing2, "")

				_, err := service.Create(ctx, employee.CreateEmployeeDTO{
					Fullname:     "Jun Santos",
					Branch:       "north",
					Fingerprint1: candidate1,
					Fingerprint2: candidate2,
				})
				appErr := expectAppError(err, internal.ErrorTypeConflict, internal.ErrCodeFingerprintConflict)
				Expect(appErr.StatusCode).To(Equal(409))
				Expect(appErr.Details).To(Equal(employee.ConflictDetails{
					ConflictingEmployeeName: holder.Fullname,
					Branch:                  "north",
				}))

				n, err := service.Count(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(int64(1)))
			},
			Entry("slot 1 against slot 1", "T1", "T2", "T1", ""),
			Entry("slot 1 against slot 2", "T1", "T2", "T2", ""),
			Entry("slot 2 against slot 1", "T1", "T2", "", "T1"),
			Entry("slot 2 against slot 2", "T1", "T2", "X9", "T2"),
		)

		It("should reject the same token in both slots", func() {
			_, err := service.Create(ctx, employee.CreateEmployeeDTO{
				Fullname:     "Ana Reyes",
				Branch:       "north",
				Fingerprint1: "T1",
				Fingerprint2: " T1 ",
			})
			appErr := expectAppError(err, internal.ErrorTypeValidation, internal.ErrCodeValidationFailed)
			details, ok := appErr.Details.(internal.ValidationErrors)
			Expect(ok).To(BeTrue())
			Expect(details.Errors[0].Code).To(Equal(string(internal.ErrCodeDuplicateSlotToken)))
		})

		It("should require fullname and branch", func() {
			_, err := service.Create(ctx, employee.CreateEmployeeDTO{Fullname: "  ", Branch: ""})
			appErr := expectAppError(err, internal.ErrorTypeValidation, internal.ErrCodeValidationFailed)
			details := appErr.Details.(internal.ValidationErrors)
			Expect(details.Errors).To(HaveLen(2))
		})

		It("should reject an RFID tag assigned to anyone, in any branch", func() {
			create("Ana Reyes", "north", "T1", "", "R1")

			_, err := service.Create(ctx, employee.CreateEmployeeDTO{
				Fullname: "Jun Santos",
				Branch:   "south",
				RfidTag:  "R1",
			})
			appErr := expectAppError(err, internal.ErrorTypeConflict, internal.ErrCodeRfidConflict)
			Expect(appErr.Details).To(Equal(employee.ConflictDetails{
				ConflictingEmployeeName: "Ana Reyes",
				Branch:                  "north",
			}))
		})

		It("should report storage failures as storage errors", func() {
			testutil.Close(db)

			_, err := service.Create(ctx, employee.CreateEmployeeDTO{Fullname: "Ana Reyes", Branch: "north", Fingerprint1: "T1"})
			expectAppError(err, internal.ErrorTypeStorage, internal.ErrCodeStorageFailure)
		})
	})

	Describe("Update", func() {
		It("should allow swapping tokens between the record's own slots", func() {
			emp := create("Ana Reyes", "north", "T1", "T2", "")

			updated, err := service.Update(ctx, emp.ID, employee.UpdateEmployeeDTO{
				Fingerprint1: ptr("T2"),
				Fingerprint2: ptr("T1"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Fingerprint1).To(Equal("T2"))
			Expect(updated.Fingerprint2).To(Equal("T1"))
		})

		It("should keep the record's own unchanged tokens", func() {
			emp := create("Ana Reyes", "north", "T1", "", "R1")

			updated, err := service.Update(ctx, emp.ID, employee.UpdateEmployeeDTO{Role: ptr("Supervisor")})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Role).To(Equal("Supervisor"))
			Expect(updated.Fingerprint1).To(Equal("T1"))
			Expect(updated.RfidTag).To(Equal("R1"))
		})

		It("should reject taking another employee's token and leave both unchanged", func() {
			a := create("Ana Reyes", "north", "T1", "", "")
			b := create("Jun Santos", "north", "T3", "", "")

			_, err := service.Update(ctx, b.ID, employee.UpdateEmployeeDTO{Fingerprint2: ptr("T1")})
			appErr := expectAppError(err, internal.ErrorTypeConflict, internal.ErrCodeFingerprintConflict)
			Expect(appErr.Details.(employee.ConflictDetails).ConflictingEmployeeName).To(Equal("Ana Reyes"))

			storedB, err := service.Get(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(storedB.Fingerprint2).To(BeEmpty())

			storedA, err := service.Get(ctx, a.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(storedA.Fingerprint1).To(Equal("T1"))
		})

		It("should check uniqueness against the new branch when moving", func() {
			create("Ana Reyes", "south", "T1", "", "")
			b := create("Jun Santos", "north", "T1", "", "")

			_, err := service.Update(ctx, b.ID, employee.UpdateEmployeeDTO{Branch: ptr("south")})
			expectAppError(err, internal.ErrorTypeConflict, internal.ErrCodeFingerprintConflict)
		})

		It("should clear a slot given an empty string and free the token", func() {
			a := create("Ana Reyes", "north", "T1", "", "")

			_, err := service.Update(ctx, a.ID, employee.UpdateEmployeeDTO{Fingerprint1: ptr("")})
			Expect(err).NotTo(HaveOccurred())

			create("Jun Santos", "north", "T1", "", "")
		})

		It("should return not found for a missing employee", func() {
			_, err := service.Update(ctx, 4242, employee.UpdateEmployeeDTO{Role: ptr("Guard")})
			expectAppError(err, internal.ErrorTypeNotFound, internal.ErrCodeEmployeeNotFound)
		})
	})

	Describe("Delete", func() {
		It("should remove the employee and all of its access logs", func() {
			emp := create("Ana Reyes", "north", "T1", "", "R1")
			other := create("Jun Santos", "north", "T2", "", "R2")

			for i := 0; i < 3; i++ {
				Expect(logsRepo.Append(ctx, &accesslog.Entry{
					EmployeeID: emp.ID, MatchedFingerprint: "T1", MatchedSlot: 1,
					RfidTag: "R1", Branch: "north", AccessedAt: time.Now().UTC(),
				})).To(Succeed())
			}
			Expect(logsRepo.Append(ctx, &accesslog.Entry{
				EmployeeID: other.ID, MatchedFingerprint: "T2", MatchedSlot: 1,
				RfidTag: "R2", Branch: "north", AccessedAt: time.Now().UTC(),
			})).To(Succeed())

			Expect(service.Delete(ctx, emp.ID)).To(Succeed())

			_, err := service.Get(ctx, emp.ID)
			expectAppError(err, internal.ErrorTypeNotFound, internal.ErrCodeEmployeeNotFound)

			n, err := logsRepo.CountForEmployee(ctx, emp.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())

			n, err = logsRepo.CountForEmployee(ctx, other.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})

		It("should free the deleted employee's credentials", func() {
			emp := create("Ana Reyes", "north", "T1", "", "R1")
			Expect(service.Delete(ctx, emp.ID)).To(Succeed())

			create("Jun Santos", "north", "T1", "", "R1")
		})

		It("should return not found for a missing employee", func() {
			err := service.Delete(ctx, 4242)
			expectAppError(err, internal.ErrorTypeNotFound, internal.ErrCodeEmployeeNotFound)
		})
	})

	Describe("List", func() {
		It("should filter by branch", func() {
			create("Ana Reyes", "north", "", "", "")
			create("Jun Santos", "south", "", "", "")
			create("Lea Cruz", "north", "", "", "")

			employees, err := service.List(ctx, employee.ListFilter{Branch: "north"})
			Expect(err).NotTo(HaveOccurred())
			Expect(employees).To(HaveLen(2))
			Expect(employees[0].Fullname).To(Equal("Ana Reyes"))
			Expect(employees[1].Fullname).To(Equal("Lea Cruz"))
		})
	})
})
