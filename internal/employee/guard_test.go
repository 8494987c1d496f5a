package employee_test

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/internal/employee"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockRepository implements employee.Repository in memory for testing
type MockRepository struct {
	employees  map[int64]*employee.Employee
	nextID     int64
	shouldFail bool
	failError  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{employees: make(map[int64]*employee.Employee)}
}

func (m *MockRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

func (m *MockRepository) AddEmployee(e *employee.Employee) *employee.Employee {
	m.nextID++
	e.ID = m.nextID
	m.employees[e.ID] = e
	return e
}

func (m *MockRepository) sorted() []*employee.Employee {
	result := make([]*employee.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *MockRepository) Create(_ context.Context, e *employee.Employee) error {
	if m.shouldFail {
		return m.failError
	}
	m.AddEmployee(e)
	return nil
}

func (m *MockRepository) GetByID(_ context.Context, id int64) (*employee.Employee, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	e, ok := m.employees[id]
	if !ok {
		return nil, employee.ErrEmployeeNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *MockRepository) FindByRfid(_ context.Context, rfidTag string) (*employee.Employee, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	for _, e := range m.sorted() {
		if e.RfidTag == rfidTag {
			return e, nil
		}
	}
	return nil, employee.ErrEmployeeNotFound
}

func (m *MockRepository) FindFingerprintHolders(_ context.Context, branch string, tokens []string, excludeID *int64) ([]*employee.Employee, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var holders []*employee.Employee
	for _, e := range m.sorted() {
		if e.Branch != branch || (excludeID != nil && e.ID == *excludeID) {
			continue
		}
		for _, t := range tokens {
			if _, ok := e.MatchFingerprint(t); ok {
				holders = append(holders, e)
				break
			}
		}
	}
	return holders, nil
}

func (m *MockRepository) List(_ context.Context, _ employee.ListFilter) ([]*employee.Employee, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	return m.sorted(), nil
}

func (m *MockRepository) Update(_ context.Context, e *employee.Employee) error {
	if m.shouldFail {
		return m.failError
	}
	if _, ok := m.employees[e.ID]; !ok {
		return employee.ErrEmployeeNotFound
	}
	m.employees[e.ID] = e
	return nil
}

func (m *MockRepository) RecordAccess(_ context.Context, id int64, at time.Time) error {
	if m.shouldFail {
		return m.failError
	}
	e, ok := m.employees[id]
	if !ok {
		return employee.ErrEmployeeNotFound
	}
	e.LastAccessAt = &at
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id int64) error {
	if m.shouldFail {
		return m.failError
	}
	delete(m.employees, id)
	return nil
}

func (m *MockRepository) Count(_ context.Context) (int64, error) {
	if m.shouldFail {
		return 0, m.failError
	}
	return int64(len(m.employees)), nil
}

var _ = Describe("Enrollment Guard", func() {
	var (
		ctx   context.Context
		repo  *MockRepository
		guard *employee.Guard
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMockRepository()
		guard = employee.NewGuard(repo)

		repo.AddEmployee(&employee.Employee{Fullname: "Ana Reyes", Branch: "north", Fingerprint1: "T1", Fingerprint2: "T2", RfidTag: "R1"})
	})

	It("should accept a candidate with no credentials", func() {
		Expect(guard.CheckUnique(ctx, &employee.Employee{Fullname: "Jun", Branch: "north"}, nil)).To(Succeed())
	})

	It("should accept the holder itself when excluded", func() {
		id := int64(1)
		candidate := &employee.Employee{Fullname: "Ana Reyes", Branch: "north", Fingerprint1: "T2", Fingerprint2: "T1", RfidTag: "R1"}
		Expect(guard.CheckUnique(ctx, candidate, &id)).To(Succeed())
	})

	It("should name the holder of a colliding fingerprint", func() {
		err := guard.CheckUnique(ctx, &employee.Employee{Fullname: "Jun", Branch: "north", Fingerprint2: "T2"}, nil)

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeFingerprintConflict))
		Expect(appErr.Message).To(ContainSubstring("Ana Reyes"))
		Expect(appErr.Message).To(ContainSubstring("north"))
	})

	It("should ignore holders in other branches", func() {
		Expect(guard.CheckUnique(ctx, &employee.Employee{Fullname: "Jun", Branch: "south", Fingerprint1: "T1"}, nil)).To(Succeed())
	})

	It("should check RFID tags across branches", func() {
		err := guard.CheckUnique(ctx, &employee.Employee{Fullname: "Jun", Branch: "south", RfidTag: "R1"}, nil)

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeRfidConflict))
	})

	It("should pass storage failures through unchanged", func() {
		storageErr := errors.New("connection reset")
		repo.SetShouldFail(true, storageErr)

		err := guard.CheckUnique(ctx, &employee.Employee{Fullname: "Jun", Branch: "north", Fingerprint1: "T9"}, nil)
		Expect(err).To(MatchError(storageErr))
	})
})

var _ = Describe("Employee Service with mock repository", func() {
	var (
		ctx     context.Context
		repo    *MockRepository
		cleaner *mockLogCleaner
		service *employee.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = NewMockRepository()
		cleaner = &mockLogCleaner{}
		service = employee.NewService(repo, nil, cleaner, discardLogger(), employee.Options{})
	})

	It("should map a storage unique violation to a named conflict", func() {
		repo.AddEmployee(&employee.Employee{Fullname: "Ana Reyes", Branch: "north", Fingerprint1: "T1"})
		racing := &racingRepository{MockRepository: repo, err: employee.ErrFingerprintTaken}
		service = employee.NewService(racing, employee.NewGuard(repo), cleaner, discardLogger(), employee.Options{})

		_, err := service.Create(ctx, employee.CreateEmployeeDTO{Fullname: "Jun", Branch: "north", Fingerprint1: "T5"})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeFingerprintConflict))
	})

	It("should map a timed out store to a storage timeout", func() {
		repo.SetShouldFail(true, context.DeadlineExceeded)

		_, err := service.Get(ctx, 1)
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeStorageTimeout))
	})

	It("should not delete the employee when access log removal fails", func() {
		emp := repo.AddEmployee(&employee.Employee{Fullname: "Ana Reyes", Branch: "north"})
		cleaner.err = errors.New("disk full")

		err := service.Delete(ctx, emp.ID)
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeStorage))

		_, err = repo.GetByID(ctx, emp.ID)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should delete access logs before the employee", func() {
		emp := repo.AddEmployee(&employee.Employee{Fullname: "Ana Reyes", Branch: "north"})

		Expect(service.Delete(ctx, emp.ID)).To(Succeed())
		Expect(cleaner.calls).To(Equal([]int64{emp.ID}))
	})
})

type mockLogCleaner struct {
	calls []int64
	err   error
}

func (m *mockLogCleaner) DeleteAllForEmployee(_ context.Context, employeeID int64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.calls = append(m.calls, employeeID)
	return 0, nil
}

// racingRepository simulates a concurrent writer winning between the guard
// check and the insert.
type racingRepository struct {
	*MockRepository
	err error
}

func (r *racingRepository) Create(_ context.Context, _ *employee.Employee) error {
	return r.err
}
