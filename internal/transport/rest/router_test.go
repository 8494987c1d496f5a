package rest_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/site-access/api"
	"github.com/frahmantamala/site-access/internal/access"
	"github.com/frahmantamala/site-access/internal/accesslog"
	accesslogPostgres "github.com/frahmantamala/site-access/internal/accesslog/postgres"
	"github.com/frahmantamala/site-access/internal/core/events"
	"github.com/frahmantamala/site-access/internal/employee"
	employeePostgres "github.com/frahmantamala/site-access/internal/employee/postgres"
	"github.com/frahmantamala/site-access/internal/errorlog"
	errorlogPostgres "github.com/frahmantamala/site-access/internal/errorlog/postgres"
	"github.com/frahmantamala/site-access/internal/testutil"
	"github.com/frahmantamala/site-access/internal/transport"
	"github.com/frahmantamala/site-access/internal/transport/middleware"
	"github.com/frahmantamala/site-access/internal/transport/rest"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Router", func() {
	var (
		db     *gorm.DB
		bus    *events.EventBus
		router *chi.Mux
	)

	call := func(method, path, body string) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(io.Discard, nil))

		db, err = testutil.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(testutil.Close, db)
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())

		employeeRepo := employeePostgres.NewEmployeeRepository(db)
		accessLogRepo := accesslogPostgres.NewAccessLogRepository(db)
		bus = events.NewEventBus(slogger)
		DeferCleanup(bus.Wait)

		errorLogs := errorlog.NewService(errorlogPostgres.NewErrorLogRepository(testutil.SQLX(db)), slogger, 2*time.Second)
		errorLogs.Subscribe(bus)
		employees := employee.NewService(employeeRepo, employee.NewGuard(employeeRepo), accessLogRepo, slogger, employee.Options{StorageTimeout: 2 * time.Second})
		verifier := access.NewVerifier(employeeRepo, accessLogRepo, bus, slogger, 2*time.Second)

		doc, err := api.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		validator, err := middleware.OpenAPIValidator(doc, slogger)
		Expect(err).NotTo(HaveOccurred())

		base := transport.NewBaseHandler(slogger)
		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, sqlDB, rest.Handlers{
			Access:    access.NewHandler(base, verifier),
			Employee:  employee.NewHandler(base, employees),
			AccessLog: accesslog.NewHandler(base, accesslog.NewService(accessLogRepo, slogger, 2*time.Second)),
			ErrorLog:  errorlog.NewHandler(base, errorLogs),
		}, rest.RouterOptions{
			AllowedOrigins: "*",
			Spec:           api.Spec,
			Validator:      validator,
		}, slogger)
	})

	It("should answer ping and health", func() {
		Expect(call(http.MethodGet, "/api/v1/ping", "").Code).To(Equal(http.StatusOK))

		w := call(http.MethodGet, "/api/v1/health", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var health rest.HealthResponse
		Expect(json.NewDecoder(w.Body).Decode(&health)).To(Succeed())
		Expect(health.Status).To(Equal(rest.HealthHealthy))
		Expect(health.Components).To(HaveKey("database"))
	})

	It("should report unhealthy when the database is gone", func() {
		testutil.Close(db)

		w := call(http.MethodGet, "/api/v1/health", "")
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should serve the API document", func() {
		w := call(http.MethodGet, "/openapi.yml", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("Site Access API"))
	})

	It("should carry a trace id on every response", func() {
		w := call(http.MethodGet, "/api/v1/ping", "")
		Expect(w.Header().Get(middleware.TraceHeader)).NotTo(BeEmpty())
	})

	It("should enroll, verify and audit an employee end to end", func() {
		w := call(http.MethodPost, "/api/v1/employees", `{"fullname":"Ana Reyes","branch":"north","role":"Engineer","fingerprint1":"T1","rfid_tag":"R1"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		var created employee.EmployeeResponse
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())

		w = call(http.MethodGet, "/api/v1/access/rfid/R1", "")
		Expect(w.Code).To(Equal(http.StatusOK))

		w = call(http.MethodPost, "/api/v1/access/verify", `{"rfid_tag":"R1","fingerprint":"T1"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		var verdict access.VerifyResponse
		Expect(json.NewDecoder(w.Body).Decode(&verdict)).To(Succeed())
		Expect(verdict.Granted).To(BeTrue())
		Expect(verdict.Employee.Fullname).To(Equal("Ana Reyes"))

		w = call(http.MethodPost, "/api/v1/access/verify", `{"rfid_tag":"R1","fingerprint":"T2"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(w.Body).Decode(&verdict)).To(Succeed())
		Expect(verdict.Granted).To(BeFalse())
		Expect(verdict.Reason).To(Equal(access.ReasonFingerprintMismatch))

		w = call(http.MethodGet, fmt.Sprintf("/api/v1/employees/%d/access-logs", created.ID), "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var history accesslog.HistoryResponse
		Expect(json.NewDecoder(w.Body).Decode(&history)).To(Succeed())
		Expect(history.Total).To(Equal(int64(1)))

		w = call(http.MethodGet, "/api/v1/employees/count", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"count":1`))

		Expect(call(http.MethodDelete, fmt.Sprintf("/api/v1/employees/%d", created.ID), "").Code).To(Equal(http.StatusNoContent))

		w = call(http.MethodPost, "/api/v1/access/verify", `{"rfid_tag":"R1","fingerprint":"T1"}`)
		Expect(json.NewDecoder(w.Body).Decode(&verdict)).To(Succeed())
		Expect(verdict.Reason).To(Equal(access.ReasonRfidNotFound))
	})

	It("should reject schema violations before they reach a handler", func() {
		w := call(http.MethodPost, "/api/v1/access/verify", `{"rfid_tag":"R1"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("VALIDATION_FAILED"))

		w = call(http.MethodPost, "/api/v1/employees", `{"fullname":"Ana Reyes"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list and clear error logs", func() {
		w := call(http.MethodGet, "/api/v1/error-logs", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"entries":[]`))

		w = call(http.MethodDelete, "/api/v1/error-logs", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"deleted":0`))
	})
})
