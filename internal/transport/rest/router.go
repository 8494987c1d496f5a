package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/site-access/internal/access"
	"github.com/frahmantamala/site-access/internal/accesslog"
	"github.com/frahmantamala/site-access/internal/employee"
	"github.com/frahmantamala/site-access/internal/errorlog"
	"github.com/frahmantamala/site-access/internal/transport/middleware"
	"github.com/frahmantamala/site-access/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

const specPath = "/openapi.yml"

type Handlers struct {
	Access    *access.Handler
	Employee  *employee.Handler
	AccessLog *accesslog.Handler
	ErrorLog  *errorlog.Handler
}

type RouterOptions struct {
	AllowedOrigins string
	// Spec is the raw OpenAPI document served at /openapi.yml.
	Spec []byte
	// Validator, when set, checks /api/v1 requests against the document.
	Validator func(http.Handler) http.Handler
}

func RegisterAllRoutes(router chi.Router, db *sql.DB, handlers Handlers, opts RouterOptions, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	if len(opts.Spec) > 0 {
		router.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(opts.Spec)
		})
		router.Handle("/swagger/*", swagger.Handler(specPath))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if opts.Validator != nil {
			r.Use(opts.Validator)
		}

		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if handlers.Access != nil {
			r.Route("/access", func(ar chi.Router) {
				ar.Post("/verify", handlers.Access.Verify)
				ar.Get("/rfid/{tag}", handlers.Access.CheckRfid)
			})
		}

		if handlers.Employee != nil {
			r.Route("/employees", func(er chi.Router) {
				er.Post("/", handlers.Employee.CreateEmployee)
				er.Get("/", handlers.Employee.ListEmployees)
				er.Get("/count", handlers.Employee.CountEmployees)
				er.Get("/{id}", handlers.Employee.GetEmployee)
				er.Put("/{id}", handlers.Employee.UpdateEmployee)
				er.Delete("/{id}", handlers.Employee.DeleteEmployee)

				if handlers.AccessLog != nil {
					er.Get("/{id}/access-logs", handlers.AccessLog.GetEmployeeAccessLogs)
				}
			})
		}

		if handlers.ErrorLog != nil {
			r.Get("/error-logs", handlers.ErrorLog.ListErrorLogs)
			r.Delete("/error-logs", handlers.ErrorLog.ClearErrorLogs)
		}
	})
}
