package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/site-access/api"
	"github.com/frahmantamala/site-access/internal"
	"github.com/frahmantamala/site-access/internal/access"
	"github.com/frahmantamala/site-access/internal/accesslog"
	accesslogPostgres "github.com/frahmantamala/site-access/internal/accesslog/postgres"
	"github.com/frahmantamala/site-access/internal/core/events"
	"github.com/frahmantamala/site-access/internal/employee"
	employeePostgres "github.com/frahmantamala/site-access/internal/employee/postgres"
	"github.com/frahmantamala/site-access/internal/errorlog"
	errorlogPostgres "github.com/frahmantamala/site-access/internal/errorlog/postgres"
	"github.com/frahmantamala/site-access/internal/transport"
	"github.com/frahmantamala/site-access/internal/transport/middleware"
	"github.com/frahmantamala/site-access/internal/transport/rest"
	"github.com/frahmantamala/site-access/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server serving reader verification and the admin API`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Bus        *events.EventBus
	Employees  *employee.Service
	AccessLogs *accesslog.Service
	Verifier   *access.Verifier
	ErrorLogs  *errorlog.Service
	Pruner     *errorlog.Pruner
	Router     *chi.Mux
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	defer stopPrune()
	deps.Pruner.Start(pruneCtx)

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

// close stops background work, drains in-flight event handlers and then
// releases the database.
func (d *Dependencies) close() {
	d.Pruner.Stop()
	d.Bus.Wait()
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func setupRoutes(deps *Dependencies) error {
	doc, err := api.Load(context.Background())
	if err != nil {
		return err
	}
	validator, err := middleware.OpenAPIValidator(doc, deps.Logger)
	if err != nil {
		return fmt.Errorf("failed to build request validator: %w", err)
	}

	base := transport.NewBaseHandler(deps.Logger)
	handlers := rest.Handlers{
		Access:    access.NewHandler(base, deps.Verifier),
		Employee:  employee.NewHandler(base, deps.Employees),
		AccessLog: accesslog.NewHandler(base, deps.AccessLogs),
		ErrorLog:  errorlog.NewHandler(base, deps.ErrorLogs),
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, handlers, rest.RouterOptions{
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		Spec:           api.Spec,
		Validator:      validator,
	}, deps.Logger)
	return nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db, lg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	bus := events.NewEventBus(lg.With("component", "event_bus"))

	employeeRepo := employeePostgres.NewEmployeeRepository(gormDB)
	accessLogRepo := accesslogPostgres.NewAccessLogRepository(gormDB)
	errorLogRepo := errorlogPostgres.NewErrorLogRepository(db)

	errorLogs := errorlog.NewService(errorLogRepo, lg.With("component", "error_log"), config.Verification.StorageTimeout)
	errorLogs.Subscribe(bus)

	employees := employee.NewService(
		employeeRepo,
		employee.NewGuard(employeeRepo),
		accessLogRepo,
		lg.With("component", "employee"),
		employee.Options{
			DefaultProfileImage: config.Enrollment.DefaultProfileImage,
			StorageTimeout:      config.Enrollment.StorageTimeout,
		},
	)

	verifier := access.NewVerifier(employeeRepo, accessLogRepo, bus, lg.With("component", "access_verifier"), config.Verification.StorageTimeout)

	return &Dependencies{
		Config:     config,
		DB:         db,
		Gorm:       gormDB,
		Bus:        bus,
		Employees:  employees,
		AccessLogs: accesslog.NewService(accessLogRepo, lg.With("component", "access_log"), config.Verification.StorageTimeout),
		Verifier:   verifier,
		ErrorLogs:  errorLogs,
		Pruner:     errorlog.NewPruner(errorLogs, config.ErrorLog.Retention(), config.ErrorLog.PruneInterval, lg.With("component", "error_log_pruner")),
		Router:     chi.NewRouter(),
		Logger:     lg,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers gorm over the sqlx pool so both share one set of
// connections.
func initGorm(db *sqlx.DB, lg *slog.Logger) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.New(
			slog.NewLogLogger(lg.Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
}
