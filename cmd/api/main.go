package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocheck/attendance-backend/internal/config"
	"github.com/gocheck/attendance-backend/internal/domain/attendance"
	"github.com/gocheck/attendance-backend/internal/domain/employee"
	"github.com/gocheck/attendance-backend/internal/domain/schedule"
	appHTTP "github.com/gocheck/attendance-backend/internal/handler/http"
	"github.com/gocheck/attendance-backend/internal/pkg/cron"
	"github.com/gocheck/attendance-backend/internal/pkg/database"
	"github.com/gocheck/attendance-backend/internal/pkg/jwt"
	"github.com/gocheck/attendance-backend/internal/pkg/sse"
	"github.com/gocheck/attendance-backend/internal/repository/postgresql"
	"github.com/gocheck/attendance-backend/internal/repository/sqlite"
	attendanceService "github.com/gocheck/attendance-backend/internal/service/attendance"
)

var version = "dev"

// repositories is the storage backend selected by DB_DRIVER.
type repositories struct {
	attendance     attendance.AttendanceRepository
	justifications attendance.JustificationRepository
	employees      employee.EmployeeRepository
	shifts         schedule.ShiftRepository
	close          func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	policy := attendancePolicy(cfg.Attendance)
	svc := attendanceService.NewAttendanceService(
		repos.attendance,
		repos.justifications,
		repos.employees,
		repos.shifts,
		policy,
		loc,
	)

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("init jwt: %w", err)
	}

	attendanceHandler := appHTTP.NewAttendanceHandler(svc, sse.NewHub(), nil)
	router := appHTTP.NewRouter(JWTService, attendanceHandler, appHTTP.RouterOptions{
		Env:            cfg.App.Env,
		Version:        version,
		AllowedOrigins: cfg.App.AllowedOrigins,
		LogLevel:       level,
	})

	scheduler := cron.NewScheduler()
	cron.NewAttendanceJobs(repos.attendance, repos.employees, repos.shifts, policy.ExitLateLimit, loc).
		RegisterJobs(scheduler, cfg.Attendance.AbsenceJobInterval)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env, "db_driver", cfg.Database.Driver, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		store, err := sqlite.New(cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &repositories{
			attendance:     sqlite.NewAttendanceRepository(store),
			justifications: sqlite.NewJustificationRepository(store),
			employees:      sqlite.NewEmployeeRepository(store),
			shifts:         sqlite.NewShiftRepository(store),
			close: func() {
				if err := store.Close(); err != nil {
					slog.Error("Failed to close sqlite", "error", err)
				}
			},
		}, nil

	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := postgresql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return &repositories{
			attendance:     postgresql.NewAttendanceRepository(db),
			justifications: postgresql.NewJustificationRepository(db),
			employees:      postgresql.NewEmployeeRepository(db),
			shifts:         postgresql.NewShiftRepository(db),
			close:          db.Close,
		}, nil
	}
}

// attendancePolicy applies the configured tolerances over the defaults.
func attendancePolicy(c config.AttendanceConfig) attendanceService.Policy {
	policy := attendanceService.DefaultPolicy()
	if c.EntryToleranceMinutes > 0 {
		policy.EntryTolerance = time.Duration(c.EntryToleranceMinutes) * time.Minute
	}
	if c.EntryLateLimitMinutes > 0 {
		policy.EntryLateLimit = time.Duration(c.EntryLateLimitMinutes) * time.Minute
	}
	if c.BreakToleranceMinutes > 0 {
		policy.BreakTolerance = time.Duration(c.BreakToleranceMinutes) * time.Minute
	}
	return policy
}
