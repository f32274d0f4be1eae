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

	"github.com/cmlabs-hris/hris-timesheet-go/internal/config"
	appHTTP "github.com/cmlabs-hris/hris-timesheet-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-timesheet-go/internal/service/attendance"
)

const version = "v1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := cfg.DatabaseURL()
	if err := database.RunMigrations(dsn); err != nil {
		return fmt.Errorf("error running migrations: %w", err)
	}

	db, err := database.NewPostgreSQLDB(dsn, int32(cfg.Database.MaxConns))
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	timeRecordRepo := postgresql.NewTimeRecordRepository(db)
	timeEventRepo := postgresql.NewTimeEventRepository(db)
	scheduleRepo := postgresql.NewScheduleRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)

	attendanceSvc := attendanceService.NewAttendanceService(
		timeRecordRepo,
		timeEventRepo,
		scheduleRepo,
		employeeRepo,
		attendanceService.Options{
			Policy:   cfg.Policy(),
			Location: cfg.Location(),
			Workers:  cfg.Timesheet.Workers,
		},
	)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	hub := sse.NewHub(32)
	tracker := appHTTP.NewRunTracker(hub, 100)
	timesheetHandler := appHTTP.NewTimesheetHandler(ctx, attendanceSvc, JWTService, tracker, hub)

	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		AllowedOrigins: cfg.App.AllowedOrigins,
		Env:            cfg.App.Env,
		Version:        version,
		LogLevel:       cfg.SlogLevel(),
	}, JWTService, timesheetHandler)

	if cfg.Cron.Enabled {
		scheduler := cron.NewScheduler(ctx)
		timesheetJobs := cron.NewTimesheetJobs(attendanceSvc, cfg.Location(), cfg.Cron.RecomputeHour, cfg.Cron.PreviousMonthDays, nil)
		timesheetJobs.RegisterJobs(scheduler)
		scheduler.Start()
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
