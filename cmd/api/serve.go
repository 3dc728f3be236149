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

	"github.com/cmlabs-hris/attendance-bot/internal/config"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	appHTTP "github.com/cmlabs-hris/attendance-bot/internal/handler/http"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/geocoding"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/holiday"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/roster"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/sink"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/telegram"
	attendanceService "github.com/cmlabs-hris/attendance-bot/internal/service/attendance"
	authService "github.com/cmlabs-hris/attendance-bot/internal/service/auth"
	chatService "github.com/cmlabs-hris/attendance-bot/internal/service/chat"
	correlationService "github.com/cmlabs-hris/attendance-bot/internal/service/correlation"
	"github.com/cmlabs-hris/attendance-bot/internal/service/directory"
	leaveService "github.com/cmlabs-hris/attendance-bot/internal/service/leave"
	notificationService "github.com/cmlabs-hris/attendance-bot/internal/service/notification"
	reportService "github.com/cmlabs-hris/attendance-bot/internal/service/report"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	holidayTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot, the location page and the admin API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	if err := seedRoster(ctx, cfg, st); err != nil {
		return err
	}

	loc := cfg.Location()
	workHours := attendance.WorkHours{
		StartHour:   cfg.Work.StartHour,
		StartMinute: cfg.Work.StartMinute,
		EndHour:     cfg.Work.EndHour,
		EndMinute:   cfg.Work.EndMinute,
	}

	dir := directory.NewDirectory(st.members)
	if err := dir.Load(ctx); err != nil {
		return fmt.Errorf("failed to load directory: %w", err)
	}

	// Chat transport
	var (
		chatSink notification.Sink
		bot      *telegram.Client
	)
	if cfg.Telegram.Token != "" {
		bot, err = telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.Debug)
		if err != nil {
			return err
		}
		chatSink = bot.Sink()
	} else {
		slog.Warn("TELEGRAM_BOT_TOKEN not set, messages are only recorded in memory")
		chatSink = sink.NewMemorySink()
	}

	hub := sse.NewHub()
	notifier := notificationService.NewNotificationService(chatSink, hub, notificationService.Config{
		WorkerCount:    cfg.Notification.Workers,
		QueueSize:      cfg.Notification.QueueSize,
		ReviewChatID:   cfg.Telegram.ReviewChatID,
		OperatorChatID: cfg.Telegram.OperatorChatID,
	})
	defer notifier.Stop()

	var holidays attendance.HolidayChecker
	if cfg.Holiday.BaseURL != "" {
		holidays = holiday.NewCalendarChecker(cfg.Holiday.BaseURL, holidayTimeout)
	}
	geocoder := geocoding.NewGoogleGeocoder(geocoding.GoogleConfig{
		APIKey:   cfg.Geocoding.APIKey,
		Language: cfg.Geocoding.Language,
	})

	registry := correlationService.NewRegistry()
	attendanceSvc := attendanceService.NewAttendanceService(dir, registry, st.attendance, notifier, geocoder, holidays, attendanceService.Config{
		WorkHours:        workHours,
		Location:         loc,
		PublicBaseURL:    cfg.App.PublicBaseURL,
		HandshakeTimeout: cfg.Work.HandshakeTimeout,
	})

	leaveSvc := leaveService.NewRequestService(dir, st.leave, notifier)
	reportSvc := reportService.NewReportService(st.attendance, loc)

	if err := attendanceSvc.RestoreToday(ctx); err != nil {
		return err
	}
	if err := leaveSvc.RestorePending(ctx); err != nil {
		return err
	}

	chatRouter := chatService.NewRouter(dir, attendanceSvc, leaveSvc, reportSvc, notifier)

	// HTTP
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	router := appHTTP.NewRouter(appHTTP.RouterOptions{
		Env:            cfg.App.Env,
		Version:        version,
		AllowedOrigins: []string{cfg.App.PublicBaseURL},
		LogLevel:       cfg.SlogLevel(),
	}, jwtService, appHTTP.Handlers{
		Attendance:   appHTTP.NewAttendanceHandler(attendanceSvc),
		Auth:         appHTTP.NewAuthHandler(authService.NewAuthService(dir, jwtService, cfg.Admin.KeyHash)),
		Report:       appHTTP.NewReportHandler(reportSvc),
		Leave:        appHTTP.NewLeaveHandler(leaveSvc),
		Notification: appHTTP.NewNotificationHandler(notifier, jwtService),
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Scheduler
	scheduler := cron.NewScheduler(loc)
	cron.NewAttendanceJobs(dir, st.attendance, registry, notifier, workHours, loc).RegisterJobs(scheduler)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "addr", server.Addr, "public_base_url", cfg.App.PublicBaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Open handshakes are cancelled with a notice before the location
		// page goes away, so nobody waits out the full timeout.
		slog.Info("Shutting down, cancelling open location checks")
		if err := attendanceSvc.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Location checks did not finish in time", "error", err)
		}
		return server.Shutdown(shutdownCtx)
	})

	scheduler.Start()
	g.Go(func() error {
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	if bot != nil {
		poller := bot.Poller(chatRouter, cfg.Telegram.PollTimeout)
		slog.Info("Polling Telegram updates", "bot", bot.Username(), "review_chat_id", cfg.Telegram.ReviewChatID)
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Shutdown complete")
	return nil
}

// seedRoster fills an empty member store from the roster file.
func seedRoster(ctx context.Context, cfg *config.Config, st *stores) error {
	existing, err := st.members.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to read members: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	members, err := roster.Load(cfg.App.RosterFile)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		slog.Warn("Member store is empty and no roster was found", "path", cfg.App.RosterFile)
		return nil
	}
	if err := st.members.SaveAll(ctx, members); err != nil {
		return fmt.Errorf("failed to seed members: %w", err)
	}
	slog.Info("Members seeded from roster", "path", cfg.App.RosterFile, "count", len(members))
	return nil
}
