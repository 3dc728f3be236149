package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cmlabs-hris/attendance-bot/internal/config"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-bot/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-bot/internal/repository/postgresql"
	"github.com/spf13/cobra"
)

var inMemory bool

var rootCmd = &cobra.Command{
	Use:   "attendance-bot",
	Short: "Chat attendance and leave bot with location check-in",
	Long: `attendance-bot lets members clock in, clock out and request leave from a chat.
Clock actions are confirmed by a one-time location page; leave requests are
reviewed by supervisors in a review chat.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if inMemory {
			// Read by config.Load, which skips the database settings.
			return os.Setenv("IN_MEMORY", "true")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&inMemory, "in-memory", false, "Keep all data in process memory instead of PostgreSQL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(hashKeyCmd)
}

// loadConfig reads the configuration and installs the JSON logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With(
		slog.String("app", "attendance-bot"),
		slog.String("version", version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)
	return cfg, nil
}

// stores bundles the three durable logs.
type stores struct {
	members    member.MemberRepository
	attendance attendance.AttendanceRepository
	leave      leave.LeaveRequestRepository
	close      func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.App.InMemory {
		slog.Warn("Running with in-memory storage, data is lost on exit")
		return &stores{
			members:    memory.NewMemberRepository(),
			attendance: memory.NewAttendanceRepository(),
			leave:      memory.NewLeaveRequestRepository(),
			close:      func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &stores{
		members:    postgresql.NewMemberRepository(db),
		attendance: postgresql.NewAttendanceRepository(db),
		leave:      postgresql.NewLeaveRequestRepository(db),
		close:      db.Close,
	}, nil
}
