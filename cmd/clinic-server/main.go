package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/scheduling"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
	"github.com/clinicdesk/clinicdesk/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-server",
		Short:        "Clinic console scheduling API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(slotsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}
	if cfg.ResolvedAuthMode() == config.AuthDevelopment {
		logger.Warn().Msg("AUTH_MODE=development: every request runs as admin, do not expose this server")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}
	defer a.Close()

	if cfg.SeedDemo {
		n, err := seedDemo(ctx, a.store, time.Now())
		if err != nil {
			logger.Warn().Err(err).Msg("demo seed incomplete")
		}
		logger.Info().Int("appointments", n).Msg("seeded demo appointments")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = a.echo.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = a.echo.Start(addr)
		}
		if err != nil && !isServerClosed(err) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the postgres store",
	}

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator) error) error {
		dir, _ := cmd.Flags().GetString("dir")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for migrations")
		}

		ctx := context.Background()
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return err
		}
		defer pool.Close()

		return fn(ctx, db.NewMigrator(pool, migrationFiles(dir)))
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrationStatus(cmd, statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func migrationFiles(dir string) fs.FS {
	if dir == "" {
		return migrations.Files
	}
	return os.DirFS(dir)
}

func printMigrationStatus(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print slot availability for a doctor and date from a demo store",
		Long: "Builds an in-memory store from the configured slot catalog and roster, " +
			"optionally seeds the demo appointments, and prints the availability grid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			doctorID, _ := cmd.Flags().GetString("doctor")
			date, _ := cmd.Flags().GetString("date")
			seed, _ := cmd.Flags().GetBool("seed")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := newMemoryStore(cfg)
			if err != nil {
				return err
			}
			return printSlots(cmd, store, doctorID, date, seed)
		},
	}
	cmd.Flags().String("doctor", "", "Doctor id (required)")
	cmd.Flags().String("date", time.Now().Format(scheduling.DateLayout), "Date as YYYY-MM-DD")
	cmd.Flags().Bool("seed", true, "Seed demo appointments before printing")
	_ = cmd.MarkFlagRequired("doctor")
	return cmd
}

func printSlots(cmd *cobra.Command, store *scheduling.Store, doctorID, date string, seed bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if seed {
		day, err := time.Parse(scheduling.DateLayout, date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", date, err)
		}
		if _, err := seedDemo(ctx, store, day); err != nil {
			return err
		}
	}

	slots, err := store.Availability(ctx, doctorID, date)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Availability for %s on %s\n", doctorID, date)
	for _, s := range slots {
		fmt.Fprintf(out, "%-10s %s\n", s.Time, s.Status)
	}
	return nil
}
