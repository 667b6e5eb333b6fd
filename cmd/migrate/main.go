package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/store"
)

var dbURL string

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Apply or roll back the wayfinder database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		return run("up", func(m *migrate.Migrate) error {
			if steps > 0 {
				return m.Steps(steps)
			}
			return m.Up()
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (all of them unless --steps is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		return run("down", func(m *migrate.Migrate) error {
			if steps > 0 {
				return m.Steps(-steps)
			}
			return m.Down()
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("version", func(*migrate.Migrate) error { return nil })
	},
}

var forceCmd = &cobra.Command{
	Use:   "force VERSION",
	Short: "Set the schema version without running migrations and clear the dirty flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return run("force", func(m *migrate.Migrate) error { return m.Force(v) })
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database URL (default: $DATABASE_URL or built from DB_* variables)")
	upCmd.Flags().Int("steps", 0, "number of migrations to apply (0 = all)")
	downCmd.Flags().Int("steps", 0, "number of migrations to roll back (0 = all)")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd, forceCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(action string, fn func(*migrate.Migrate) error) error {
	m, err := store.NewMigrator(resolveDSN())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration %s failed: %w", action, err)
	}

	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		fmt.Printf("migration %s complete (no version applied)\n", action)
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		fmt.Printf("migration %s complete (version: %d, dirty: %v)\n", action, v, dirty)
	}
	return nil
}

func resolveDSN() string {
	if dbURL != "" {
		return dbURL
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	port, err := strconv.Atoi(envOrDefault("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	return config.DatabaseConfig{
		Host:     envOrDefault("DB_HOST", "localhost"),
		Port:     port,
		User:     envOrDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     envOrDefault("DB_NAME", "travel_db"),
		SSLMode:  envOrDefault("DB_SSLMODE", "disable"),
	}.DSN()
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
