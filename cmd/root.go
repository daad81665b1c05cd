package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abhisek/anuvad/internal/config"
	"github.com/abhisek/anuvad/internal/store"
)

const defaultServerURL = "http://localhost:5000"

var rootCmd = &cobra.Command{
	Use:   "anuvad",
	Short: "Bengali to English translation tutor",
	Long:  "anuvad serves an AI translation tutor over HTTP and ships a terminal client for practising with it.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; a malformed one is not.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Audit log database (SQLite path or Postgres DSN; overrides ANUVAD_DB)")
	rootCmd.PersistentFlags().String("store-driver", "", "Audit log driver: sqlite or postgres (overrides ANUVAD_STORE_DRIVER)")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("server", "", "Server URL for client commands (overrides ANUVAD_SERVER_URL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(attemptsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads --config (if any) and applies the store flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if d, _ := cmd.Flags().GetString("store-driver"); d != "" {
		cfg.Store.Driver = d
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.DSN = p
	}
	return cfg, nil
}

// openStore opens the audit log. For SQLite an empty DSN resolves to the
// default data path.
func openStore(cfg *config.Config) (*store.Store, error) {
	dsn := cfg.Store.DSN
	if cfg.Store.Driver == store.DriverSQLite {
		if dsn == "" {
			p, err := store.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve database path: %w", err)
			}
			dsn = p
		} else if err := store.EnsureDir(dsn); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	s, err := store.Open(cfg.Store.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// openStoreFromFlags is the shortcut used by the read-only audit commands.
func openStoreFromFlags(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

// serverURL returns --server, then ANUVAD_SERVER_URL, then localhost:5000.
func serverURL(cmd *cobra.Command) string {
	if u, _ := cmd.Flags().GetString("server"); u != "" {
		return u
	}
	if u := os.Getenv("ANUVAD_SERVER_URL"); u != "" {
		return u
	}
	return defaultServerURL
}
