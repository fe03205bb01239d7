package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	envFile string
	verbose bool

	settings = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "Administer goSession profile stores and try the session manager",
	Long: `sessionctl seeds and inspects the profile stores used by goSession and runs a
scripted sign-in against an in-memory identity provider.

Every flag can also be set as SESSIONCTL_<FLAG> in the environment or in a
.env file, for example SESSIONCTL_REDIS_ADDR or SESSIONCTL_DATABASE_URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		if verbose {
			pterm.EnableDebugMessages()
		}
		return settings.BindPFlags(cmd.Flags())
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	settings.SetEnvPrefix("SESSIONCTL")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading SESSIONCTL_* variables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log manager activity to stderr")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address of the profile store")
	rootCmd.PersistentFlags().String("redis-prefix", "gs", "Redis key prefix of the profile store")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL URL; takes precedence over --redis-addr")

	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(configCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
