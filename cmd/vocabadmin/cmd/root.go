package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sessionredis "github.com/jmcleod/vocabadmin/session/redis"
)

var (
	storeKind   string
	dataDir     string
	redisAddr   string
	redisPrefix string
	postgresDSN string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "vocabadmin",
	Short: "Vocabulary platform admin dashboard",
	Long: `An administration console for a vocabulary-learning platform: sign in,
browse vocabulary books and manage admin users.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&storeKind, "store", storeBbolt, "Session store: bbolt, redis, postgres, memory or none")
	flags.StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	flags.StringVar(&redisAddr, "redis-addr", "localhost:6379", "Redis address for --store=redis")
	flags.StringVar(&redisPrefix, "redis-prefix", sessionredis.DefaultPrefix, "Key and channel prefix for --store=redis")
	flags.StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string for --store=postgres")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}
