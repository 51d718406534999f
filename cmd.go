package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "flavors-api",
		Short:        "Serve the flavors REST API",
		Long:         "Recreates and seeds the flavors table, then serves CRUD endpoints under /api/flavors.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(v)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("database-url", "", "Postgres connection string (env DATABASE_URL)")
	flags.String("port", "", "HTTP listen port (env PORT, default 3000)")
	flags.Int("db-max-conns", 0, "Maximum database connections (env DB_MAX_CONNS, default 1)")
	flags.String("log-level", "", "Log level: debug|info|warn|error (env LOG_LEVEL)")
	flags.String("log-format", "", "Log format: json|console (env LOG_FORMAT)")
	flags.Bool("tracing", false, "Export OpenTelemetry traces over OTLP/HTTP (env TRACING_ENABLED)")
	flags.Bool("metrics", false, "Publish request metrics to CloudWatch (env METRICS_ENABLED)")

	bindFlags(v, cmd, map[string]string{
		keyDatabaseURL:    "database-url",
		keyPort:           "port",
		keyDBMaxConns:     "db-max-conns",
		keyLogLevel:       "log-level",
		keyLogFormat:      "log-format",
		keyTracingEnabled: "tracing",
		keyMetricsEnabled: "metrics",
	})

	return cmd
}

// bindFlags binds each config key to its flag. A flag only wins over the
// environment when it was set explicitly.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		_ = v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
}
