package main

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/viant/dbsync/checksum"
	"github.com/viant/dbsync/config"
	"github.com/viant/dbsync/reconcile"
	"github.com/viant/dbsync/sqlexec"
	"github.com/viant/dbsync/sqlexec/duckdb"
	"github.com/viant/dbsync/sqlexec/sqlite"
	"github.com/viant/dbsync/table"
)

func newSyncCmd() *cobra.Command {
	var (
		configPath  string
		dryRun      bool
		logLevel    string
		pretty      bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a sync job from a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dryRun {
				cfg.DryRun = true
			}
			logger := newLogger(logLevel, pretty)
			return runSync(cmd, cfg, logger, metricsAddr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dbsync.yaml", "path to the job configuration file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report mismatching chunks without writing to the target")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "human-readable log output")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for prometheus metrics, e.g. :9090 (disabled when empty)")
	return cmd
}

func runSync(cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger, metricsAddr string) error {
	source, err := openEndpoint(cfg.Source)
	if err != nil {
		return err
	}
	defer func() { _ = source.DB().Close() }()
	target, err := openEndpoint(cfg.Target)
	if err != nil {
		return err
	}
	defer func() { _ = target.DB().Close() }()

	var metrics *reconcile.Metrics
	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = reconcile.NewMetrics(registry)
		go serveMetrics(metricsAddr, registry, logger)
	}

	syncer := reconcile.New(source, target, logger, reconcile.Options{
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.Workers,
		DryRun:    cfg.DryRun,
		Metrics:   metrics,
	})

	for _, tbl := range cfg.Tables {
		spec := reconcile.TableSpec{
			Schema:     tbl.Schema,
			Name:       tbl.Name,
			SourceHash: tbl.SourceHash,
			TargetHash: tbl.TargetHash,
			Columns:    tbl.Columns,
		}
		if tbl.Filter != nil {
			filter, err := table.NewFilter(tbl.Filter.Where, tbl.Filter.Args...)
			if err != nil {
				return fmt.Errorf("table %s: %w", tbl.Name, err)
			}
			spec.Filter = filter
		}
		summary, err := syncer.SyncTable(cmd.Context(), spec)
		if err != nil {
			return fmt.Errorf("table %s: %w", tbl.Name, err)
		}
		printSummary(cmd, summary, cfg.DryRun)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *reconcile.Summary, dryRun bool) {
	switch {
	case s.Skipped:
		cmd.Printf("%s: skipped (no primary key)\n", s.Table)
	case dryRun:
		cmd.Printf("%s: %d/%d chunks out of sync (dry run)\n", s.Table, s.Mismatched, s.Chunks)
	default:
		cmd.Printf("%s: %d/%d chunks repaired, %d rows upserted, %d rows deleted\n",
			s.Table, s.Mismatched, s.Chunks, s.RowsUpserted, s.RowsDeleted)
	}
}

// openEndpoint opens one side of the job. The xx64 fingerprint function is
// registered before the first SQLite connection so default hash expressions
// work out of the box.
func openEndpoint(ep config.Endpoint) (*sqlexec.Session, error) {
	var (
		db      *sql.DB
		dialect sqlexec.Dialect
		err     error
	)
	switch ep.Driver {
	case "sqlite":
		checksum.Register()
		db, err = sqlite.Open(ep.DSN)
		dialect = sqlite.New()
	case "duckdb":
		db, err = duckdb.Open(ep.DSN)
		dialect = duckdb.New()
	default:
		return nil, fmt.Errorf("unsupported driver %q", ep.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s endpoint: %w", ep.Driver, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging %s endpoint: %w", ep.Driver, err)
	}
	return sqlexec.New(db, dialect), nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
