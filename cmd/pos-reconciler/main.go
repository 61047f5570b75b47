package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"github.com/openretail/pos-reconciler/internal/blobstore"
	"github.com/openretail/pos-reconciler/internal/config"
	"github.com/openretail/pos-reconciler/internal/dedup"
	"github.com/openretail/pos-reconciler/internal/ingest"
	"github.com/openretail/pos-reconciler/internal/logging"
	"github.com/openretail/pos-reconciler/internal/metrics"
	"github.com/openretail/pos-reconciler/internal/reconcile"
	"github.com/openretail/pos-reconciler/internal/registry"
	"github.com/openretail/pos-reconciler/internal/sink"
	"github.com/openretail/pos-reconciler/internal/vocab"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(logging.Config{Format: cfg.Logging.Format, Level: cfg.Logging.Level})
	log := slog.Default()

	m := metrics.Init("")
	if cfg.Metrics.Enabled {
		mlog := logging.Component("metrics")
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Address); err != nil {
				mlog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	store, err := blobstore.New(blobstore.Config{
		Backend:    cfg.Storage.Backend,
		LocalDir:   cfg.Storage.LocalDir,
		GCSBucket:  cfg.Storage.GCSBucket,
		S3Bucket:   cfg.Storage.S3Bucket,
		S3Endpoint: cfg.Storage.S3Endpoint,
		S3Region:   cfg.Storage.S3Region,
		Prefix:     cfg.Storage.Prefix,
	})
	if err != nil {
		log.Error("failed to create blob store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	v := vocab.Default()
	if cfg.Vocab.Path != "" {
		v, err = vocab.Load(cfg.Vocab.Path)
		if err != nil {
			log.Error("failed to load vocabulary", "path", cfg.Vocab.Path, "error", err)
			os.Exit(1)
		}
	}

	reg := registry.New(store, registry.Keys{
		Locations: cfg.Keys.LocationsKey,
		Products:  cfg.Keys.ProductsKey,
		Counters:  cfg.Keys.CountersKey,
	}, log)

	var filter *dedup.Filter
	if cfg.Dedup.Enabled {
		filter = dedup.NewFilter(store, dedup.Config{
			HashPrefix:      cfg.Keys.HashPrefix,
			ProcessedPrefix: cfg.Keys.ProcessedPrefix,
			FailOpen:        cfg.Dedup.FailOpen,
			CompressAudit:   cfg.Dedup.CompressAudit,
		}, log)
	}

	var out reconcile.Sink
	switch cfg.Run.OutputFormat {
	case "parquet":
		out = sink.NewParquetSink(store, cfg.Keys.OutputPrefix, log)
	default:
		out = sink.NewCSVSink(store, cfg.Keys.OutputPrefix, log)
	}

	orch := reconcile.New(reg, out, filter, v, log)

	switch cfg.Run.Mode {
	case "lambda":
		lambda.Start(func(ctx context.Context, event events.SQSEvent) error {
			// Each delivery gets a fresh artifact name from its invocation id.
			return runInvocation(ctx, orch, m, "", func(log *slog.Logger) ([]ingest.OrderRecord, error) {
				return ingest.ParseDeliveries(event.Records, log), nil
			})
		})
	default:
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			sig := <-ch
			log.Info("received signal, shutting down", "signal", sig.String())
			cancel()
		}()

		if cfg.Run.InputKey == "" {
			log.Error("INPUT_KEY is required in local mode")
			os.Exit(1)
		}
		err := runInvocation(ctx, orch, m, artifactName(cfg.Run.InputKey), func(log *slog.Logger) ([]ingest.OrderRecord, error) {
			data, err := store.Get(ctx, cfg.Run.InputKey)
			if err != nil {
				return nil, fmt.Errorf("read input %s: %w", cfg.Run.InputKey, err)
			}
			records, skipped, err := ingest.ParseCSV(bytes.NewReader(data), log)
			if err != nil {
				return nil, err
			}
			if skipped > 0 {
				m.RecordsMalformed.Add(float64(skipped))
			}
			return records, nil
		})
		if err != nil {
			log.Error("reconciliation failed", "error", err)
			os.Exit(1)
		}
	}
}

// artifactName derives the audit-artifact name from an input key:
// "raw/orders_2025-04-28.csv" becomes "orders_2025-04-28".
func artifactName(inputKey string) string {
	return strings.TrimSuffix(path.Base(inputKey), path.Ext(inputKey))
}

// runInvocation wraps one reconciliation pass with an invocation id,
// scoped logging, and duration accounting.
func runInvocation(ctx context.Context, orch *reconcile.Orchestrator, m *metrics.Metrics, source string, load func(*slog.Logger) ([]ingest.OrderRecord, error)) error {
	invocationID := uuid.NewString()
	ctx = logging.WithInvocationID(ctx, invocationID)
	log := logging.InvocationLogger(invocationID)
	if source == "" {
		source = invocationID
	}

	start := time.Now()
	defer func() {
		m.InvocationDuration.Observe(time.Since(start).Seconds())
	}()

	records, err := load(log)
	if err != nil {
		return err
	}
	log.Info("starting reconciliation", "source", source, "records", len(records))

	res, err := orch.Run(ctx, source, records)
	if err != nil {
		return err
	}
	log.Info("reconciliation finished",
		"source", source,
		"processed", res.Processed,
		"groups", res.Groups,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}
