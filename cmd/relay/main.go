// Gray Logic Relay - TCP to MQTT request/response bridge
//
// The relay accepts short authenticated JSON commands on a TCP socket,
// publishes them to an MQTT broker and, for request topics, waits a bounded
// time for the device's reply before answering the client.
//
// Clients that cannot speak MQTT use it to trigger device actions:
//   - one request per connection, answered with one line of text
//   - credentials checked against a local users file
//   - every request recorded to the SQLite audit trail
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-relay/internal/api"
	"github.com/nerrad567/gray-logic-relay/internal/audit"
	"github.com/nerrad567/gray-logic-relay/internal/auth"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-relay/internal/listener"
	"github.com/nerrad567/gray-logic-relay/internal/relay"
	"github.com/nerrad567/gray-logic-relay/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Relay",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Credentials are loaded once; the store is never reloaded while running.
	store, err := auth.LoadStore(cfg.Users.Path)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	log.Info("users loaded", "path", cfg.Users.Path, "users", store.Len())

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// The recorder must finish draining before the deferred database close.
	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, log)
	recorderCtx, stopRecorder := context.WithCancel(ctx)
	recorder.Start(recorderCtx)
	defer func() {
		stopRecorder()
		<-recorder.Done()
	}()

	counters := relay.NewCounters()
	sinks := relay.MultiSink{recorder, counters}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sinks = append(sinks, relay.NewMetricsSink(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	dispatcher, err := relay.NewDispatcher(relay.Deps{
		Auth:      auth.NewVerifier(store),
		Publisher: mqtt.NewPublisher(cfg.MQTT),
		Waiter:    mqtt.NewWaiter(cfg.MQTT),
		Events:    sinks,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	log.Info("MQTT relay configured",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"tls", cfg.MQTT.TLS.Enabled,
		"reply_timeout", mqtt.DefaultReplyTimeout.String(),
	)

	if cfg.API.Enabled {
		apiServer, apiErr := startAPI(ctx, cfg, log, counters, auditRepo, db, influxClient)
		if apiErr != nil {
			return apiErr
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	ln, err := listener.Listen(cfg.Socket, dispatcher, log)
	if err != nil {
		return fmt.Errorf("starting listener: %w", err)
	}
	defer ln.Close() //nolint:errcheck // Serve closes it on shutdown; this covers early returns

	log.Info("initialisation complete, accepting requests", "address", ln.Addr().String())

	if serveErr := ln.Serve(ctx); serveErr != nil {
		return fmt.Errorf("serving: %w", serveErr)
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("Gray Logic Relay stopped")
	return nil
}

// getConfigPath returns the config file path from RELAY_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv("RELAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startAPI creates and starts the status API server.
func startAPI(ctx context.Context, cfg *config.Config, log *logging.Logger, counters *relay.Counters,
	events audit.Repository, db *database.DB, influxClient *influxdb.Client) (*api.Server, error) {
	deps := api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Counters: counters,
		Events:   events,
		DB:       db,
		Version:  version,
	}
	// A nil *influxdb.Client must not become a non-nil interface.
	if influxClient != nil {
		deps.InfluxDB = influxClient
	}

	server, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return server, nil
}
