// Brager Bridge - BragerOne to Home Assistant MQTT bridge
//
// This is the main entry point for the bridge. It connects a BragerOne
// cloud account to a local MQTT broker, exposing every bridgeable boiler
// parameter as a Home Assistant entity via MQTT discovery.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/brager-bridge/migrations"

	"github.com/nerrad567/brager-bridge/internal/api"
	"github.com/nerrad567/brager-bridge/internal/audit"
	"github.com/nerrad567/brager-bridge/internal/bragerone"
	"github.com/nerrad567/brager-bridge/internal/bridge"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/config"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/database"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/brager-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/brager-bridge/internal/param"
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

// statsInterval is how often bridge counters are written to InfluxDB.
const statsInterval = 60 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Brager Bridge",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Authenticate against the BragerOne cloud
	client := bragerone.NewClient(cfg.BragerOne, cfg.GetRequestTimeout(), log.Component("bragerone"))
	if err := client.Login(ctx); err != nil {
		return fmt.Errorf("logging in to BragerOne: %w", err)
	}
	log.Info("BragerOne login successful", "object_id", cfg.BragerOne.ObjectID)

	// Bootstrap descriptors from the cloud, falling back to the cached
	// copy when the metadata endpoints are unavailable.
	repo := bridge.NewSQLiteRepository(db.DB)
	descriptors, modules, snapshot, err := loadDescriptors(ctx, client, repo, cfg, log)
	if err != nil {
		return err
	}
	log.Info("descriptors ready", "entities", len(descriptors), "modules", len(modules))

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the runtime and the live parameter stream
	auditRepo := audit.NewSQLiteRepository(db.DB)
	runtime := bridge.NewRuntime(bridge.Options{
		Client:      client,
		Publisher:   mqttClient,
		Topics:      mqttClient.Topics(),
		QoS:         byte(cfg.MQTT.QoS),
		Descriptors: descriptors,
		Modules:     modules,
		Recorder:    recorderFor(influxClient),
		Audit:       auditRepo,
		Logger:      log.Component("bridge"),
	})

	stream := bragerone.NewStream(cfg.BragerOne.WSURL, cfg.BragerOne.ObjectID, moduleIDs(modules), client, log.Component("stream"))
	if err := stream.Start(ctx); err != nil {
		return fmt.Errorf("starting parameter stream: %w", err)
	}
	defer func() {
		log.Info("closing parameter stream")
		stream.Close()
	}()

	if err := runtime.Start(ctx, stream.Updates(), snapshot); err != nil {
		return fmt.Errorf("starting bridge runtime: %w", err)
	}
	log.Info("bridge runtime started")

	// Start diagnostics API (optional)
	if cfg.API.Enabled {
		apiServer, err := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.Component("api"),
			Bridge:  runtime,
			Health:  healthCheckers(db, mqttClient, influxClient),
			Audit:   auditRepo,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("diagnostics API disabled")
	}

	// Periodic bridge counters to InfluxDB
	if influxClient != nil {
		go statsLoop(ctx, influxClient, runtime, cfg.Bridge.ID)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Brager Bridge stopped")
	return nil
}

// loadDescriptors runs a fresh bootstrap and persists the result, or falls
// back to the cached descriptors when the cloud metadata endpoints fail.
// With a cache fallback the prime snapshot is empty; entity states fill in
// as stream updates arrive.
func loadDescriptors(
	ctx context.Context,
	client *bragerone.Client,
	repo bridge.Repository,
	cfg *config.Config,
	log *logging.Logger,
) ([]param.Descriptor, []bridge.ModuleMeta, bragerone.PrimeSnapshot, error) {
	result, err := bridge.Bootstrap(ctx, client, cfg.BragerOne.ObjectID, cfg.BragerOne.Modules, log)
	if err == nil {
		if saveErr := repo.SaveBootstrap(ctx, result.Descriptors, result.Modules); saveErr != nil {
			log.Warn("failed to persist bootstrap result", "error", saveErr)
		}
		return result.Descriptors, result.Modules, result.Snapshot, nil
	}

	log.Warn("bootstrap failed, trying cached descriptors", "error", err)

	descriptors, cacheErr := repo.LoadDescriptors(ctx)
	if cacheErr != nil {
		return nil, nil, nil, fmt.Errorf("bootstrap failed (%w) and no usable cache: %w", err, cacheErr)
	}
	modules, cacheErr := repo.LoadModules(ctx)
	if cacheErr != nil {
		return nil, nil, nil, fmt.Errorf("loading cached modules: %w", cacheErr)
	}

	log.Info("serving cached descriptors", "entities", len(descriptors))
	return descriptors, modules, nil, nil
}

// recorderFor adapts the optional InfluxDB client to the runtime's Recorder
// interface. A nil client disables recording; a typed nil interface would
// not.
func recorderFor(client *influxdb.Client) bridge.Recorder {
	if client == nil {
		return nil
	}
	return client
}

// moduleIDs extracts the devids to subscribe the stream to.
func moduleIDs(modules []bridge.ModuleMeta) []string {
	ids := make([]string, 0, len(modules))
	for _, module := range modules {
		ids = append(ids, module.DevID)
	}
	return ids
}

// healthCheckers builds the component health map for the diagnostics API.
func healthCheckers(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) map[string]api.HealthChecker {
	checkers := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		checkers["influxdb"] = influxClient
	}
	return checkers
}

// statsLoop periodically writes bridge activity counters to InfluxDB.
func statsLoop(ctx context.Context, influxClient *influxdb.Client, runtime *bridge.Runtime, bridgeID string) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := runtime.Stats().Snapshot()
			influxClient.WriteBridgeStats(bridgeID, map[string]interface{}{
				"entities_total":   snapshot.EntitiesTotal,
				"updates_received": int64(snapshot.UpdatesReceived),
				"state_publishes":  int64(snapshot.StatePublishes),
				"writes_ok":        int64(snapshot.WritesOK),
				"writes_failed":    int64(snapshot.WritesFailed),
				"uptime_seconds":   snapshot.UptimeSeconds,
			})
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses BRAGERBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BRAGERBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
