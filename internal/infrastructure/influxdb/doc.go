// Package influxdb provides InfluxDB connectivity for Brager Bridge.
//
// It wraps the official influxdb-client-go v2 library with bridge-specific
// patterns for connection management, parameter recording, and health
// monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Parameter value history (temperatures, setpoints, pump states)
//   - Bridge throughput counters
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "bragerbridge",
//	    Bucket:  "parameters",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a parameter reading
//	client.WriteParameterValue("BRG-1234", "BOILER_TEMP", "P4", 61.5)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency parameter updates.
package influxdb
