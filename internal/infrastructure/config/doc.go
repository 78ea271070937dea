// Package config loads and validates the bridge configuration.
//
// Values come from three layers, each overriding the last: hardcoded
// defaults, the YAML file, and BRAGERBRIDGE_* environment variables.
// Credentials (BragerOne account, broker password, InfluxDB token) are
// expected via the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.BaseTopic)
package config
