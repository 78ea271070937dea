// Package logging wraps log/slog for the bridge.
//
// Every record carries service and version attributes; format (json or
// text), level and destination come from the logging section of
// config.yaml. Component loggers tag a subsystem:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("mqtt").Info("connected", "broker", addr)
//
// Never log credentials or tokens.
package logging
