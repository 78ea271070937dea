package mqtt

import (
	"fmt"
	"strings"

	"github.com/nerrad567/brager-bridge/internal/infrastructure/config"
)

// Default topic roots, used when config leaves them empty.
const (
	// DefaultBaseTopic is the prefix for all bridge state/command topics.
	DefaultBaseTopic = "bragerbridge"

	// DefaultDiscoveryPrefix is the Home Assistant discovery prefix.
	DefaultDiscoveryPrefix = "homeassistant"
)

// Topics builds Brager Bridge MQTT topics from the configured roots.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Entity topics use the flat scheme: {base}/{devid}/{symbol}/{suffix}
//
//	topics := mqtt.NewTopics(cfg.MQTT)
//	stateTopic := topics.EntityState("BRG-1234", "TEMP_SET")
//	// Returns: "bragerbridge/BRG-1234/TEMP_SET/state"
type Topics struct {
	// Base is the prefix for entity state/command/availability topics.
	Base string

	// DiscoveryPrefix is the root Home Assistant watches for discovery
	// configs, almost always "homeassistant".
	DiscoveryPrefix string
}

// NewTopics creates a Topics builder from MQTT configuration,
// falling back to defaults for unset roots.
func NewTopics(cfg config.MQTTConfig) Topics {
	t := Topics{
		Base:            cfg.BaseTopic,
		DiscoveryPrefix: cfg.DiscoveryPrefix,
	}
	if t.Base == "" {
		t.Base = DefaultBaseTopic
	}
	if t.DiscoveryPrefix == "" {
		t.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	return t
}

// =============================================================================
// Bridge Topics
// =============================================================================

// Availability returns the bridge availability topic. The client publishes
// "online" here on connect and registers "offline" as its LWT, so Home
// Assistant marks every entity unavailable if the bridge dies.
//
// Example: bragerbridge/status
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/status", t.Base)
}

// EntityState returns the state topic for a device parameter.
//
// Example: bragerbridge/BRG-1234/TEMP_SET/state
func (t Topics) EntityState(devID, symbol string) string {
	return fmt.Sprintf("%s/%s/%s/state", t.Base, devID, symbol)
}

// EntityCommand returns the command topic Home Assistant publishes writes to.
//
// Example: bragerbridge/BRG-1234/TEMP_SET/set
func (t Topics) EntityCommand(devID, symbol string) string {
	return fmt.Sprintf("%s/%s/%s/set", t.Base, devID, symbol)
}

// EntityAttributes returns the JSON attributes topic for a device parameter.
//
// Example: bragerbridge/BRG-1234/TEMP_SET/attributes
func (t Topics) EntityAttributes(devID, symbol string) string {
	return fmt.Sprintf("%s/%s/%s/attributes", t.Base, devID, symbol)
}

// =============================================================================
// Home Assistant Discovery Topics
// =============================================================================

// Discovery returns the Home Assistant discovery config topic for an entity.
// The node segment groups all entities of one module under a single device.
//
// Example: homeassistant/sensor/bragerbridge_BRG-1234/TEMP_SET/config
func (t Topics) Discovery(platform, devID, symbol string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config",
		t.DiscoveryPrefix, platform, t.DiscoveryNode(devID), SanitizeID(symbol))
}

// DiscoveryNode returns the node_id segment used in discovery topics
// for a module.
//
// Example: bragerbridge_BRG-1234
func (t Topics) DiscoveryNode(devID string) string {
	return fmt.Sprintf("%s_%s", SanitizeID(t.Base), SanitizeID(devID))
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllEntityCommands returns a pattern matching every entity command topic.
//
// Pattern: bragerbridge/+/+/set
func (t Topics) AllEntityCommands() string {
	return fmt.Sprintf("%s/+/+/set", t.Base)
}

// AllEntityStates returns a pattern matching every entity state topic.
//
// Pattern: bragerbridge/+/+/state
func (t Topics) AllEntityStates() string {
	return fmt.Sprintf("%s/+/+/state", t.Base)
}

// =============================================================================
// Topic Parsing
// =============================================================================

// ParseEntityCommand extracts the device ID and symbol from a command topic.
// Returns ok=false for topics outside the {base}/{devid}/{symbol}/set scheme.
func (t Topics) ParseEntityCommand(topic string) (devID, symbol string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.Base+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// SanitizeID replaces characters outside [a-zA-Z0-9_-] with underscores,
// producing segments safe for discovery topics and unique IDs.
func SanitizeID(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
