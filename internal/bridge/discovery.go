package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/brager-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/brager-bridge/internal/param"
)

// State payload conventions shared between discovery configs and the
// runtime's state publisher. Home Assistant matches these exactly.
const (
	statePayloadOn    = "ON"
	statePayloadOff   = "OFF"
	statePayloadPress = "PRESS"
)

// discoveryDevice is the HA device registry block grouping all entities
// of one module under a single device.
type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// discoveryConfig is the Home Assistant MQTT discovery payload. One struct
// covers all six platforms; omitempty keeps irrelevant fields out of the
// published JSON.
type discoveryConfig struct {
	Name     string `json:"name"`
	UniqueID string `json:"unique_id"`
	ObjectID string `json:"object_id,omitempty"`

	StateTopic   string `json:"state_topic,omitempty"`
	CommandTopic string `json:"command_topic,omitempty"`

	AvailabilityTopic   string `json:"availability_topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`

	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`

	// number
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
	Mode string   `json:"mode,omitempty"`

	// select
	Options []string `json:"options,omitempty"`

	// binary_sensor / switch
	PayloadOn  string `json:"payload_on,omitempty"`
	PayloadOff string `json:"payload_off,omitempty"`
	StateOn    string `json:"state_on,omitempty"`
	StateOff   string `json:"state_off,omitempty"`

	// button
	PayloadPress string `json:"payload_press,omitempty"`

	Device discoveryDevice `json:"device"`
}

// DiscoveryMessage is one retained config publish: topic plus payload.
type DiscoveryMessage struct {
	Topic   string
	Payload []byte
}

// BuildDiscovery renders the Home Assistant discovery config for one
// descriptor. The module metadata fills the device registry block so all
// of a module's entities group under one HA device.
func BuildDiscovery(descriptor *param.Descriptor, module ModuleMeta, topics mqtt.Topics) (DiscoveryMessage, error) {
	uniqueID := strings.ToLower(fmt.Sprintf("%s_%s_%s",
		mqtt.SanitizeID(topics.Base), mqtt.SanitizeID(descriptor.DevID), mqtt.SanitizeID(descriptor.Symbol)))

	deviceName := module.Title
	if deviceName == "" {
		deviceName = module.Name
	}
	if deviceName == "" {
		deviceName = descriptor.DevID
	}

	cfg := discoveryConfig{
		Name:                descriptor.DisplayName(),
		UniqueID:            uniqueID,
		ObjectID:            uniqueID,
		AvailabilityTopic:   topics.Availability(),
		PayloadAvailable:    "online",
		PayloadNotAvailable: "offline",
		Device: discoveryDevice{
			Identifiers:  []string{topics.DiscoveryNode(descriptor.DevID)},
			Name:         deviceName,
			Model:        module.Name,
			Manufacturer: "Brager",
			SWVersion:    module.Version,
		},
	}

	stateTopic := topics.EntityState(descriptor.DevID, descriptor.Symbol)
	commandTopic := topics.EntityCommand(descriptor.DevID, descriptor.Symbol)

	switch descriptor.Platform {
	case param.PlatformSensor:
		cfg.StateTopic = stateTopic
		cfg.UnitOfMeasurement = descriptor.Unit

	case param.PlatformBinarySensor:
		cfg.StateTopic = stateTopic
		cfg.PayloadOn = statePayloadOn
		cfg.PayloadOff = statePayloadOff

	case param.PlatformNumber:
		cfg.StateTopic = stateTopic
		cfg.CommandTopic = commandTopic
		cfg.UnitOfMeasurement = descriptor.Unit
		cfg.Min = descriptor.Min
		cfg.Max = descriptor.Max
		cfg.Mode = "box"

	case param.PlatformSelect:
		cfg.StateTopic = stateTopic
		cfg.CommandTopic = commandTopic
		cfg.Options = descriptor.Options

	case param.PlatformSwitch:
		cfg.StateTopic = stateTopic
		cfg.CommandTopic = commandTopic
		cfg.PayloadOn = statePayloadOn
		cfg.PayloadOff = statePayloadOff
		cfg.StateOn = statePayloadOn
		cfg.StateOff = statePayloadOff

	case param.PlatformButton:
		cfg.CommandTopic = commandTopic
		cfg.PayloadPress = statePayloadPress

	default:
		return DiscoveryMessage{}, fmt.Errorf("%w: %s has platform %q", ErrUnknownEntity, descriptor.Key, descriptor.Platform)
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return DiscoveryMessage{}, fmt.Errorf("encoding discovery for %s: %w", descriptor.Key, err)
	}

	return DiscoveryMessage{
		Topic:   topics.Discovery(string(descriptor.Platform), descriptor.DevID, descriptor.Symbol),
		Payload: payload,
	}, nil
}
