package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/brager-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/brager-bridge/internal/param"
)

func decodeDiscovery(t *testing.T, msg DiscoveryMessage) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
		t.Fatalf("discovery payload is not valid JSON: %v", err)
	}
	return decoded
}

func TestBuildDiscoveryPerPlatform(t *testing.T) {
	topics := mqtt.NewTopics(testMQTTConfig())
	module := ModuleMeta{DevID: "BRG-1", Name: "ecoMAX", Title: "Pellet Boiler", Version: "2.1"}

	tests := []struct {
		name       string
		descriptor param.Descriptor
		wantTopic  string
		check      func(t *testing.T, payload map[string]any)
	}{
		{
			name: "sensor",
			descriptor: param.Descriptor{
				Key: "BRG-1:BOILER_TEMP", DevID: "BRG-1", Symbol: "BOILER_TEMP",
				Label: "Boiler temperature", Unit: "°C",
				PanelPath: "Boiler",
				Platform:  param.PlatformSensor,
			},
			wantTopic: "homeassistant/sensor/bragerbridge_BRG-1/BOILER_TEMP/config",
			check: func(t *testing.T, payload map[string]any) {
				if payload["name"] != "Boiler - Boiler temperature" {
					t.Errorf("name = %v", payload["name"])
				}
				if payload["state_topic"] != "bragerbridge/BRG-1/BOILER_TEMP/state" {
					t.Errorf("state_topic = %v", payload["state_topic"])
				}
				if payload["unit_of_measurement"] != "°C" {
					t.Errorf("unit_of_measurement = %v", payload["unit_of_measurement"])
				}
				if _, ok := payload["command_topic"]; ok {
					t.Error("sensor must not carry a command_topic")
				}
			},
		},
		{
			name: "binary sensor",
			descriptor: param.Descriptor{
				Key: "BRG-1:STATUS_PUMP", DevID: "BRG-1", Symbol: "STATUS_PUMP",
				Label:    "Pump running",
				Platform: param.PlatformBinarySensor,
			},
			wantTopic: "homeassistant/binary_sensor/bragerbridge_BRG-1/STATUS_PUMP/config",
			check: func(t *testing.T, payload map[string]any) {
				if payload["payload_on"] != "ON" || payload["payload_off"] != "OFF" {
					t.Errorf("payload_on/off = %v/%v", payload["payload_on"], payload["payload_off"])
				}
			},
		},
		{
			name: "number",
			descriptor: param.Descriptor{
				Key: "BRG-1:TEMP_SET", DevID: "BRG-1", Symbol: "TEMP_SET",
				Label: "Target temperature", Unit: "°C",
				Min: f64Ptr(10), Max: f64Ptr(80),
				Platform: param.PlatformNumber,
			},
			wantTopic: "homeassistant/number/bragerbridge_BRG-1/TEMP_SET/config",
			check: func(t *testing.T, payload map[string]any) {
				if payload["command_topic"] != "bragerbridge/BRG-1/TEMP_SET/set" {
					t.Errorf("command_topic = %v", payload["command_topic"])
				}
				if payload["min"] != 10.0 || payload["max"] != 80.0 {
					t.Errorf("min/max = %v/%v", payload["min"], payload["max"])
				}
				if payload["mode"] != "box" {
					t.Errorf("mode = %v", payload["mode"])
				}
			},
		},
		{
			name: "select",
			descriptor: param.Descriptor{
				Key: "BRG-1:PUMP_MODE", DevID: "BRG-1", Symbol: "PUMP_MODE",
				Label:    "Pump mode",
				Options:  []string{"Off", "Eco", "Boost"},
				Platform: param.PlatformSelect,
			},
			wantTopic: "homeassistant/select/bragerbridge_BRG-1/PUMP_MODE/config",
			check: func(t *testing.T, payload map[string]any) {
				options, ok := payload["options"].([]any)
				if !ok || len(options) != 3 || options[1] != "Eco" {
					t.Errorf("options = %v", payload["options"])
				}
			},
		},
		{
			name: "switch",
			descriptor: param.Descriptor{
				Key: "BRG-1:PUMP_ENABLE", DevID: "BRG-1", Symbol: "PUMP_ENABLE",
				Label:    "Pump enable",
				Platform: param.PlatformSwitch,
			},
			wantTopic: "homeassistant/switch/bragerbridge_BRG-1/PUMP_ENABLE/config",
			check: func(t *testing.T, payload map[string]any) {
				if payload["state_on"] != "ON" || payload["state_off"] != "OFF" {
					t.Errorf("state_on/off = %v/%v", payload["state_on"], payload["state_off"])
				}
			},
		},
		{
			name: "button",
			descriptor: param.Descriptor{
				Key: "BRG-1:RESET_ALARM", DevID: "BRG-1", Symbol: "RESET_ALARM",
				Label:    "Reset alarm",
				Platform: param.PlatformButton,
			},
			wantTopic: "homeassistant/button/bragerbridge_BRG-1/RESET_ALARM/config",
			check: func(t *testing.T, payload map[string]any) {
				if payload["payload_press"] != "PRESS" {
					t.Errorf("payload_press = %v", payload["payload_press"])
				}
				if _, ok := payload["state_topic"]; ok {
					t.Error("button must not carry a state_topic")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := BuildDiscovery(&tt.descriptor, module, topics)
			if err != nil {
				t.Fatalf("BuildDiscovery() error = %v", err)
			}
			if msg.Topic != tt.wantTopic {
				t.Errorf("Topic = %q, want %q", msg.Topic, tt.wantTopic)
			}

			payload := decodeDiscovery(t, msg)

			// Common fields for every platform.
			if payload["availability_topic"] != "bragerbridge/status" {
				t.Errorf("availability_topic = %v", payload["availability_topic"])
			}
			if payload["payload_available"] != "online" || payload["payload_not_available"] != "offline" {
				t.Errorf("availability payloads = %v/%v", payload["payload_available"], payload["payload_not_available"])
			}

			device, ok := payload["device"].(map[string]any)
			if !ok {
				t.Fatal("missing device block")
			}
			if device["name"] != "Pellet Boiler" || device["manufacturer"] != "Brager" {
				t.Errorf("device = %v", device)
			}

			tt.check(t, payload)
		})
	}
}

func TestBuildDiscoveryUniqueID(t *testing.T) {
	topics := mqtt.NewTopics(testMQTTConfig())
	descriptor := param.Descriptor{
		Key: "BRG 1:BOILER/TEMP", DevID: "BRG 1", Symbol: "BOILER/TEMP",
		Platform: param.PlatformSensor,
	}

	msg, err := BuildDiscovery(&descriptor, ModuleMeta{DevID: "BRG 1"}, topics)
	if err != nil {
		t.Fatalf("BuildDiscovery() error = %v", err)
	}
	payload := decodeDiscovery(t, msg)
	if payload["unique_id"] != "bragerbridge_brg_1_boiler_temp" {
		t.Errorf("unique_id = %v", payload["unique_id"])
	}
	// Device falls back to the devid when no metadata is known.
	device := payload["device"].(map[string]any)
	if device["name"] != "BRG 1" {
		t.Errorf("device name = %v", device["name"])
	}
}

func TestBuildDiscoveryUnknownPlatform(t *testing.T) {
	topics := mqtt.NewTopics(testMQTTConfig())
	descriptor := param.Descriptor{Key: "BRG-1:X", DevID: "BRG-1", Symbol: "X"}

	_, err := BuildDiscovery(&descriptor, ModuleMeta{}, topics)
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("BuildDiscovery() error = %v, want ErrUnknownEntity", err)
	}
}
