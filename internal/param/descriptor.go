package param

import (
	"fmt"
	"strings"
)

// Platform identifies the entity kind a descriptor is exposed as.
type Platform string

// Recognised entity platforms.
const (
	PlatformSensor       Platform = "sensor"
	PlatformBinarySensor Platform = "binary_sensor"
	PlatformNumber       Platform = "number"
	PlatformSelect       Platform = "select"
	PlatformSwitch       Platform = "switch"
	PlatformButton       Platform = "button"
)

// Platforms lists every platform a descriptor can be assigned, in the order
// entities are set up.
var Platforms = []Platform{
	PlatformSensor,
	PlatformBinarySensor,
	PlatformNumber,
	PlatformSelect,
	PlatformSwitch,
	PlatformButton,
}

// CommandRule is a named backend action with an associated raw value and
// optional logic tag ("on"/"off"). Rules are the write path for symbols
// without a direct parameter address.
type CommandRule struct {
	Command string `json:"command"`
	Logic   string `json:"logic,omitempty"`
	Value   any    `json:"value,omitempty"`
}

// InputRef is an auxiliary parameter address a mapped symbol depends on.
// Entities listen on these addresses in addition to their own.
type InputRef struct {
	Address string `json:"address,omitempty"`
}

// Mapping is the structured metadata block attached to a symbol.
type Mapping struct {
	// ComponentType is a free-text hint from the vendor menu definition
	// (e.g. "switch", "status-led", "password-field").
	ComponentType string `json:"component_type,omitempty"`

	// CommandRules are the ordered backend actions available for writes.
	// A symbol is writable iff this list is non-empty.
	CommandRules []CommandRule `json:"command_rules,omitempty"`

	// Values is the ordered list of raw enum values, when the symbol is
	// an enumeration.
	Values []any `json:"values,omitempty"`

	// UnitsSource maps raw values (string-keyed) to display labels.
	UnitsSource map[string]any `json:"units_source,omitempty"`

	// Inputs are auxiliary addresses feeding this symbol's value.
	Inputs []InputRef `json:"inputs,omitempty"`
}

// Descriptor is one classified entity candidate. Descriptors are built once
// during bootstrap, persisted by the descriptor repository, and re-derived
// by NormalizeCachedDescriptors when the cached copy predates the current
// classification rules.
type Descriptor struct {
	// Key uniquely identifies the descriptor as "devid:symbol".
	Key    string `json:"key"`
	Symbol string `json:"symbol"`
	DevID  string `json:"devid"`

	// Module metadata, used for display naming and device grouping.
	ModuleName    string `json:"module_name,omitempty"`
	ModuleTitle   string `json:"module_title,omitempty"`
	ModuleVersion string `json:"module_version,omitempty"`
	DeviceMenu    int    `json:"device_menu,omitempty"`

	Label     string `json:"label,omitempty"`
	Unit      string `json:"unit,omitempty"`
	PanelPath string `json:"panel_path,omitempty"`

	// Direct address triple. Present together or not at all.
	Pool *string `json:"pool,omitempty"`
	Chan *string `json:"chan,omitempty"`
	Idx  *int    `json:"idx,omitempty"`

	// Display-scale numeric bounds.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	Mapping  *Mapping `json:"mapping,omitempty"`
	Writable bool     `json:"writable"`

	// Derived fields, populated by Derive.
	Platform   Platform          `json:"platform"`
	Options    []string          `json:"options,omitempty"`
	EnumMap    map[string]any    `json:"enum_map,omitempty"`
	RawToLabel map[string]string `json:"raw_to_label,omitempty"`
}

// HasDirectAddress reports whether the descriptor carries a complete
// (pool, chan, idx) triple, letting values be written without a named
// command.
func (d *Descriptor) HasDirectAddress() bool {
	return d.Pool != nil && d.Chan != nil && d.Idx != nil
}

// HasCommandRule reports whether at least one command rule is attached.
func (d *Descriptor) HasCommandRule() bool {
	return d.Mapping != nil && len(d.Mapping.CommandRules) > 0
}

// ParameterName returns the backend parameter string ("chan" + "idx") for
// direct-address writes, or "" when no direct address exists.
func (d *Descriptor) ParameterName() string {
	if !d.HasDirectAddress() {
		return ""
	}
	return fmt.Sprintf("%s%d", *d.Chan, *d.Idx)
}

// AddressKey returns the canonical "pool.chanidx" address of the symbol's
// own value, or "" when no direct address exists.
func (d *Descriptor) AddressKey() string {
	if !d.HasDirectAddress() {
		return ""
	}
	return fmt.Sprintf("%s.%s%d", *d.Pool, *d.Chan, *d.Idx)
}

// RefreshKeys returns the set of address keys that should trigger an entity
// refresh for this descriptor: its own direct address plus any auxiliary
// input addresses declared in the mapping.
func (d *Descriptor) RefreshKeys() []string {
	var keys []string
	seen := make(map[string]struct{})
	add := func(key string) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	add(d.AddressKey())
	if d.Mapping != nil {
		for _, input := range d.Mapping.Inputs {
			add(input.Address)
		}
	}
	return keys
}

// DisplayName builds the user-facing entity name as "Panel/Path - Label"
// when a panel path is known, otherwise just the label (falling back to the
// symbol).
func (d *Descriptor) DisplayName() string {
	label := d.Label
	if label == "" {
		label = d.Symbol
	}
	path := strings.TrimSpace(d.PanelPath)
	if path == "" {
		return label
	}
	return path + " - " + label
}

// Derive recomputes the classification-derived fields (platform, options
// and enum tables) from the descriptor's source metadata. It is idempotent
// and never fails.
func Derive(d *Descriptor) {
	d.EnumMap, d.RawToLabel, d.Options = EnumMaps(d.Mapping)

	chanName := ""
	if d.Chan != nil {
		chanName = *d.Chan
	}
	d.Platform = InferPlatform(d.Writable, d.Mapping, d.Min, d.Max, d.Symbol, chanName, d.HasDirectAddress())
}
