package param

import "testing"

func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func f64Ptr(f float64) *float64 { return &f }

// ─── Exposability ──────────────────────────────────────────────────

func TestIsExposable(t *testing.T) {
	tests := []struct {
		name     string
		writable bool
		pool     *string
		chanName *string
		idx      *int
		mapping  *Mapping
		want     bool
	}{
		{"writable without address", true, nil, nil, nil, nil, true},
		{"direct address without writable", false, strPtr("P4"), strPtr("v"), intPtr(1), nil, true},
		{"neither writable nor addressed", false, nil, nil, nil, nil, false},
		{"partial address is not direct", false, strPtr("P4"), strPtr("v"), nil, nil, false},
		{"missing pool is not direct", false, nil, strPtr("v"), intPtr(1), nil, false},
		{"password marker rejects writable", true, strPtr("P4"), strPtr("v"), intPtr(1), &Mapping{ComponentType: "password-field"}, false},
		{"menu marker rejects", true, nil, nil, nil, &Mapping{ComponentType: "MenuEntry"}, false},
		{"view marker rejects", false, strPtr("P4"), strPtr("v"), intPtr(1), &Mapping{ComponentType: "detail-view"}, false},
		{"separator marker rejects", true, nil, nil, nil, &Mapping{ComponentType: "separator"}, false},
		{"title marker rejects", true, nil, nil, nil, &Mapping{ComponentType: "SectionTitle"}, false},
		{"denylist match is case-insensitive", true, nil, nil, nil, &Mapping{ComponentType: "PASSWORD"}, false},
		{"benign component type passes", true, nil, nil, nil, &Mapping{ComponentType: "slider"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsExposable(tt.writable, tt.pool, tt.chanName, tt.idx, tt.mapping)
			if got != tt.want {
				t.Errorf("IsExposable() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ─── Platform inference ────────────────────────────────────────────

func TestInferPlatform(t *testing.T) {
	tests := []struct {
		name       string
		writable   bool
		mapping    *Mapping
		minimum    *float64
		maximum    *float64
		symbol     string
		chanName   string
		hasAddress bool
		want       Platform
	}{
		{
			name:     "status channel wins over everything",
			writable: true,
			mapping:  &Mapping{Values: []any{0, 1}, CommandRules: []CommandRule{{Command: "set", Value: 1}}},
			symbol:   "PUMP", chanName: "s", hasAddress: true,
			want: PlatformBinarySensor,
		},
		{
			name:   "STATUS_ symbol prefix",
			symbol: "status_burner", chanName: "v", hasAddress: true,
			want: PlatformBinarySensor,
		},
		{
			name:    "status component type",
			mapping: &Mapping{ComponentType: "status-led"},
			symbol:  "LED", chanName: "v", hasAddress: true,
			want: PlatformBinarySensor,
		},
		{
			name:   "non-writable is a sensor",
			symbol: "TEMP_CH", chanName: "v", hasAddress: true,
			want: PlatformSensor,
		},
		{
			name:     "writable with values is a select",
			writable: true,
			mapping: &Mapping{
				Values:       []any{0, 1, 2},
				CommandRules: []CommandRule{{Command: "setMode", Value: 1}},
			},
			symbol: "MODE", chanName: "v", hasAddress: true,
			want: PlatformSelect,
		},
		{
			name:     "button component type",
			writable: true,
			mapping: &Mapping{
				ComponentType: "action-button",
				CommandRules:  []CommandRule{{Command: "reset"}},
			},
			symbol: "RESET", chanName: "v", hasAddress: true,
			want: PlatformButton,
		},
		{
			name:     "writable without address is a button",
			writable: true,
			mapping:  &Mapping{CommandRules: []CommandRule{{Command: "calibrate", Value: 7}}},
			symbol:   "CALIBRATE",
			want:     PlatformButton,
		},
		{
			name:     "numeric bounds make a number",
			writable: true,
			mapping:  &Mapping{CommandRules: []CommandRule{{Command: "setTemp", Value: 40}}},
			minimum:  f64Ptr(0), maximum: f64Ptr(90),
			symbol: "TEMP_SET", chanName: "v", hasAddress: true,
			want: PlatformNumber,
		},
		{
			name:     "bounds need both ends",
			writable: true,
			mapping: &Mapping{CommandRules: []CommandRule{
				{Command: "enable", Logic: "on", Value: 1},
				{Command: "disable", Logic: "off", Value: 0},
			}},
			minimum: f64Ptr(0),
			symbol:  "PUMP_EN", chanName: "v", hasAddress: true,
			want: PlatformSwitch,
		},
		{
			name:     "toggle component type is a switch",
			writable: true,
			mapping: &Mapping{
				ComponentType: "toggle",
				CommandRules:  []CommandRule{{Command: "flip", Value: "x"}},
			},
			symbol: "FLIP", chanName: "v", hasAddress: true,
			want: PlatformSwitch,
		},
		{
			name:     "switch-like rules via on/off logic",
			writable: true,
			mapping: &Mapping{CommandRules: []CommandRule{
				{Command: "turnOn", Logic: "ON", Value: "start"},
				{Command: "turnOff", Logic: "off", Value: "halt"},
			}},
			symbol: "BOOST", chanName: "v", hasAddress: true,
			want: PlatformSwitch,
		},
		{
			name:     "switch-like rules via binary tokens",
			writable: true,
			mapping: &Mapping{CommandRules: []CommandRule{
				{Command: "set", Value: 1},
				{Command: "clear", Value: 0},
			}},
			symbol: "FLAG", chanName: "v", hasAddress: true,
			want: PlatformSwitch,
		},
		{
			name:     "default is a switch",
			writable: true,
			mapping:  &Mapping{CommandRules: []CommandRule{{Command: "set", Value: 42}}},
			symbol:   "MYSTERY", chanName: "v", hasAddress: true,
			want: PlatformSwitch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferPlatform(tt.writable, tt.mapping, tt.minimum, tt.maximum, tt.symbol, tt.chanName, tt.hasAddress)
			if got != tt.want {
				t.Errorf("InferPlatform() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ─── Switch-likeness ───────────────────────────────────────────────

func TestSwitchLikeRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []CommandRule
		want  bool
	}{
		{"empty rules are not switch-like", nil, false},
		{
			"on and off logic tags",
			[]CommandRule{{Logic: "on", Value: "go"}, {Logic: "off", Value: "stop"}},
			true,
		},
		{
			"logic tags fold case",
			[]CommandRule{{Logic: " ON ", Value: 5}, {Logic: "Off", Value: 9}},
			true,
		},
		{
			"only on logic is not enough",
			[]CommandRule{{Logic: "on", Value: "go"}},
			false,
		},
		{
			"binary integer values",
			[]CommandRule{{Value: 0}, {Value: 1}},
			true,
		},
		{
			"integral float values normalise",
			[]CommandRule{{Value: 0.0}, {Value: 1.0}},
			true,
		},
		{
			"boolean values normalise",
			[]CommandRule{{Value: true}, {Value: false}},
			true,
		},
		{
			"enabled/disabled strings",
			[]CommandRule{{Value: "Enabled"}, {Value: "DISABLED"}},
			true,
		},
		{
			"yes/no strings",
			[]CommandRule{{Value: "yes"}, {Value: "no"}},
			true,
		},
		{
			"one non-binary value breaks the set",
			[]CommandRule{{Value: 0}, {Value: 2}},
			false,
		},
		{
			"non-binary values with full logic pair still match",
			[]CommandRule{{Logic: "on", Value: 7}, {Logic: "off", Value: 3}},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := switchLikeRules(tt.rules); got != tt.want {
				t.Errorf("switchLikeRules() = %v, want %v", got, tt.want)
			}
		})
	}
}
