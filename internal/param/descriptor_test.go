package param

import (
	"reflect"
	"testing"
)

func TestDescriptorAddressHelpers(t *testing.T) {
	d := Descriptor{
		Symbol: "TEMP_SET",
		Pool:   strPtr("P6"),
		Chan:   strPtr("v"),
		Idx:    intPtr(12),
	}

	if !d.HasDirectAddress() {
		t.Fatal("expected direct address")
	}
	if got := d.ParameterName(); got != "v12" {
		t.Errorf("ParameterName() = %q, want v12", got)
	}
	if got := d.AddressKey(); got != "P6.v12" {
		t.Errorf("AddressKey() = %q, want P6.v12", got)
	}

	unaddressed := Descriptor{Symbol: "ACTION"}
	if unaddressed.HasDirectAddress() {
		t.Error("expected no direct address")
	}
	if got := unaddressed.ParameterName(); got != "" {
		t.Errorf("ParameterName() = %q, want empty", got)
	}
}

func TestDescriptorRefreshKeys(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		want []string
	}{
		{
			name: "direct address only",
			d: Descriptor{
				Pool: strPtr("P4"), Chan: strPtr("v"), Idx: intPtr(1),
			},
			want: []string{"P4.v1"},
		},
		{
			name: "auxiliary input addresses included",
			d: Descriptor{
				Pool: strPtr("P4"), Chan: strPtr("v"), Idx: intPtr(1),
				Mapping: &Mapping{Inputs: []InputRef{
					{Address: " P4.s2 "},
					{Address: ""},
					{Address: "P4.v1"}, // duplicate of own address
				}},
			},
			want: []string{"P4.v1", "P4.s2"},
		},
		{
			name: "no address and no inputs",
			d:    Descriptor{Symbol: "ACTION"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.d.RefreshKeys()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RefreshKeys() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescriptorDisplayName(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		want string
	}{
		{"panel path prefixes label", Descriptor{Label: "Boiler temp", PanelPath: "Heating/Boiler"}, "Heating/Boiler - Boiler temp"},
		{"label only", Descriptor{Label: "Boiler temp"}, "Boiler temp"},
		{"falls back to symbol", Descriptor{Symbol: "TEMP_CH"}, "TEMP_CH"},
		{"blank panel path ignored", Descriptor{Label: "X", PanelPath: "  "}, "X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}
