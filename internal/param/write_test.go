package param

import (
	"errors"
	"strings"
	"testing"
)

// ─── Route selection ───────────────────────────────────────────────

func TestSelectCommandRoute(t *testing.T) {
	tests := []struct {
		name    string
		hasAddr bool
		hasRule bool
		want    Route
		wantErr bool
	}{
		{"address wins outright", true, false, RouteParameterWrite, false},
		{"address wins over rule", true, true, RouteParameterWrite, false},
		{"rule without address", false, true, RouteRawCommand, false},
		{"neither is an error", false, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectCommandRoute(tt.hasAddr, tt.hasRule)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SelectCommandRoute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrNoWriteRoute) {
				t.Errorf("error = %v, want ErrNoWriteRoute", err)
			}
			if got != tt.want {
				t.Errorf("SelectCommandRoute() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ─── Write preparation ─────────────────────────────────────────────

func TestPrepareWriteTransform(t *testing.T) {
	ctx := WriteContext{
		Symbol:              "TEMP_SET",
		HasParameterAddress: true,
		Transform:           &NumericTransform{Scale: 0.1, Offset: 0},
		RawMin:              f64Ptr(0),
		RawMax:              f64Ptr(400),
	}

	prepared, err := PrepareWrite(20.0, ctx)
	if err != nil {
		t.Fatalf("PrepareWrite() error: %v", err)
	}
	if prepared.RawValue != 200 {
		t.Errorf("raw value = %v (%T), want int 200", prepared.RawValue, prepared.RawValue)
	}
	if prepared.Route != RouteParameterWrite {
		t.Errorf("route = %q, want parameter_write", prepared.Route)
	}
	if prepared.Input != 20.0 {
		t.Errorf("input = %v, want original 20.0", prepared.Input)
	}
}

func TestPrepareWriteBoundsExceeded(t *testing.T) {
	ctx := WriteContext{
		Symbol:              "TEMP_SET",
		HasParameterAddress: true,
		Transform:           &NumericTransform{Scale: 0.1, Offset: 0},
		RawMin:              f64Ptr(0),
		RawMax:              f64Ptr(100),
	}

	_, err := PrepareWrite(20.0, ctx)
	if !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("error = %v, want ErrValueOutOfRange", err)
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("error %q does not mention the violated bound", err)
	}
	if !strings.Contains(err.Error(), "100") {
		t.Errorf("error %q does not name the limit", err)
	}
	if !strings.Contains(err.Error(), "TEMP_SET") {
		t.Errorf("error %q does not name the symbol", err)
	}
}

func TestPrepareWriteBelowMinimum(t *testing.T) {
	ctx := WriteContext{
		Symbol:              "PUMP_SPEED",
		HasParameterAddress: true,
		RawMin:              f64Ptr(10),
	}

	_, err := PrepareWrite(5, ctx)
	if !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("error = %v, want ErrValueOutOfRange", err)
	}
	if !strings.Contains(err.Error(), "below minimum") {
		t.Errorf("error %q does not mention the violated bound", err)
	}
}

func TestPrepareWriteBoundsInclusive(t *testing.T) {
	ctx := WriteContext{
		Symbol:              "LEVEL",
		HasParameterAddress: true,
		RawMin:              f64Ptr(0),
		RawMax:              f64Ptr(100),
	}

	for _, value := range []any{0, 100} {
		if _, err := PrepareWrite(value, ctx); err != nil {
			t.Errorf("PrepareWrite(%v) on boundary: %v", value, err)
		}
	}
}

func TestPrepareWriteZeroScale(t *testing.T) {
	ctx := WriteContext{
		Symbol:              "BROKEN",
		HasParameterAddress: true,
		Transform:           &NumericTransform{Scale: 0},
	}

	_, err := PrepareWrite(1, ctx)
	if !errors.Is(err, ErrInvalidTransform) {
		t.Errorf("error = %v, want ErrInvalidTransform", err)
	}
}

func TestPrepareWriteEnumResolution(t *testing.T) {
	ctx := WriteContext{
		Symbol:         "MODE",
		HasCommandRule: true,
		EnumMapping:    map[string]any{"Off": 0, "Eco": 1, "Boost": 2},
	}

	prepared, err := PrepareWrite("Boost", ctx)
	if err != nil {
		t.Fatalf("PrepareWrite() error: %v", err)
	}
	if prepared.RawValue != 2 {
		t.Errorf("raw value = %v, want 2", prepared.RawValue)
	}
	if prepared.Route != RouteRawCommand {
		t.Errorf("route = %q, want raw_command", prepared.Route)
	}
}

func TestPrepareWriteEnumInvalid(t *testing.T) {
	ctx := WriteContext{
		Symbol:         "MODE",
		HasCommandRule: true,
		EnumMapping:    map[string]any{"Off": 0, "Eco": 1},
	}

	_, err := PrepareWrite("Turbo", ctx)
	if !errors.Is(err, ErrInvalidEnumValue) {
		t.Fatalf("error = %v, want ErrInvalidEnumValue", err)
	}
	for _, want := range []string{"MODE", "Turbo", "Eco", "Off"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestPrepareWriteBooleanSkipsNumericPipeline(t *testing.T) {
	ctx := WriteContext{
		Symbol:         "PUMP_EN",
		HasCommandRule: true,
		Transform:      &NumericTransform{Scale: 0.1},
		RawMin:         f64Ptr(0),
		RawMax:         f64Ptr(1),
	}

	prepared, err := PrepareWrite(true, ctx)
	if err != nil {
		t.Fatalf("PrepareWrite() error: %v", err)
	}
	if prepared.RawValue != true {
		t.Errorf("raw value = %v, want untouched true", prepared.RawValue)
	}
}

func TestPrepareWriteNoRoute(t *testing.T) {
	_, err := PrepareWrite(1, WriteContext{Symbol: "ORPHAN"})
	if !errors.Is(err, ErrNoWriteRoute) {
		t.Errorf("error = %v, want ErrNoWriteRoute", err)
	}
}

func TestPrepareWriteEnumThenTransform(t *testing.T) {
	// An enum-resolved numeric value still runs the numeric pipeline.
	ctx := WriteContext{
		Symbol:              "STAGE",
		HasParameterAddress: true,
		EnumMapping:         map[string]any{"Half": 5, "Full": 10},
		Transform:           &NumericTransform{Scale: 0.5, Offset: 0},
		RawMax:              f64Ptr(20),
	}

	prepared, err := PrepareWrite("Full", ctx)
	if err != nil {
		t.Fatalf("PrepareWrite() error: %v", err)
	}
	if prepared.RawValue != 20 {
		t.Errorf("raw value = %v, want 20", prepared.RawValue)
	}
}

// ─── Command-rule selection ────────────────────────────────────────

func TestSelectCommandRule(t *testing.T) {
	onOff := []CommandRule{
		{Command: "turnOn", Logic: "on", Value: 1},
		{Command: "turnOff", Logic: "off", Value: 0},
	}
	valued := []CommandRule{
		{Command: "setEco", Value: 1},
		{Command: "setBoost", Value: 2},
	}

	tests := []struct {
		name    string
		rules   []CommandRule
		desired any
		want    string
	}{
		{"true matches on logic", onOff, true, "turnOn"},
		{"false matches off logic", onOff, false, "turnOff"},
		{"value token match", valued, 2, "setBoost"},
		{"value token match folds float", valued, 2.0, "setBoost"},
		{"string token match", valued, "1", "setEco"},
		{"no match falls back to first rule", valued, 9, "setEco"},
		{"empty rules yield empty rule", nil, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectCommandRule(tt.rules, tt.desired)
			if got.Command != tt.want {
				t.Errorf("SelectCommandRule() = %q, want %q", got.Command, tt.want)
			}
		})
	}
}
