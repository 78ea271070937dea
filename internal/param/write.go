package param

import (
	"fmt"
	"strings"
)

// Route identifies how a prepared write reaches the backend.
type Route string

// Available write routes.
const (
	// RouteParameterWrite writes directly to a (pool, chan, idx) address.
	RouteParameterWrite Route = "parameter_write"

	// RouteRawCommand dispatches a named backend command from the symbol's
	// command rules.
	RouteRawCommand Route = "raw_command"
)

// NumericTransform is a display-to-raw linear transform.
//
// Display values are modeled as display = raw*Scale + Offset. Write
// preparation applies the inverse: raw = (display - Offset) / Scale.
type NumericTransform struct {
	Scale  float64
	Offset float64
}

// WriteContext is the per-symbol metadata required to prepare a write.
// It is assembled from a Descriptor by the runtime and carries no state of
// its own.
type WriteContext struct {
	Symbol              string
	HasParameterAddress bool
	HasCommandRule      bool

	// EnumMapping maps display labels to raw values; nil when the symbol
	// is not an enumeration.
	EnumMapping map[string]any

	// Transform, when set, is inverted before the bounds check.
	Transform *NumericTransform

	// RawMin and RawMax bound the computed raw value, inclusive.
	RawMin *float64
	RawMax *float64
}

// PreparedWrite is a validated write payload ready for dispatch.
type PreparedWrite struct {
	Symbol   string
	Input    any
	RawValue any
	Route    Route
}

// PrepareWrite converts a user-facing display value into a validated raw
// write.
//
// The pipeline is: enum resolution, inverse numeric transform, inclusive
// raw-bounds check, route selection. Each step fails fast with a wrapped
// sentinel error carrying human-readable detail; nothing is retried or
// silently coerced. PrepareWrite is pure - dispatch and logging belong to
// the caller.
func PrepareWrite(input any, ctx WriteContext) (PreparedWrite, error) {
	converted := input
	if ctx.EnumMapping != nil {
		resolved, err := EnumDisplayToRaw(input, ctx.EnumMapping)
		if err != nil {
			return PreparedWrite{}, fmt.Errorf("symbol %q: %w", ctx.Symbol, err)
		}
		converted = resolved
	}

	if display, ok := asNumber(converted); ok {
		raw := display
		if ctx.Transform != nil {
			if ctx.Transform.Scale == 0 {
				return PreparedWrite{}, fmt.Errorf("%w: scale cannot be 0 for symbol %q", ErrInvalidTransform, ctx.Symbol)
			}
			raw = (display - ctx.Transform.Offset) / ctx.Transform.Scale
			converted = collapseNumber(raw)
		}
		if ctx.RawMin != nil && raw < *ctx.RawMin {
			return PreparedWrite{}, fmt.Errorf("%w: raw value %v for %q is below minimum %v",
				ErrValueOutOfRange, collapseNumber(raw), ctx.Symbol, collapseNumber(*ctx.RawMin))
		}
		if ctx.RawMax != nil && raw > *ctx.RawMax {
			return PreparedWrite{}, fmt.Errorf("%w: raw value %v for %q exceeds maximum %v",
				ErrValueOutOfRange, collapseNumber(raw), ctx.Symbol, collapseNumber(*ctx.RawMax))
		}
	}

	route, err := SelectCommandRoute(ctx.HasParameterAddress, ctx.HasCommandRule)
	if err != nil {
		return PreparedWrite{}, fmt.Errorf("symbol %q: %w", ctx.Symbol, err)
	}

	return PreparedWrite{
		Symbol:   ctx.Symbol,
		Input:    input,
		RawValue: converted,
		Route:    route,
	}, nil
}

// SelectCommandRoute picks the transport route for a write. A direct
// parameter address always wins; command rules are the fallback; with
// neither, the write cannot proceed.
func SelectCommandRoute(hasParameterAddress, hasCommandRule bool) (Route, error) {
	if hasParameterAddress {
		return RouteParameterWrite, nil
	}
	if hasCommandRule {
		return RouteRawCommand, nil
	}
	return "", fmt.Errorf("%w: missing parameter address and command rule", ErrNoWriteRoute)
}

// SelectCommandRule picks the command rule matching a desired raw value.
//
// A rule matches when its logic tag agrees with the boolean intent of the
// desired value ("on" for true, "off" for false), or when its own value
// normalises to the same token as the desired value. When nothing matches,
// the first rule is returned as a fallback, and an empty rule when the list
// is empty - callers must treat an empty Command as "no rule" and fail the
// write.
//
// TODO: confirm against device firmware whether the first-rule fallback is
// ever correct for non-matching values, or whether it should be an error.
func SelectCommandRule(rules []CommandRule, desired any) CommandRule {
	desiredToken := valueToken(desired)
	desiredBool, isBool := desired.(bool)

	for _, rule := range rules {
		logic := strings.ToLower(strings.TrimSpace(rule.Logic))
		if isBool && ((desiredBool && logic == "on") || (!desiredBool && logic == "off")) {
			return rule
		}
		if valueToken(rule.Value) == desiredToken {
			return rule
		}
	}

	if len(rules) > 0 {
		return rules[0]
	}
	return CommandRule{}
}
