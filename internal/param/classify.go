package param

import "strings"

// nonExposableMarkers are component-type fragments that mark navigation or
// credential widgets rather than real parameters. A symbol whose component
// type contains any of these is never exposed, regardless of writability or
// addressing.
var nonExposableMarkers = []string{
	"password",
	"menu",
	"view",
	"separator",
	"title",
}

// switchTokens is the closed set of raw-value tokens that identify a binary
// command pair.
var switchTokens = map[string]struct{}{
	"0": {}, "1": {},
	"true": {}, "false": {},
	"on": {}, "off": {},
	"enabled": {}, "disabled": {},
	"yes": {}, "no": {},
}

// IsExposable decides whether a symbol should surface as an entity at all.
//
// Symbols whose component type matches a denylisted marker are rejected
// outright. Everything else is exposable when it is writable or carries a
// complete direct address triple.
func IsExposable(writable bool, pool, chanName *string, idx *int, mapping *Mapping) bool {
	componentType := ""
	if mapping != nil {
		componentType = strings.ToLower(mapping.ComponentType)
	}
	for _, marker := range nonExposableMarkers {
		if strings.Contains(componentType, marker) {
			return false
		}
	}
	if writable {
		return true
	}
	return pool != nil && chanName != nil && idx != nil
}

// classifyInput bundles the metadata InferPlatform evaluates. Keeping it as
// a struct lets each rule be a standalone predicate over the same inputs.
type classifyInput struct {
	writable         bool
	componentType    string // lower-cased
	symbol           string // upper-cased
	chanName         string
	hasValues        bool
	hasDirectAddress bool
	hasBounds        bool
	commandRules     []CommandRule
}

// platformRule is one entry in the ordered classification policy.
type platformRule struct {
	name     string
	matches  func(in classifyInput) bool
	platform Platform
}

// platformRules is the classification policy, evaluated top to bottom with
// first match winning. The order is load-bearing: a status channel beats
// writability, an enumeration beats numeric bounds, and an unaddressed
// writable symbol can only be a fire-and-forget action.
var platformRules = []platformRule{
	{
		name: "status indicator",
		matches: func(in classifyInput) bool {
			return in.chanName == "s" ||
				strings.HasPrefix(in.symbol, "STATUS_") ||
				strings.Contains(in.componentType, "status")
		},
		platform: PlatformBinarySensor,
	},
	{
		name: "read only",
		matches: func(in classifyInput) bool {
			return !in.writable
		},
		platform: PlatformSensor,
	},
	{
		name: "enumerated values",
		matches: func(in classifyInput) bool {
			return in.hasValues
		},
		platform: PlatformSelect,
	},
	{
		name: "button marker",
		matches: func(in classifyInput) bool {
			return strings.Contains(in.componentType, "button") ||
				strings.Contains(in.componentType, "action")
		},
		platform: PlatformButton,
	},
	{
		name: "unaddressed action",
		matches: func(in classifyInput) bool {
			return !in.hasDirectAddress
		},
		platform: PlatformButton,
	},
	{
		name: "bounded numeric",
		matches: func(in classifyInput) bool {
			return in.hasBounds
		},
		platform: PlatformNumber,
	},
	{
		name: "switch marker or switch-like rules",
		matches: func(in classifyInput) bool {
			return strings.Contains(in.componentType, "switch") ||
				strings.Contains(in.componentType, "toggle") ||
				switchLikeRules(in.commandRules)
		},
		platform: PlatformSwitch,
	},
}

// InferPlatform assigns the entity platform for a symbol.
//
// The decision is the ordered platformRules list; when nothing matches the
// symbol defaults to a switch. Classification never fails.
func InferPlatform(writable bool, mapping *Mapping, minimum, maximum *float64, symbol, chanName string, hasDirectAddress bool) Platform {
	in := classifyInput{
		writable:         writable,
		symbol:           strings.ToUpper(symbol),
		chanName:         chanName,
		hasDirectAddress: hasDirectAddress,
		hasBounds:        minimum != nil && maximum != nil,
	}
	if mapping != nil {
		in.componentType = strings.ToLower(mapping.ComponentType)
		in.hasValues = len(mapping.Values) > 0
		in.commandRules = mapping.CommandRules
	}

	for _, rule := range platformRules {
		if rule.matches(in) {
			return rule.platform
		}
	}
	return PlatformSwitch
}

// switchLikeRules reports whether a command-rule set looks like a binary
// on/off pair: either the logic tags cover both "on" and "off", or every
// rule value normalises to a token from the closed binary set.
func switchLikeRules(rules []CommandRule) bool {
	if len(rules) == 0 {
		return false
	}

	var hasOn, hasOff bool
	allBinary := true
	for _, rule := range rules {
		switch strings.ToLower(strings.TrimSpace(rule.Logic)) {
		case "on":
			hasOn = true
		case "off":
			hasOff = true
		}
		if _, ok := switchTokens[valueToken(rule.Value)]; !ok {
			allBinary = false
		}
	}
	return (hasOn && hasOff) || allBinary
}
