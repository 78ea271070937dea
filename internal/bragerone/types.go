package bragerone

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/brager-bridge/internal/param"
)

// Object is an installation site the account has access to. One object
// groups one or more physical modules behind a shared gateway.
type Object struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Gateway describes the network gateway a module is reachable through.
type Gateway struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Module is one physical device (boiler controller, heat pump, etc.)
// registered under an object.
type Module struct {
	DevID           string  `json:"devid"`
	Name            string  `json:"name"`
	ModuleTitle     string  `json:"moduleTitle"`
	ModuleVersion   string  `json:"moduleVersion"`
	ModuleInterface string  `json:"moduleInterface,omitempty"`
	ModuleAddress   int     `json:"moduleAddress,omitempty"`
	DeviceMenu      int     `json:"deviceMenu"`
	Gateway         Gateway `json:"gateway"`
}

// Permission is a named capability granted on an object. Menu traversal
// filters out entries the account's permissions do not cover.
type Permission struct {
	Name string `json:"name"`
}

// MenuNode is one entry in a module's menu tree. Leaves carry a symbol
// token; branches carry children. The same node may have both.
type MenuNode struct {
	Symbol   string     `json:"symbol,omitempty"`
	Label    string     `json:"label,omitempty"`
	Children []MenuNode `json:"items,omitempty"`
}

// Menu is a module's full menu tree, the source of candidate symbols.
type Menu struct {
	Items []MenuNode `json:"items"`
}

// AllTokens returns every symbol token reachable in the menu tree,
// deduplicated, in first-seen order.
func (m *Menu) AllTokens() []string {
	seen := make(map[string]struct{})
	var tokens []string
	var walk func(nodes []MenuNode)
	walk = func(nodes []MenuNode) {
		for _, node := range nodes {
			symbol := strings.TrimSpace(node.Symbol)
			if symbol != "" {
				if _, dup := seen[symbol]; !dup {
					seen[symbol] = struct{}{}
					tokens = append(tokens, symbol)
				}
			}
			walk(node.Children)
		}
	}
	walk(m.Items)
	return tokens
}

// TokenPaths returns the menu path for every symbol token, joined with
// " / " from the branch labels leading to it. The first occurrence of a
// symbol wins when it appears in several branches.
func (m *Menu) TokenPaths() map[string]string {
	paths := make(map[string]string)
	var walk func(nodes []MenuNode, trail []string)
	walk = func(nodes []MenuNode, trail []string) {
		for _, node := range nodes {
			symbol := strings.TrimSpace(node.Symbol)
			if symbol != "" {
				if _, dup := paths[symbol]; !dup {
					paths[symbol] = strings.Join(trail, " / ")
				}
			}
			next := trail
			if label := strings.TrimSpace(node.Label); label != "" && len(node.Children) > 0 {
				next = append(append([]string{}, trail...), label)
			}
			walk(node.Children, next)
		}
	}
	walk(m.Items, nil)
	return paths
}

// SymbolDetail is the vendor metadata for one symbol, as returned by the
// describe endpoint. Mapping decodes straight into the classifier's type.
type SymbolDetail struct {
	Label   string          `json:"label,omitempty"`
	Unit    json.RawMessage `json:"unit,omitempty"`
	Pool    *string         `json:"pool,omitempty"`
	Chan    *string         `json:"chan,omitempty"`
	Idx     *int            `json:"idx,omitempty"`
	Min     *float64        `json:"min,omitempty"`
	Max     *float64        `json:"max,omitempty"`
	Mapping *param.Mapping  `json:"mapping,omitempty"`
}

// UnitString flattens the unit field to a display string. The API returns
// either a plain string or a language-keyed object; for objects the "en"
// entry wins, then any entry in sorted key order.
func (s *SymbolDetail) UnitString() string {
	if len(s.Unit) == 0 {
		return ""
	}
	var plain string
	if err := json.Unmarshal(s.Unit, &plain); err == nil {
		return strings.TrimSpace(plain)
	}
	var byLang map[string]string
	if err := json.Unmarshal(s.Unit, &byLang); err != nil {
		return ""
	}
	if unit, ok := byLang["en"]; ok {
		return strings.TrimSpace(unit)
	}
	best := ""
	for lang, unit := range byLang {
		if best == "" || lang < best {
			best = lang
			plain = unit
		}
	}
	return strings.TrimSpace(plain)
}

// PrimeSnapshot is the parameter snapshot returned when priming modules:
// devid -> pool -> "chanidx" -> raw value.
type PrimeSnapshot map[string]map[string]map[string]any

// Value looks up a raw value by device and address key ("pool.chanidx").
func (p PrimeSnapshot) Value(devID, addressKey string) (any, bool) {
	pools, ok := p[devID]
	if !ok {
		return nil, false
	}
	pool, rest, found := strings.Cut(addressKey, ".")
	if !found {
		return nil, false
	}
	params, ok := pools[pool]
	if !ok {
		return nil, false
	}
	value, ok := params[rest]
	return value, ok
}

// ParamUpdate is one live parameter change delivered over the event stream.
type ParamUpdate struct {
	DevID string `json:"devid"`
	Pool  string `json:"pool"`
	Chan  string `json:"chan"`
	Idx   int    `json:"idx"`
	Value any    `json:"value"`

	// Source identifies where the update originated ("ws", "prime").
	Source string `json:"source,omitempty"`
}

// AddressKey returns the canonical "pool.chanidx" address of the update.
func (u ParamUpdate) AddressKey() string {
	return fmt.Sprintf("%s.%s%d", u.Pool, u.Chan, u.Idx)
}
