package param

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EnumMaps derives the enum tables for a symbol's mapping.
//
// It returns the label-to-raw map, the raw-string-to-label map, and the
// ordered label list used as select options. Derivation rules:
//
//   - When units_source is present and values is a non-empty list, values
//     is iterated in order; each raw value's label is looked up in
//     units_source by its canonical string form and defaults to that string
//     form when absent. Entries whose label is empty after trimming are
//     skipped.
//   - When units_source is present without values, its entries are iterated
//     directly as raw-to-label pairs, in natural key order (numeric keys
//     numerically, the rest lexically).
//   - When only values is present, each raw value's own string form serves
//     as its label.
//
// Duplicate labels are resolved first-occurrence-wins. Raw values are
// coerced via CoerceRaw so the tables carry canonical types.
func EnumMaps(mapping *Mapping) (enumMap map[string]any, rawToLabel map[string]string, options []string) {
	enumMap = make(map[string]any)
	rawToLabel = make(map[string]string)
	if mapping == nil {
		return enumMap, rawToLabel, nil
	}

	insert := func(label string, raw any) {
		if label == "" {
			return
		}
		if _, ok := enumMap[label]; ok {
			return
		}
		enumMap[label] = raw
		options = append(options, label)
		key := rawKey(raw)
		if _, ok := rawToLabel[key]; !ok {
			rawToLabel[key] = label
		}
	}

	switch {
	case mapping.UnitsSource != nil:
		if len(mapping.Values) > 0 {
			for _, raw := range mapping.Values {
				coerced := CoerceRaw(raw)
				label := labelFromSource(mapping.UnitsSource, raw)
				insert(label, coerced)
			}
			return enumMap, rawToLabel, options
		}
		for _, key := range sortedSourceKeys(mapping.UnitsSource) {
			label := strings.TrimSpace(fmt.Sprint(mapping.UnitsSource[key]))
			insert(label, CoerceRaw(key))
		}
	case mapping.Values != nil:
		for _, raw := range mapping.Values {
			coerced := CoerceRaw(raw)
			label := strings.TrimSpace(rawKey(raw))
			insert(label, coerced)
		}
	}
	return enumMap, rawToLabel, options
}

// labelFromSource resolves a raw value's display label from units_source.
// Lookup uses the raw value itself when it is already a string, then the
// canonical string form; the label defaults to the stringified raw value
// when no entry exists.
func labelFromSource(source map[string]any, raw any) string {
	if s, ok := raw.(string); ok {
		if label, ok := source[s]; ok {
			return strings.TrimSpace(fmt.Sprint(label))
		}
	}
	if label, ok := source[rawKey(raw)]; ok {
		return strings.TrimSpace(fmt.Sprint(label))
	}
	return strings.TrimSpace(rawKey(raw))
}

// sortedSourceKeys orders units_source keys deterministically: numeric keys
// first in numeric order, then the rest lexically. The vendor payload is a
// JSON object, so no source order survives decoding.
func sortedSourceKeys(source map[string]any) []string {
	keys := make([]string, 0, len(source))
	for key := range source {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iErr := strconv.ParseFloat(keys[i], 64)
		nj, jErr := strconv.ParseFloat(keys[j], 64)
		switch {
		case iErr == nil && jErr == nil:
			if ni != nj {
				return ni < nj
			}
			return keys[i] < keys[j]
		case iErr == nil:
			return true
		case jErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// EnumDisplayToRaw converts a display enum label into its raw backend
// value.
//
// A string input matching a label returns the mapped raw value. An input
// already present among the mapped raw values is accepted unchanged;
// comparison runs on normalised tokens, so the string "2" off the wire
// matches a numeric raw 2.
// Anything else fails with ErrInvalidEnumValue, listing every valid label.
func EnumDisplayToRaw(display any, enumMapping map[string]any) (any, error) {
	if label, ok := display.(string); ok {
		if raw, ok := enumMapping[label]; ok {
			return raw, nil
		}
	}
	token := valueToken(display)
	for _, raw := range enumMapping {
		if token == valueToken(raw) {
			return display, nil
		}
	}

	labels := make([]string, 0, len(enumMapping))
	for label := range enumMapping {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return nil, fmt.Errorf("%w: %q is not an allowed value; allowed labels: [%s] or a matching raw mapped value",
		ErrInvalidEnumValue, fmt.Sprint(display), strings.Join(labels, ", "))
}

// EnumRawToDisplay converts a raw backend value to its display label when
// the mapping knows it, otherwise returns the raw value unchanged. Labels
// are scanned in sorted order so repeated raw values resolve
// deterministically.
func EnumRawToDisplay(raw any, enumMapping map[string]any) any {
	labels := make([]string, 0, len(enumMapping))
	for label := range enumMapping {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if valueEqual(enumMapping[label], raw) {
			return label
		}
	}
	return raw
}
