package param

// NormalizeCachedDescriptors re-applies exposability filtering and
// re-derives the classification fields over a previously cached descriptor
// list.
//
// The repository calls this on every load, so descriptors cached by an
// older build pick up current classification rules without re-querying the
// device. Descriptors that are no longer exposable are dropped; everything
// else gets a fresh platform, option list and enum tables. Inputs are not
// mutated.
func NormalizeCachedDescriptors(cached []Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(cached))
	for i := range cached {
		d := cached[i]

		// Writability is derived state; recompute it rather than trusting
		// the cached flag.
		d.Writable = d.HasCommandRule()

		if !IsExposable(d.Writable, d.Pool, d.Chan, d.Idx, d.Mapping) {
			continue
		}
		Derive(&d)
		out = append(out, d)
	}
	return out
}
