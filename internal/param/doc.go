// Package param implements parameter classification and safe command-write
// preparation for BragerOne device symbols.
//
// A BragerOne module exposes a flat set of opaque "symbols". Each symbol
// carries resolved metadata: an optional direct address (pool/chan/idx), an
// optional mapping block (component type hint, command rules, enumerated
// values, raw-to-label lookup) and optional numeric bounds. This package
// answers two questions about that metadata:
//
//  1. Classification - should this symbol be exposed at all, and if so,
//     which entity platform (sensor, binary_sensor, number, select, switch,
//     button) represents it? See IsExposable and InferPlatform.
//
//  2. Write preparation - given a user-facing display value, what raw value
//     should be written back, and via which route? See PrepareWrite.
//
// # Classification Policy
//
// Platform inference is an ordered rule list evaluated top to bottom, first
// match wins. The rules are data (see platformRules in classify.go) so the
// policy can be audited and tested rule by rule rather than being buried in
// nested conditionals.
//
// Classification never fails: unresolvable or ambiguous metadata falls
// through to documented defaults.
//
// # Write Preparation
//
// PrepareWrite is a pure function running the pipeline
//
//	input -> enum resolution -> inverse linear transform -> bounds check
//	      -> route selection -> PreparedWrite
//
// Validation errors are returned immediately with human-readable detail
// (the offending symbol, the rejected value, the allowed labels or the
// violated bound). They are expected, user-facing failures and must not be
// retried or silently coerced.
//
// # Thread Safety
//
// All functions are side-effect free and safe for concurrent use. Callers
// own any Descriptor mutation; Derive and NormalizeCachedDescriptors are
// idempotent and may be re-run over cached data at any time.
package param
