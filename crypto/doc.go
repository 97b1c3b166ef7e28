// Package crypto provides the cryptographic primitives of the private
// aggregation protocol.
//
//   - Field arithmetic over the 87-bit prime FieldOrder (fields.go)
//   - Polynomial interpolation and evaluation over power-of-two roots of
//     unity (polynomials.go)
//   - A seed-keyed AES-CTR PRG used to derive secret-sharing masks (blinding.go)
//   - X25519 keys, key agreement and HKDF seed derivation (types.go,
//     shared_secrets.go)
//   - AES-256-GCM sealing under HKDF-derived keys (encryption.go)
//
// Note: field and polynomial math is not constant-time.
//
// # Field Operations
//
// All vectors are []*big.Int holding reduced elements in [0, FieldOrder).
// Elements serialize as FieldElementSize-byte big-endian strings.
//
// # Secret sharing
//
// A value x is split as (x - m, m) where m is drawn from a PRG. Whoever holds
// the PRG seed can regenerate m, so one of the two shares never needs to be
// transmitted.
package crypto
