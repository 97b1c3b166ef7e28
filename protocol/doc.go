// Package protocol defines the shared vocabulary of a two-server private
// aggregation round: the process-wide Context, round Configs and their YAML
// descriptors, the proof layout clients encode, the error taxonomy, and the
// CBOR wire format of every artifact exchanged between clients and servers.
//
// # Round Workflow
//
//  1. Both servers and all clients obtain the same Config, usually from a
//     RoundDescriptor, under an open Context.
//
//  2. Each client encodes its data vector (package client) into two
//     ClientShares, one per server. Either share alone is uniformly random.
//     Each share is sealed with AES-GCM to its server under a key derived
//     from the client's ephemeral X25519 key, with the share header as
//     additional data, so a share modified in transit fails to open.
//
//  3. For every client, each server runs a verifier session (package server):
//     it computes a Packet1 from its share, exchanges Packet1s with the other
//     server, computes a Packet2 from both, exchanges Packet2s, and decides.
//     Neither server learns the client's data.
//
//  4. Accepted shares are folded into a per-server store (package aggregator).
//     Stores built over disjoint client populations can be merged in any order.
//
//  5. At round end each server finalizes its store into a TotalShare. Adding
//     the two TotalShares reveals only the sum over all accepted clients.
//
// # Validity Proof
//
// A client encodes its data as M bits. It builds polynomials f and g over
// the N-th roots of unity w_N with f(w_N^i) = bit_i and g(w_N^i) = bit_i - 1
// for 1 <= i <= M, random constant points f(1), g(1), and zero elsewhere.
// Then h = f*g vanishes at every bit position exactly when every bit is 0 or 1.
// The client shares the bits, f(1), g(1), h(1), the values of h at the odd
// 2N-th roots of unity, and a Beaver triple. The servers pick a random point r,
// interpolate their shares of f, g and h, and use the triple to check
// f(r)*g(r) = h(r) without revealing f(r) or g(r).
//
// # Wire Format
//
// Every artifact is a CBOR array (deterministic core encoding) starting with
// WireVersion. Field vectors are a single byte string of 11-byte big-endian
// elements. Readers validate the version, the batch id, the server role, the
// exact vector lengths and that every element is reduced, and reject any
// mismatch with ErrFormat or ErrMalformedShare. A ClientShare carries a
// sealed payload whose size is fixed by the Config; its elements are checked
// once the receiving server has opened it.
package protocol
