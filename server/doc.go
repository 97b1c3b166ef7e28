// Package server implements one of the two non-colluding verification
// servers of a private aggregation round.
//
// A Server holds its role, its X25519 private key and the verification seed
// it shares with the other server. For every client submission it creates a
// Verifier, a two-round state machine that checks the client's validity
// proof jointly with the peer server's Verifier for the same submission,
// without either server learning the submitted data.
package server
