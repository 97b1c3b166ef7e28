/*
Package testutil provides fixtures for testing the private aggregation
packages end to end.

# Rounds

NewRound sets up a complete two-server round for a field layout: an open
protocol.Context (closed on test cleanup), fresh X25519 key pairs for both
servers, the round Config, a shared verification seed, both servers and a
client encoder.

	round := testutil.NewRound(t, protocol.BooleanLayout(133))
	storeA, storeB := round.NewStores(t)

	for i := 0; i < 10; i++ {
	    round.Submit(t, testutil.BoolsToValues(testutil.BooleanPattern(133)), storeA, storeB)
	}
	total := round.Combine(t, storeA, storeB)

Options customize the round:

	round := testutil.NewRound(t, protocol.UIntLayout(11, 7),
	    testutil.WithBatchID("round-42"),
	    testutil.WithLogger(slog.Default()),
	)

# Pipeline

Round.Verify drives both servers' verifier sessions for one share pair,
serializing every share and packet on the way, the same way two servers
exchanging packets over a transport would. Round.Submit encodes, verifies
and aggregates one client. Round.Combine finalizes both stores and
reconstructs the aggregate.
*/
package testutil
