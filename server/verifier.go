package server

import (
	"fmt"
	"math/big"

	"github.com/flashbots/privstats/crypto"
	"github.com/flashbots/privstats/protocol"
)

// State is the position of a Verifier in the verification protocol.
type State int

const (
	StateCreated State = iota
	StateDataBound
	StatePacket1Ready
	StatePacket2Ready
	StateDecided
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateDataBound:
		return "data-bound"
	case StatePacket1Ready:
		return "packet1-ready"
	case StatePacket2Ready:
		return "packet2-ready"
	case StateDecided:
		return "decided"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Decision is the outcome of a verification.
type Decision int

const (
	Undecided Decision = iota
	Accept
	Reject
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "undecided"
	}
}

// Err returns protocol.ErrVerificationRejected for Reject and nil otherwise.
func (d Decision) Err() error {
	if d == Reject {
		return protocol.ErrVerificationRejected
	}
	return nil
}

// Verifier checks one client submission together with the peer server's
// Verifier for the same submission:
//
//	v.SetData(share)
//	p1, _ := v.Packet1()          // send p1 to the peer, receive peerP1
//	p2, _ := v.Packet2(p1, peerP1) // send p2 to the peer, receive peerP2
//	decision, _ := v.Decide(p2, peerP2)
//
// Packet2 cannot be computed before the peer's Packet1 is available. Both
// servers reach the same decision. A Verifier is not safe for concurrent use;
// an abandoned Verifier holds no resources besides its memory.
type Verifier struct {
	srv   *Server
	state State

	pairID protocol.PairID
	share  []*big.Int

	d, e *big.Int
	hr   *big.Int

	packet1  *protocol.Packet1
	packet2  *protocol.Packet2
	tainted  string
	decision Decision
}

// State returns the verifier's current state.
func (v *Verifier) State() State { return v.state }

// Decision returns the decision, or Undecided before Decide.
func (v *Verifier) Decision() Decision { return v.decision }

// PairID identifies the submission once data is bound.
func (v *Verifier) PairID() protocol.PairID { return v.pairID }

// Role returns the role of the owning server.
func (v *Verifier) Role() protocol.Role { return v.srv.role }

// Config returns the round config of the owning server.
func (v *Verifier) Config() *protocol.Config { return v.srv.cfg }

func (v *Verifier) expect(state State, op string) error {
	if err := v.srv.cfg.CheckOpen(); err != nil {
		return err
	}
	if v.state != state {
		return fmt.Errorf("%w: %s requires state %s, verifier is %s", protocol.ErrState, op, state, v.state)
	}
	return nil
}

// SetData binds this server's share of a client submission.
func (v *Verifier) SetData(share *protocol.ClientShare) error {
	if err := v.expect(StateCreated, "SetData"); err != nil {
		return err
	}
	if share == nil {
		return fmt.Errorf("%w: nil share", protocol.ErrMalformedShare)
	}
	if err := share.Validate(v.srv.cfg); err != nil {
		return err
	}
	if share.Role != v.srv.role {
		return fmt.Errorf("%w: share for server %s bound by server %s", protocol.ErrMalformedShare, share.Role, v.srv.role)
	}

	unpacked, err := v.srv.unpackShare(share)
	if err != nil {
		return err
	}

	r, err := v.srv.evalPoint(share.EphemeralKey)
	if err != nil {
		return err
	}

	v.share = unpacked
	if err := v.evaluate(r); err != nil {
		v.share = nil
		return err
	}
	v.pairID = protocol.NewPairID(share.BatchID, share.EphemeralKey)
	v.state = StateDataBound
	return nil
}

// evaluate computes this server's shares of f(r), g(r) and h(r).
func (v *Verifier) evaluate(r *big.Int) error {
	layout := v.srv.cfg.Proof()
	n := layout.N
	s := v.share

	fPoints := crypto.NewFieldVector(n)
	gPoints := crypto.NewFieldVector(n)
	fPoints[0].Set(s[layout.F0()])
	gPoints[0].Set(s[layout.G0()])
	one := big.NewInt(1)
	for i := 0; i < layout.M; i++ {
		fPoints[i+1].Set(s[i])
		gPoints[i+1].Set(s[i])
		// The constant of bit-1 is carried by server A alone.
		if v.srv.role == protocol.ServerA {
			crypto.FieldSubInplace(gPoints[i+1], one, crypto.FieldOrder)
		}
	}

	// h at the 2N-th roots: h0 first, zero at the other even points, the
	// transmitted values at the odd points.
	hPoints := crypto.NewFieldVector(2 * n)
	hPoints[0].Set(s[layout.H0()])
	for k := 0; k < n; k++ {
		hPoints[2*k+1].Set(s[layout.HPoints()+k])
	}

	fr, err := crypto.InterpolateAndEvaluate(fPoints, r, crypto.FieldOrder)
	if err != nil {
		return err
	}
	gr, err := crypto.InterpolateAndEvaluate(gPoints, r, crypto.FieldOrder)
	if err != nil {
		return err
	}
	hr, err := crypto.InterpolateAndEvaluate(hPoints, r, crypto.FieldOrder)
	if err != nil {
		return err
	}

	v.d = crypto.FieldSubInplace(fr, s[layout.TripleA()], crypto.FieldOrder)
	v.e = crypto.FieldSubInplace(gr, s[layout.TripleB()], crypto.FieldOrder)
	v.hr = hr
	return nil
}

// Packet1 returns this server's shares of d = f(r) - a and e = g(r) - b.
// It depends on this server's share only.
func (v *Verifier) Packet1() (*protocol.Packet1, error) {
	if err := v.expect(StateDataBound, "Packet1"); err != nil {
		return nil, err
	}
	v.packet1 = &protocol.Packet1{
		Role:   v.srv.role,
		PairID: v.pairID,
		D:      new(big.Int).Set(v.d),
		E:      new(big.Int).Set(v.e),
	}
	v.state = StatePacket1Ready
	return clonePacket1(v.packet1), nil
}

// Packet2 combines both servers' Packet1s into this server's share of
// f(r)*g(r) - h(r). own must be the packet returned by Packet1. A peer packet
// for another submission or from the wrong server still yields a Packet2,
// and the session is rejected at Decide.
func (v *Verifier) Packet2(own, peer *protocol.Packet1) (*protocol.Packet2, error) {
	if err := v.expect(StatePacket1Ready, "Packet2"); err != nil {
		return nil, err
	}
	if !samePacket1(own, v.packet1) {
		return nil, fmt.Errorf("%w: own packet1 does not belong to this verifier", protocol.ErrState)
	}
	if peer == nil {
		return nil, fmt.Errorf("%w: peer packet1 is required", protocol.ErrState)
	}

	switch {
	case peer.Role != v.srv.role.Peer():
		v.taint("peer packet1 from wrong server")
	case peer.PairID != v.pairID:
		v.taint("peer packet1 for another submission")
	case !validElement(peer.D) || !validElement(peer.E):
		v.taint("peer packet1 values out of range")
	}

	out := new(big.Int)
	if v.tainted == "" {
		out = v.computeOut(peer)
	}

	v.packet2 = &protocol.Packet2{Role: v.srv.role, PairID: v.pairID, Out: out}
	v.state = StatePacket2Ready
	return clonePacket2(v.packet2), nil
}

// computeOut evaluates this server's share of
// D*E/2 + D*[b] + E*[a] + [c] - [h(r)] where D and E are the opened sums
// of d and e. The two shares add up to f(r)*g(r) - h(r).
func (v *Verifier) computeOut(peer *protocol.Packet1) *big.Int {
	layout := v.srv.cfg.Proof()
	s := v.share
	order := crypto.FieldOrder

	D := crypto.FieldAddInplace(new(big.Int).Set(v.d), peer.D, order)
	E := crypto.FieldAddInplace(new(big.Int).Set(v.e), peer.E, order)

	out := crypto.FieldMulInplace(new(big.Int).Set(D), E, order)
	crypto.FieldMulInplace(out, crypto.FieldInverse(big.NewInt(2), order), order)

	t := crypto.FieldMulInplace(new(big.Int).Set(D), s[layout.TripleB()], order)
	crypto.FieldAddInplace(out, t, order)
	t = crypto.FieldMulInplace(new(big.Int).Set(E), s[layout.TripleA()], order)
	crypto.FieldAddInplace(out, t, order)
	crypto.FieldAddInplace(out, s[layout.TripleC()], order)
	crypto.FieldSubInplace(out, v.hr, order)
	return out
}

// Decide accepts iff both Packet2s add up to zero. own must be the packet
// returned by Packet2.
func (v *Verifier) Decide(own, peer *protocol.Packet2) (Decision, error) {
	if err := v.expect(StatePacket2Ready, "Decide"); err != nil {
		return Undecided, err
	}
	if !samePacket2(own, v.packet2) {
		return Undecided, fmt.Errorf("%w: own packet2 does not belong to this verifier", protocol.ErrState)
	}
	if peer == nil {
		return Undecided, fmt.Errorf("%w: peer packet2 is required", protocol.ErrState)
	}

	switch {
	case v.tainted != "":
	case peer.Role != v.srv.role.Peer():
		v.taint("peer packet2 from wrong server")
	case peer.PairID != v.pairID:
		v.taint("peer packet2 for another submission")
	case !validElement(peer.Out):
		v.taint("peer packet2 value out of range")
	}

	decision := Reject
	reason := v.tainted
	if reason == "" {
		sum := crypto.FieldAddInplace(new(big.Int).Set(v.packet2.Out), peer.Out, crypto.FieldOrder)
		if sum.Sign() == 0 {
			decision = Accept
		} else {
			reason = "proof check failed"
		}
	}

	v.decision = decision
	v.state = StateDecided
	v.srv.record(v.pairID, decision, reason)
	if decision == Reject {
		// Rejected data must never reach an aggregate.
		v.share = nil
	}
	return decision, nil
}

// DataShare returns this server's share of the accepted client's entries:
// bits for Boolean layouts, integer values for UInt layouts.
func (v *Verifier) DataShare() ([]*big.Int, error) {
	if v.state != StateDecided || v.decision != Accept {
		if v.state == StateDecided {
			return nil, fmt.Errorf("%w: %w", protocol.ErrState, protocol.ErrVerificationRejected)
		}
		return nil, fmt.Errorf("%w: verifier is %s, not accepted", protocol.ErrState, v.state)
	}
	layout := v.srv.cfg.Layout()
	return protocol.PackEntries(layout, v.share[:layout.MulGates()]), nil
}

func (v *Verifier) taint(reason string) {
	if v.tainted == "" {
		v.tainted = reason
	}
}

func validElement(x *big.Int) bool {
	return x != nil && crypto.IsFieldElement(x, crypto.FieldOrder)
}

func samePacket1(a, b *protocol.Packet1) bool {
	return a != nil && b != nil && a.Role == b.Role && a.PairID == b.PairID &&
		validElement(a.D) && validElement(a.E) && a.D.Cmp(b.D) == 0 && a.E.Cmp(b.E) == 0
}

func samePacket2(a, b *protocol.Packet2) bool {
	return a != nil && b != nil && a.Role == b.Role && a.PairID == b.PairID &&
		validElement(a.Out) && a.Out.Cmp(b.Out) == 0
}

func clonePacket1(p *protocol.Packet1) *protocol.Packet1 {
	return &protocol.Packet1{Role: p.Role, PairID: p.PairID, D: new(big.Int).Set(p.D), E: new(big.Int).Set(p.E)}
}

func clonePacket2(p *protocol.Packet2) *protocol.Packet2 {
	return &protocol.Packet2{Role: p.Role, PairID: p.PairID, Out: new(big.Int).Set(p.Out)}
}
