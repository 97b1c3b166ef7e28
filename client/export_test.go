package client

import (
	"math/big"

	"github.com/flashbots/privstats/protocol"
)

// EncodeRawBits encodes bits without range checks, to build invalid
// submissions with a well-formed proof.
func (e *Encoder) EncodeRawBits(bits []*big.Int) (*protocol.ClientShare, *protocol.ClientShare, error) {
	return e.encodeBits(bits)
}

// EncodeModified encodes data, lets modify change the unshared packet, then
// shares and seals the result as an honest client would.
func (e *Encoder) EncodeModified(data []uint64, modify func(packet []*big.Int)) (*protocol.ClientShare, *protocol.ClientShare, error) {
	bits, err := protocol.EncodeBits(e.cfg.Layout(), data)
	if err != nil {
		return nil, nil, err
	}
	packet, err := buildProofPacket(e.cfg.Proof(), bits)
	if err != nil {
		return nil, nil, err
	}
	modify(packet)
	return e.sharePacket(packet)
}

// BuildProofPacket exposes the unshared packet.
var BuildProofPacket = buildProofPacket
