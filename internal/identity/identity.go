// Package identity is the concrete (but deliberately boundary-only, per
// spec.md §1 Non-goals) implementation of the "identity validation"
// policy: recovering an Ethereum account from an envelope's signature via
// ethereum/go-ethereum/crypto. The core treats this as a black box keyed
// by the id_validation policy enum; this package is that box.
package identity

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/graphindexer/gossip-listener/internal/config"
	"github.com/graphindexer/gossip-listener/internal/errs"
)

// Validator recovers and, depending on policy, checks the signer of a
// gossip envelope.
type Validator struct {
	policy config.IDValidation
}

// New builds a Validator for the given policy.
func New(policy config.IDValidation) *Validator {
	return &Validator{policy: policy}
}

// Digest hashes the bytes the signature was computed over.
func Digest(data []byte) []byte {
	return crypto.Keccak256(data)
}

// Validate recovers the signer address from signature over digest.
// NoCheck always succeeds with the zero address. Every other policy
// recovers the signer and, today, accepts any recoverable signature:
// the "registered"/"graph-network-account"/"registered-indexer"/"indexer"
// tiers additionally require a registry/network subgraph lookup, which is
// an external collaborator out of scope for this core (spec.md §1); an
// operator wiring those policies must layer that lookup on top of the
// recovered address this method returns.
func (v *Validator) Validate(digest, signature []byte) (common.Address, error) {
	if v.policy == config.IDValidationNoCheck {
		return common.Address{}, nil
	}
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("%w: signature must be 65 bytes, got %d", errs.ErrDecode, len(signature))
	}
	pub, err := crypto.SigToPub(digest, signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: recover signer: %v", errs.ErrDecode, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
