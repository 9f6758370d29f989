package deploy

import (
	"fmt"
	"math/big"

	"github.com/programmerraja/maci/crypto/keys"
	"github.com/programmerraja/maci/types"
)

// DeriveCapacities computes the capacity limits implied by the tree depths:
// a tree of depth d holds 2^d leaves, one of which is reserved, so the
// maximum is 2^d - 1. The arithmetic is exact big-integer arithmetic all the
// way through; depths beyond the machine word range still derive correctly.
func DeriveCapacities(stateTreeDepth, messageTreeDepth int) (maxUsers, maxMessages *types.BigInt, err error) {
	users, err := capacity(stateTreeDepth)
	if err != nil {
		return nil, nil, fmt.Errorf("state tree: %w", err)
	}
	messages, err := capacity(messageTreeDepth)
	if err != nil {
		return nil, nil, fmt.Errorf("message tree: %w", err)
	}
	return users, messages, nil
}

func capacity(depth int) (*types.BigInt, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("%w: tree depth must be positive, got %d", ErrInvalidParameter, depth)
	}
	c := new(big.Int).Exp(big.NewInt(2), big.NewInt(int64(depth)), nil)
	c.Sub(c, big.NewInt(1))
	return (*types.BigInt)(c), nil
}

// ResolveCoordinatorKey returns the coordinator public key for a run. A
// supplied public key is used verbatim and never re-derived; otherwise the
// key is derived deterministically from the private key. The derivation is
// pure, so resolving twice with the same inputs yields identical output.
func ResolveCoordinatorKey(pub *keys.CoordinatorPublicKey, priv *keys.CoordinatorPrivateKey) (*keys.CoordinatorPublicKey, error) {
	if pub != nil {
		return pub, nil
	}
	if priv == nil {
		return nil, fmt.Errorf("%w: neither a coordinator public key nor a private key is available", ErrInvalidParameter)
	}
	return priv.Public(), nil
}
