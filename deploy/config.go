package deploy

import (
	"fmt"
	"time"

	"github.com/programmerraja/maci/crypto/keys"
	"github.com/programmerraja/maci/types"
)

// Config is the immutable input of one deployment run. It is passed by value
// into each component; nothing reads configuration ambiently.
type Config struct {
	StateTreeDepth      int
	MessageTreeDepth    int
	VoteOptionTreeDepth int

	TallyBatchSize   int
	MessageBatchSize int

	// VoteOptionsMaxLeafIndex bounds the vote option leaves in use. It can
	// be zero when only one option exists.
	VoteOptionsMaxLeafIndex int

	SignUpDuration time.Duration
	VotingDuration time.Duration

	InitialVoiceCredits *types.BigInt

	// CoordinatorPubKey, when set, is used verbatim. Otherwise the public
	// key is derived from CoordinatorPrivKey.
	CoordinatorPubKey  *keys.CoordinatorPublicKey
	CoordinatorPrivKey *keys.CoordinatorPrivateKey
}

// Validate checks the configuration invariants. It runs before any chain
// interaction, so a malformed configuration never costs a transaction.
func (c *Config) Validate() error {
	for _, d := range []struct {
		name  string
		value int
	}{
		{"state tree depth", c.StateTreeDepth},
		{"message tree depth", c.MessageTreeDepth},
		{"vote option tree depth", c.VoteOptionTreeDepth},
		{"tally batch size", c.TallyBatchSize},
		{"message batch size", c.MessageBatchSize},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidParameter, d.name, d.value)
		}
		// The constructor encodes depths and batch sizes as uint8; reject
		// anything that would truncate.
		if d.value > 255 {
			return fmt.Errorf("%w: %s must fit in 8 bits, got %d", ErrInvalidParameter, d.name, d.value)
		}
	}
	if c.VoteOptionsMaxLeafIndex < 0 {
		return fmt.Errorf("%w: vote options max leaf index must not be negative", ErrInvalidParameter)
	}
	if c.SignUpDuration < 0 || c.VotingDuration < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidParameter)
	}
	if c.InitialVoiceCredits == nil || c.InitialVoiceCredits.MathBigInt().Sign() < 0 {
		return fmt.Errorf("%w: initial voice credit balance must not be negative", ErrInvalidParameter)
	}
	if c.CoordinatorPubKey == nil && c.CoordinatorPrivKey == nil {
		return fmt.Errorf("%w: either a coordinator public key or private key is required", ErrInvalidParameter)
	}
	return nil
}
