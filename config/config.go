// Package config holds the default deployment parameters. Callers copy them
// into an explicit deploy.Config; nothing reads these ambiently at run time.
package config

import "time"

// Default tree depths and batch sizes. A state tree of depth 4 admits
// 2^4 - 1 = 15 participants, which is enough for local testing; production
// runs override these.
const (
	DefaultStateTreeDepth      = 4
	DefaultMessageTreeDepth    = 4
	DefaultVoteOptionTreeDepth = 2

	DefaultTallyBatchSize   = 4
	DefaultMessageBatchSize = 4

	DefaultVoteOptionsMaxLeafIndex = 3
)

// Default duration windows and voice credit budget.
const (
	DefaultSignUpDuration      = time.Hour
	DefaultVotingDuration      = time.Hour
	DefaultInitialVoiceCredits = 100
)

// DefaultManifestFile is the default path of the persisted address manifest.
const DefaultManifestFile = "maci-addresses.json"

// DefaultArtifactsDir is the default directory holding the compiled contract
// artifact JSON files.
const DefaultArtifactsDir = "artifacts"
