// Package deploy orchestrates the ordered deployment of the voting protocol
// contracts. Every contract's constructor depends on addresses and derived
// parameters produced by earlier steps, so the plan is a fixed dependency
// ordered pipeline: optional slots first, then the gatekeeper, then the
// independent library and verifier contracts, and finally the main contract
// that ties everything together.
package deploy

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/programmerraja/maci/contracts"
	"github.com/programmerraja/maci/log"
	"github.com/programmerraja/maci/storage"
)

// ContractDeployer is the capability that submits a deployment transaction
// and blocks until the contract address is known. Implementations link the
// given library addresses into the artifact bytecode and pack the constructor
// arguments; the orchestrator never inspects artifact internals.
type ContractDeployer interface {
	Deploy(ctx context.Context, artifact *contracts.Artifact, libraries map[string]common.Address, args ...any) (common.Address, error)
}

// ArtifactSource resolves logical contract names to compiled artifacts.
type ArtifactSource interface {
	Artifact(name string) (*contracts.Artifact, error)
}

// Orchestrator executes the deployment plan. It owns the address store for
// the duration of a run: every confirmed address is flushed before the next
// step is issued, so progress survives a crash.
type Orchestrator struct {
	deployer  ContractDeployer
	artifacts ArtifactSource
	store     *storage.Store
}

// NewOrchestrator creates an orchestrator from its three collaborators.
func NewOrchestrator(deployer ContractDeployer, artifacts ArtifactSource, store *storage.Store) *Orchestrator {
	return &Orchestrator{
		deployer:  deployer,
		artifacts: artifacts,
		store:     store,
	}
}

// Constructor argument tuples of the main contract, mirroring its ABI.
type treeDepthsArg struct {
	StateTreeDepth      uint8
	MessageTreeDepth    uint8
	VoteOptionTreeDepth uint8
}

type batchSizesArg struct {
	TallyBatchSize   uint8
	MessageBatchSize uint8
}

type maxValuesArg struct {
	MaxUsers           *big.Int
	MaxMessages        *big.Int
	MaxVoteOptionIndex *big.Int
}

type pubKeyArg struct {
	X *big.Int
	Y *big.Int
}

// Run executes the full deployment plan and returns the completed address
// manifest. Parameter validation and key resolution happen before any chain
// interaction; after that, the first failing step aborts the remaining plan
// and the error carries the partial manifest persisted so far. Nothing is
// retried here: re-invoking the run with the already-deployed addresses as
// overrides is the retry path.
func (o *Orchestrator) Run(ctx context.Context, cfg *Config, overrides Overrides) (*storage.Manifest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	maxUsers, maxMessages, err := DeriveCapacities(cfg.StateTreeDepth, cfg.MessageTreeDepth)
	if err != nil {
		return nil, err
	}
	coordinatorKey, err := ResolveCoordinatorKey(cfg.CoordinatorPubKey, cfg.CoordinatorPrivKey)
	if err != nil {
		return nil, err
	}

	var chainID uint64
	if withChain, ok := o.deployer.(interface{ ChainID() uint64 }); ok {
		chainID = withChain.ChainID()
	}
	if _, err := o.store.Reset(chainID, &storage.RunParameters{
		StateTreeDepth:      cfg.StateTreeDepth,
		MessageTreeDepth:    cfg.MessageTreeDepth,
		VoteOptionTreeDepth: cfg.VoteOptionTreeDepth,
		MaxUsers:            maxUsers,
		MaxMessages:         maxMessages,
		CoordinatorPubKey:   coordinatorKey.Compress(),
	}); err != nil {
		return nil, err
	}
	log.Infow("starting deployment run",
		"maxUsers", maxUsers.String(),
		"maxMessages", maxMessages.String(),
		"coordinatorPubKey", coordinatorKey.String(),
	)

	// Optional slots, resolved once up front: reuse the supplied address or
	// deploy fresh.
	tokenAddr, err := o.resolveSlot(ctx, contracts.SignUpToken, slotFor(overrides.SignUpToken))
	if err != nil {
		return nil, err
	}
	proxyAddr, err := o.resolveSlot(ctx, contracts.InitialVoiceCreditProxy, slotFor(overrides.InitialVoiceCreditProxy),
		cfg.InitialVoiceCredits.MathBigInt())
	if err != nil {
		return nil, err
	}

	// The gatekeeper guards sign-ups with the token contract.
	gatekeeperAddr, err := o.deployContract(ctx, contracts.SignUpTokenGatekeeper, nil, tokenAddr)
	if err != nil {
		return nil, err
	}

	// The hashing library and the two verifiers have no dependencies among
	// themselves, so they deploy concurrently; all must complete before the
	// main contract.
	var mimcAddr, batchUstAddr, qvtAddr common.Address
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mimcAddr, err = o.deployContract(gctx, contracts.MiMC, nil)
		return err
	})
	g.Go(func() error {
		var err error
		batchUstAddr, err = o.deployContract(gctx, contracts.BatchUstVerifier, nil)
		return err
	})
	g.Go(func() error {
		var err error
		qvtAddr, err = o.deployContract(gctx, contracts.QvtVerifier, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Main contract: every dependency is a concrete value by now.
	if _, err := o.deployContract(ctx, contracts.MACI,
		map[string]common.Address{contracts.MiMC: mimcAddr},
		treeDepthsArg{
			StateTreeDepth:      uint8(cfg.StateTreeDepth),
			MessageTreeDepth:    uint8(cfg.MessageTreeDepth),
			VoteOptionTreeDepth: uint8(cfg.VoteOptionTreeDepth),
		},
		batchSizesArg{
			TallyBatchSize:   uint8(cfg.TallyBatchSize),
			MessageBatchSize: uint8(cfg.MessageBatchSize),
		},
		maxValuesArg{
			MaxUsers:           maxUsers.MathBigInt(),
			MaxMessages:        maxMessages.MathBigInt(),
			MaxVoteOptionIndex: big.NewInt(int64(cfg.VoteOptionsMaxLeafIndex)),
		},
		gatekeeperAddr,
		batchUstAddr,
		qvtAddr,
		big.NewInt(int64(cfg.SignUpDuration.Seconds())),
		big.NewInt(int64(cfg.VotingDuration.Seconds())),
		proxyAddr,
		pubKeyArg{
			X: coordinatorKey.X.MathBigInt(),
			Y: coordinatorKey.Y.MathBigInt(),
		},
	); err != nil {
		return nil, err
	}

	manifest, err := o.store.LoadManifest()
	if err != nil {
		return nil, fmt.Errorf("deployment completed but manifest could not be read back: %w", err)
	}
	log.Infow("deployment run completed", "contracts", len(manifest.Contracts), "manifest", o.store.Path())
	return manifest, nil
}

// resolveSlot records a reused address verbatim, or deploys the contract
// fresh when no override was supplied.
func (o *Orchestrator) resolveSlot(ctx context.Context, name string, slot Slot, args ...any) (common.Address, error) {
	if addr, ok := slot.Reused(); ok {
		if err := o.store.StoreContractAddress(name, addr); err != nil {
			return common.Address{}, o.fail(name, err)
		}
		log.Infow("reusing existing contract", "name", name, "address", addr.Hex())
		return addr, nil
	}
	return o.deployContract(ctx, name, nil, args...)
}

// deployContract runs one step of the plan: load the artifact, deploy it
// through the capability, and persist the confirmed address before
// returning.
func (o *Orchestrator) deployContract(ctx context.Context, name string, libraries map[string]common.Address, args ...any) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, o.fail(name, err)
	}
	artifact, err := o.artifacts.Artifact(name)
	if err != nil {
		return common.Address{}, o.fail(name, err)
	}
	addr, err := o.deployer.Deploy(ctx, artifact, libraries, args...)
	if err != nil {
		return common.Address{}, o.fail(name, err)
	}
	if err := o.store.StoreContractAddress(name, addr); err != nil {
		return common.Address{}, o.fail(name, err)
	}
	log.Infow("deployed contract", "name", name, "address", addr.Hex())
	return addr, nil
}

// fail wraps a step failure with the partial manifest persisted so far, so
// completed addresses are surfaced to the caller instead of being lost.
func (o *Orchestrator) fail(name string, err error) error {
	partial, loadErr := o.store.LoadManifest()
	if loadErr != nil {
		partial = nil
	}
	return &DeploymentError{Contract: name, Partial: partial, Err: err}
}
