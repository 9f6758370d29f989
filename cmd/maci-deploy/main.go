package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/programmerraja/maci/contracts"
	"github.com/programmerraja/maci/crypto/keys"
	"github.com/programmerraja/maci/deploy"
	"github.com/programmerraja/maci/log"
	"github.com/programmerraja/maci/storage"
	"github.com/programmerraja/maci/types"
	"github.com/programmerraja/maci/web3"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log.Level, cfg.Log.Output)
	log.Infow("starting maci-deploy", "version", Version)

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	deployConfig, overrides, err := buildDeployment(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Cancellation stops issuing further deployment steps; transactions
	// already submitted may still confirm on chain.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deployer, err := web3.NewDeployer(ctx, cfg.Web3.Rpc, cfg.Web3.PrivKey)
	if err != nil {
		log.Fatalf("Failed to set up web3 deployer: %v", err)
	}
	defer deployer.Close()

	orchestrator := deploy.NewOrchestrator(
		deployer,
		contracts.NewRepository(cfg.Artifacts),
		storage.New(cfg.Output),
	)

	manifest, err := orchestrator.Run(ctx, deployConfig, overrides)
	if err != nil {
		var depErr *deploy.DeploymentError
		if errors.As(err, &depErr) && depErr.Partial != nil {
			for name, addr := range depErr.Partial.Contracts {
				log.Warnw("contract deployed before failure", "name", name, "address", addr.Hex())
			}
			log.Warnw("partial manifest preserved", "path", cfg.Output,
				"hint", "supply the recorded addresses as overrides to resume")
		}
		log.Fatalf("Deployment failed: %v", err)
	}

	for _, name := range contracts.RequiredContracts {
		addr, _ := manifest.Address(name)
		log.Infow("contract ready", "name", name, "address", addr.Hex())
	}
	log.Infow("all contracts deployed", "manifest", cfg.Output, "runId", manifest.RunID)
}

// buildDeployment translates the CLI configuration into the orchestrator's
// typed inputs.
func buildDeployment(cfg *Config) (*deploy.Config, deploy.Overrides, error) {
	deployConfig := &deploy.Config{
		StateTreeDepth:          cfg.Tree.State,
		MessageTreeDepth:        cfg.Tree.Message,
		VoteOptionTreeDepth:     cfg.Tree.VoteOption,
		TallyBatchSize:          cfg.Batch.Tally,
		MessageBatchSize:        cfg.Batch.Message,
		VoteOptionsMaxLeafIndex: cfg.MaxVoteOptions,
		SignUpDuration:          cfg.Duration.SignUp,
		VotingDuration:          cfg.Duration.Voting,
		InitialVoiceCredits:     types.NewInt(cfg.VoiceCredits),
	}
	if cfg.Coordinator.PubKey != "" {
		pub, err := keys.PublicKeyFromString(cfg.Coordinator.PubKey)
		if err != nil {
			return nil, deploy.Overrides{}, err
		}
		deployConfig.CoordinatorPubKey = pub
	}
	if cfg.Coordinator.PrivKey != "" {
		priv, err := keys.PrivateKeyFromString(cfg.Coordinator.PrivKey)
		if err != nil {
			return nil, deploy.Overrides{}, err
		}
		deployConfig.CoordinatorPrivKey = priv
	}

	overrides := deploy.Overrides{}
	if cfg.Web3.SignUpToken != "" {
		addr := common.HexToAddress(cfg.Web3.SignUpToken)
		overrides.SignUpToken = &addr
	}
	if cfg.Web3.VoiceCreditProxy != "" {
		addr := common.HexToAddress(cfg.Web3.VoiceCreditProxy)
		overrides.InitialVoiceCreditProxy = &addr
	}
	return deployConfig, overrides, nil
}
