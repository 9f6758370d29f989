package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/programmerraja/maci/config"
	"github.com/programmerraja/maci/crypto/keys"
	"github.com/programmerraja/maci/internal"
)

const (
	defaultLogLevel  = "info"
	defaultLogOutput = "stdout"
)

// Version is the build version, set at build time with -ldflags
var Version = internal.Version

// Config holds the application configuration
type Config struct {
	Web3        Web3Config
	Tree        TreeConfig
	Batch       BatchConfig
	Duration    DurationConfig
	Coordinator CoordinatorConfig
	Log         LogConfig

	MaxVoteOptions int    `mapstructure:"maxvoteoptions"`
	VoiceCredits   int    `mapstructure:"voicecredits"`
	Output         string `mapstructure:"output"`
	Artifacts      string `mapstructure:"artifacts"`
}

// Web3Config holds Ethereum-related configuration, including the optional
// pre-existing contract addresses that replace fresh deployments.
type Web3Config struct {
	PrivKey          string `mapstructure:"privkey"`
	Rpc              string `mapstructure:"rpc"`
	SignUpToken      string `mapstructure:"signuptoken"`
	VoiceCreditProxy string `mapstructure:"voicecreditproxy"`
}

// TreeConfig holds the merkle tree depth settings.
type TreeConfig struct {
	State      int `mapstructure:"state"`
	Message    int `mapstructure:"message"`
	VoteOption int `mapstructure:"voteoption"`
}

// BatchConfig holds the proof batch size settings.
type BatchConfig struct {
	Tally   int `mapstructure:"tally"`
	Message int `mapstructure:"message"`
}

// DurationConfig holds the signup and voting window durations.
type DurationConfig struct {
	SignUp time.Duration `mapstructure:"signup"`
	Voting time.Duration `mapstructure:"voting"`
}

// CoordinatorConfig holds the coordinator key material. If no public key is
// supplied, it is derived from the private key.
type CoordinatorConfig struct {
	PrivKey string `mapstructure:"privkey"`
	PubKey  string `mapstructure:"pubkey"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("tree.state", config.DefaultStateTreeDepth)
	v.SetDefault("tree.message", config.DefaultMessageTreeDepth)
	v.SetDefault("tree.voteoption", config.DefaultVoteOptionTreeDepth)
	v.SetDefault("batch.tally", config.DefaultTallyBatchSize)
	v.SetDefault("batch.message", config.DefaultMessageBatchSize)
	v.SetDefault("duration.signup", config.DefaultSignUpDuration)
	v.SetDefault("duration.voting", config.DefaultVotingDuration)
	v.SetDefault("maxvoteoptions", config.DefaultVoteOptionsMaxLeafIndex)
	v.SetDefault("voicecredits", config.DefaultInitialVoiceCredits)
	v.SetDefault("output", config.DefaultManifestFile)
	v.SetDefault("artifacts", config.DefaultArtifactsDir)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)

	flag.StringP("web3.privkey", "k", "", "private key to use for the Ethereum account (required)")
	flag.StringP("web3.rpc", "w", "", "web3 rpc endpoint (required)")
	flag.String("web3.signuptoken", "", "pre-existing signup token contract address (skips its deployment)")
	flag.String("web3.voicecreditproxy", "", "pre-existing voice credit proxy contract address (skips its deployment)")
	flag.Int("tree.state", config.DefaultStateTreeDepth, "state tree depth")
	flag.Int("tree.message", config.DefaultMessageTreeDepth, "message tree depth")
	flag.Int("tree.voteoption", config.DefaultVoteOptionTreeDepth, "vote option tree depth")
	flag.Int("batch.tally", config.DefaultTallyBatchSize, "tally batch size")
	flag.Int("batch.message", config.DefaultMessageBatchSize, "message batch size")
	flag.Duration("duration.signup", config.DefaultSignUpDuration, "signup window duration (i.e. 1h or 90m)")
	flag.Duration("duration.voting", config.DefaultVotingDuration, "voting window duration (i.e. 1h or 90m)")
	flag.Int("maxvoteoptions", config.DefaultVoteOptionsMaxLeafIndex, "maximum vote option leaf index")
	flag.Int("voicecredits", config.DefaultInitialVoiceCredits, "initial voice credit balance per participant")
	flag.String("coordinator.privkey", "", "coordinator private key (decimal or hex)")
	flag.String("coordinator.pubkey", "", "coordinator public key as \"x,y\" (used verbatim if set)")
	flag.StringP("output", "o", config.DefaultManifestFile, "output file for the deployed contract addresses")
	flag.String("artifacts", config.DefaultArtifactsDir, "directory with the compiled contract artifacts")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error)")
	flag.String("log.output", defaultLogOutput, "log output (stdout, stderr or filepath)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "maci-deploy v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: maci-deploy [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dashes (-) and dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, MACI_WEB3_PRIVKEY or MACI_COORDINATOR_PUBKEY\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Deploy the full contract set with default parameters\n")
		fmt.Fprintf(os.Stderr, "  maci-deploy --web3.privkey=0x123... --web3.rpc=http://localhost:8545 --coordinator.privkey=8657...\n\n")
		fmt.Fprintf(os.Stderr, "  # Reuse an already deployed signup token\n")
		fmt.Fprintf(os.Stderr, "  maci-deploy --web3.privkey=0x123... --web3.rpc=http://localhost:8545 \\\n")
		fmt.Fprintf(os.Stderr, "      --coordinator.privkey=8657... --web3.signuptoken=0xabc...\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	v.SetEnvPrefix("MACI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Web3.PrivKey == "" {
		return fmt.Errorf("ethereum private key is required (use --web3.privkey or MACI_WEB3_PRIVKEY)")
	}
	if cfg.Web3.Rpc == "" {
		return fmt.Errorf("web3 rpc endpoint is required (use --web3.rpc or MACI_WEB3_RPC)")
	}
	if cfg.Coordinator.PrivKey == "" && cfg.Coordinator.PubKey == "" {
		return fmt.Errorf("coordinator key material is required (use --coordinator.privkey or --coordinator.pubkey)")
	}
	for _, addr := range []struct {
		flag  string
		value string
	}{
		{"web3.signuptoken", cfg.Web3.SignUpToken},
		{"web3.voicecreditproxy", cfg.Web3.VoiceCreditProxy},
	} {
		if addr.value != "" && !common.IsHexAddress(addr.value) {
			return fmt.Errorf("invalid address %q for --%s", addr.value, addr.flag)
		}
	}
	if cfg.Coordinator.PubKey != "" {
		if _, err := keys.PublicKeyFromString(cfg.Coordinator.PubKey); err != nil {
			return fmt.Errorf("invalid coordinator public key: %w", err)
		}
	}
	return nil
}
