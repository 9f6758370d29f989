package deploy

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/programmerraja/maci/types"
)

func TestConfigValidate(t *testing.T) {
	c := qt.New(t)

	c.Run("valid", func(c *qt.C) {
		c.Assert(testConfig().Validate(), qt.IsNil)
	})

	c.Run("invalid", func(c *qt.C) {
		for name, mutate := range map[string]func(*Config){
			"zero state tree depth":    func(cfg *Config) { cfg.StateTreeDepth = 0 },
			"negative message depth":   func(cfg *Config) { cfg.MessageTreeDepth = -1 },
			"oversized depth":          func(cfg *Config) { cfg.StateTreeDepth = 256 },
			"zero tally batch size":    func(cfg *Config) { cfg.TallyBatchSize = 0 },
			"negative max leaf index":  func(cfg *Config) { cfg.VoteOptionsMaxLeafIndex = -1 },
			"negative signup duration": func(cfg *Config) { cfg.SignUpDuration = -1 },
			"negative voice credits":   func(cfg *Config) { cfg.InitialVoiceCredits = types.NewInt(-1) },
			"missing voice credits":    func(cfg *Config) { cfg.InitialVoiceCredits = nil },
			"missing coordinator keys": func(cfg *Config) { cfg.CoordinatorPrivKey = nil; cfg.CoordinatorPubKey = nil },
		} {
			cfg := testConfig()
			mutate(cfg)
			c.Assert(errors.Is(cfg.Validate(), ErrInvalidParameter), qt.IsTrue, qt.Commentf("%s", name))
		}
	})
}
