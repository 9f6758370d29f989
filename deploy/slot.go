package deploy

import "github.com/ethereum/go-ethereum/common"

// Slot is the resolved policy for one optional contract: either reuse a
// caller-supplied address or deploy a fresh instance. Slots are resolved once
// up front, so the deployment plan itself stays free of presence checks.
type Slot struct {
	addr  common.Address
	reuse bool
}

// ReuseSlot marks a slot as satisfied by an existing contract at addr. The
// address is trusted as supplied; no on-chain validation happens here.
func ReuseSlot(addr common.Address) Slot {
	return Slot{addr: addr, reuse: true}
}

// DeployFreshSlot marks a slot as requiring a fresh deployment.
func DeployFreshSlot() Slot {
	return Slot{}
}

// Reused returns the supplied address and whether the slot reuses one.
func (s Slot) Reused() (common.Address, bool) {
	return s.addr, s.reuse
}

// Overrides carries the caller-supplied addresses for the optional contract
// slots. A nil entry means the contract is deployed fresh.
type Overrides struct {
	SignUpToken             *common.Address
	InitialVoiceCreditProxy *common.Address
}

func slotFor(override *common.Address) Slot {
	if override != nil {
		return ReuseSlot(*override)
	}
	return DeployFreshSlot()
}
