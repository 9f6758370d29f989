package deploy

import (
	"errors"
	"fmt"

	"github.com/programmerraja/maci/storage"
)

// ErrInvalidParameter marks a malformed or out-of-range configuration value.
// It always fires before any deployment transaction is issued.
var ErrInvalidParameter = errors.New("invalid deployment parameter")

// DeploymentError reports that a specific contract's deployment did not
// confirm. The remaining plan is aborted, but the addresses recorded before
// the failure are carried along so they are not lost: the caller can feed
// them back in as overrides and re-invoke the run.
type DeploymentError struct {
	// Contract is the logical name of the contract that failed to deploy.
	Contract string
	// Partial is the manifest as persisted up to the failure point. May be
	// nil when the failure happened before the store was initialized.
	Partial *storage.Manifest
	// Err is the underlying deployer failure.
	Err error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("deployment of %s failed: %v", e.Contract, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}
