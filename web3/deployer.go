// Package web3 implements the contract deployer capability on top of a
// go-ethereum JSON-RPC client: it links library addresses into artifact
// bytecode, packs constructor arguments, submits the creation transaction
// and blocks until the receipt confirms.
package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/programmerraja/maci/contracts"
	"github.com/programmerraja/maci/deploy"
	"github.com/programmerraja/maci/log"
)

var _ deploy.ContractDeployer = (*Deployer)(nil)

const (
	// web3QueryTimeout bounds individual RPC queries (nonce, chain id).
	web3QueryTimeout = 10 * time.Second

	// receiptPollInterval is how often a pending deployment transaction is
	// checked for its receipt.
	receiptPollInterval = time.Second
)

// Deployer submits contract creation transactions signed with a single
// account and waits for confirmation. It satisfies deploy.ContractDeployer.
type Deployer struct {
	cli     *ethclient.Client
	signer  *ecdsa.PrivateKey
	chainID *big.Int
}

// NewDeployer connects to the given web3 RPC endpoint and prepares a deployer
// signing with the given hex-encoded private key.
func NewDeployer(ctx context.Context, rpcURL, hexPrivKey string) (*Deployer, error) {
	cli, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to web3 endpoint %s: %w", rpcURL, err)
	}
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	chainID, err := cli.ChainID(qctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get chain id: %w", err)
	}
	signer, err := ethcrypto.HexToECDSA(strings.TrimPrefix(hexPrivKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse account private key: %w", err)
	}
	log.Infow("web3 deployer initialized",
		"endpoint", rpcURL,
		"chainID", chainID.Uint64(),
		"account", ethcrypto.PubkeyToAddress(signer.PublicKey).Hex(),
	)
	return &Deployer{cli: cli, signer: signer, chainID: chainID}, nil
}

// ChainID returns the chain id of the connected network.
func (d *Deployer) ChainID() uint64 {
	return d.chainID.Uint64()
}

// AccountAddress returns the address of the account used to sign deployment
// transactions.
func (d *Deployer) AccountAddress() common.Address {
	return ethcrypto.PubkeyToAddress(d.signer.PublicKey)
}

// Close releases the underlying RPC client.
func (d *Deployer) Close() {
	d.cli.Close()
}

// Deploy links the artifact against the given library addresses, submits the
// creation transaction with the packed constructor arguments and blocks until
// it is mined. The returned address is only valid once the receipt reports
// success.
func (d *Deployer) Deploy(ctx context.Context, artifact *contracts.Artifact, libraries map[string]common.Address, args ...any) (common.Address, error) {
	bin, err := artifact.Link(libraries)
	if err != nil {
		return common.Address{}, err
	}
	opts, err := d.authTransactOpts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	addr, tx, _, err := bind.DeployContract(opts, artifact.ABI, bin, d.cli, args...)
	if err != nil {
		return common.Address{}, fmt.Errorf("cannot submit deployment of %s: %w", artifact.ContractName, err)
	}
	log.Debugw("deployment transaction sent",
		"contract", artifact.ContractName,
		"tx", tx.Hash().Hex(),
		"address", addr.Hex(),
	)
	if err := d.waitTx(ctx, tx.Hash()); err != nil {
		return common.Address{}, fmt.Errorf("deployment of %s: %w", artifact.ContractName, err)
	}
	return addr, nil
}

// authTransactOpts builds keyed transact options with the current pending
// nonce of the deployer account.
func (d *Deployer) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(d.signer, d.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	nonce, err := d.cli.PendingNonceAt(qctx, d.AccountAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	auth.Context = ctx
	return auth, nil
}

// waitTx blocks until the transaction is mined, polling for its receipt. A
// mined receipt with a failure status means the deployment reverted. The wait
// is bounded only by ctx: chain confirmation can take an unbounded time.
func (d *Deployer) waitTx(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
		receipt, err := d.cli.TransactionReceipt(qctx, txHash)
		cancel()
		switch {
		case err == nil:
			if receipt.Status != 1 {
				return fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		case errors.Is(err, ethereum.NotFound):
			// Still pending.
		default:
			log.Warnw("failed to query transaction receipt", "tx", txHash.Hex(), "error", err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for tx %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
