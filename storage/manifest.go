// Package storage persists the address manifest of a deployment run: the
// mapping of logical contract names to on-chain addresses. Every confirmed
// deployment is flushed to disk immediately, so a partially completed run can
// be inspected and resumed after a restart.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/programmerraja/maci/contracts"
	"github.com/programmerraja/maci/types"
)

// ErrStoreConflict is returned when the manifest archive step cannot complete
// safely, typically because a previous backup already occupies the archive
// path.
var ErrStoreConflict = errors.New("manifest store conflict")

// archiveSuffix is appended to the manifest path when an existing manifest is
// rotated out before a fresh run.
const archiveSuffix = ".old"

// snapshotSuffix is appended to the manifest path for the compact CBOR
// snapshot written next to the JSON file.
const snapshotSuffix = ".cbor"

// RunParameters records the derived and configured numbers of one run, so a
// manifest is self-describing. Capacities are exact big integers.
type RunParameters struct {
	StateTreeDepth      int            `json:"stateTreeDepth"`
	MessageTreeDepth    int            `json:"messageTreeDepth"`
	VoteOptionTreeDepth int            `json:"voteOptionTreeDepth"`
	MaxUsers            *types.BigInt  `json:"maxUsers"`
	MaxMessages         *types.BigInt  `json:"maxMessages"`
	CoordinatorPubKey   types.HexBytes `json:"coordinatorPubKey,omitempty"`
}

// Manifest is the persisted record of one deployment run. Contract entries
// are appended as each deployment confirms; the manifest of a completed run
// holds exactly one address per required logical contract.
type Manifest struct {
	RunID     string                    `json:"runId"`
	ChainID   uint64                    `json:"chainId,omitempty"`
	StartedAt time.Time                 `json:"startedAt"`
	Params    *RunParameters            `json:"parameters,omitempty"`
	Contracts map[string]common.Address `json:"contracts"`
}

// Address returns the recorded address for a logical contract name.
func (m *Manifest) Address(name string) (common.Address, bool) {
	addr, ok := m.Contracts[name]
	return addr, ok
}

// Complete reports whether the manifest holds an address for every required
// logical contract.
func (m *Manifest) Complete() bool {
	for _, name := range contracts.RequiredContracts {
		if _, ok := m.Contracts[name]; !ok {
			return false
		}
	}
	return true
}

// manifestSnapshot is the compact CBOR rendition of a manifest. Addresses
// are plain hex strings so the encoding stays independent of go-ethereum's
// JSON conventions.
type manifestSnapshot struct {
	RunID     string            `cbor:"runId"`
	ChainID   uint64            `cbor:"chainId,omitempty"`
	StartedAt time.Time         `cbor:"startedAt"`
	Params    *RunParameters    `cbor:"parameters,omitempty"`
	Contracts map[string]string `cbor:"contracts"`
}

func (m *Manifest) snapshot() *manifestSnapshot {
	contracts := make(map[string]string, len(m.Contracts))
	for name, addr := range m.Contracts {
		contracts[name] = addr.Hex()
	}
	return &manifestSnapshot{
		RunID:     m.RunID,
		ChainID:   m.ChainID,
		StartedAt: m.StartedAt,
		Params:    m.Params,
		Contracts: contracts,
	}
}

// clone returns a deep copy, so callers can hold a snapshot while the store
// keeps appending.
func (m *Manifest) clone() *Manifest {
	out := *m
	out.Contracts = make(map[string]common.Address, len(m.Contracts))
	for name, addr := range m.Contracts {
		out.Contracts[name] = addr
	}
	return &out
}

// Store is the durable address store. A single Store owns the manifest file;
// writes are serialized internally so concurrent deployment completions can
// record their addresses safely.
type Store struct {
	path string

	mu       sync.Mutex
	manifest *Manifest
}

// New creates a store backed by the manifest file at path. No file is touched
// until Reset or StoreContractAddress is called.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the manifest file path.
func (s *Store) Path() string {
	return s.path
}

// Reset archives any existing manifest file to the backup path and begins a
// new empty manifest for a fresh run. It fails with ErrStoreConflict if the
// backup path is already occupied, so a prior archive is never clobbered
// silently.
func (s *Store) Reset(chainID uint64, params *RunParameters) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		backup := s.path + archiveSuffix
		if _, err := os.Stat(backup); err == nil {
			return nil, fmt.Errorf("%w: archive %s already exists", ErrStoreConflict, backup)
		}
		if err := os.Rename(s.path, backup); err != nil {
			return nil, fmt.Errorf("%w: cannot archive previous manifest: %v", ErrStoreConflict, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cannot stat manifest file: %w", err)
	}
	// The snapshot is derived data, so the archived run keeps only its JSON
	// manifest. A stale snapshot is removed here and regenerated on flush.
	if err := os.Remove(s.path + snapshotSuffix); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("cannot remove stale manifest snapshot: %w", err)
	}

	s.manifest = &Manifest{
		RunID:     uuid.NewString(),
		ChainID:   chainID,
		StartedAt: time.Now().UTC(),
		Params:    params,
		Contracts: make(map[string]common.Address),
	}
	if err := s.flush(); err != nil {
		return nil, err
	}
	return s.manifest.clone(), nil
}

// StoreContractAddress records the address of one logical contract and
// flushes the manifest to disk immediately. Writing a name that already
// exists overwrites the prior address, which is how a deliberately redone
// deployment replaces its entry.
func (s *Store) StoreContractAddress(name string, addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifest == nil {
		loaded, err := s.load()
		if err != nil {
			return err
		}
		s.manifest = loaded
	}
	s.manifest.Contracts[name] = addr
	return s.flush()
}

// LoadManifest reads the persisted manifest state.
func (s *Store) LoadManifest() (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loaded, err := s.load()
	if err != nil {
		return nil, err
	}
	s.manifest = loaded
	return loaded.clone(), nil
}

func (s *Store) load() (*Manifest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest file: %w", err)
	}
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("malformed manifest file %s: %w", s.path, err)
	}
	if m.Contracts == nil {
		m.Contracts = make(map[string]common.Address)
	}
	return m, nil
}

// flush writes the manifest to durable storage: the operator-facing JSON
// file plus a compact CBOR snapshot next to it. Both writes are atomic, so
// readers never observe a partial manifest.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode manifest: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}
	compact, err := cbor.Marshal(s.manifest.snapshot())
	if err != nil {
		return fmt.Errorf("cannot encode manifest snapshot: %w", err)
	}
	return writeAtomic(s.path+snapshotSuffix, compact)
}

// writeAtomic writes data through a temporary file in the same directory
// that is renamed over the final path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temporary manifest file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cannot write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot close manifest file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cannot replace manifest file: %w", err)
	}
	return nil
}
