package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"

	"github.com/programmerraja/maci/contracts"
	"github.com/programmerraja/maci/types"
)

func testStore(t *testing.T) *Store {
	return New(filepath.Join(t.TempDir(), "maci-addresses.json"))
}

func TestStoreResetAndStore(t *testing.T) {
	c := qt.New(t)
	s := testStore(t)

	m, err := s.Reset(1337, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(m.RunID, qt.Not(qt.Equals), "")
	c.Assert(m.Contracts, qt.HasLen, 0)

	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	c.Assert(s.StoreContractAddress("X", addr), qt.IsNil)

	loaded, err := s.LoadManifest()
	c.Assert(err, qt.IsNil)
	c.Assert(loaded.Contracts, qt.HasLen, 1)
	got, ok := loaded.Address("X")
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, addr)
	c.Assert(loaded.RunID, qt.Equals, m.RunID)
}

func TestStoreResetArchivesPreviousManifest(t *testing.T) {
	c := qt.New(t)
	s := testStore(t)

	first, err := s.Reset(1, nil)
	c.Assert(err, qt.IsNil)
	addr := common.HexToAddress("0x01")
	c.Assert(s.StoreContractAddress(contracts.SignUpToken, addr), qt.IsNil)

	second, err := s.Reset(1, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(second.RunID, qt.Not(qt.Equals), first.RunID)
	c.Assert(second.Contracts, qt.HasLen, 0)

	// The previous run's addresses survive at the backup path.
	backup, err := os.ReadFile(s.Path() + archiveSuffix)
	c.Assert(err, qt.IsNil)
	c.Assert(string(backup), qt.Contains, first.RunID)

	// A third reset cannot archive safely: the backup slot is taken.
	_, err = s.Reset(1, nil)
	c.Assert(errors.Is(err, ErrStoreConflict), qt.IsTrue)
}

func TestStoreOverwriteSameName(t *testing.T) {
	c := qt.New(t)
	s := testStore(t)

	_, err := s.Reset(1, nil)
	c.Assert(err, qt.IsNil)

	c.Assert(s.StoreContractAddress(contracts.MACI, common.HexToAddress("0x01")), qt.IsNil)
	c.Assert(s.StoreContractAddress(contracts.MACI, common.HexToAddress("0x02")), qt.IsNil)

	m, err := s.LoadManifest()
	c.Assert(err, qt.IsNil)
	c.Assert(m.Contracts, qt.HasLen, 1)
	got, _ := m.Address(contracts.MACI)
	c.Assert(got, qt.Equals, common.HexToAddress("0x02"))
}

func TestStoreConcurrentWrites(t *testing.T) {
	c := qt.New(t)
	s := testStore(t)

	_, err := s.Reset(1, nil)
	c.Assert(err, qt.IsNil)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("Contract%d", i)
			addr := common.BigToAddress(types.NewInt(i + 1).MathBigInt())
			c.Check(s.StoreContractAddress(name, addr), qt.IsNil)
		}(i)
	}
	wg.Wait()

	m, err := s.LoadManifest()
	c.Assert(err, qt.IsNil)
	c.Assert(m.Contracts, qt.HasLen, n)
	for i := 0; i < n; i++ {
		got, ok := m.Address(fmt.Sprintf("Contract%d", i))
		c.Assert(ok, qt.IsTrue)
		c.Assert(got, qt.Equals, common.BigToAddress(types.NewInt(i+1).MathBigInt()))
	}
}

func TestStoreWritesSnapshot(t *testing.T) {
	c := qt.New(t)
	s := testStore(t)

	params := &RunParameters{
		StateTreeDepth:      4,
		MessageTreeDepth:    4,
		VoteOptionTreeDepth: 2,
		MaxUsers:            types.NewInt(15),
		MaxMessages:         types.NewInt(15),
		CoordinatorPubKey:   types.HexBytes{0x01, 0x02, 0x03},
	}
	first, err := s.Reset(1337, params)
	c.Assert(err, qt.IsNil)
	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	c.Assert(s.StoreContractAddress(contracts.MiMC, addr), qt.IsNil)

	raw, err := os.ReadFile(s.Path() + snapshotSuffix)
	c.Assert(err, qt.IsNil)
	var snap manifestSnapshot
	c.Assert(cbor.Unmarshal(raw, &snap), qt.IsNil)
	c.Assert(snap.RunID, qt.Equals, first.RunID)
	c.Assert(snap.ChainID, qt.Equals, uint64(1337))
	c.Assert(snap.Contracts, qt.HasLen, 1)
	c.Assert(snap.Contracts[contracts.MiMC], qt.Equals, addr.Hex())
	c.Assert(snap.Params, qt.IsNotNil)
	c.Assert(snap.Params.MaxUsers.Equal(types.NewInt(15)), qt.IsTrue)
	c.Assert(snap.Params.CoordinatorPubKey.Equal(params.CoordinatorPubKey), qt.IsTrue)

	// A fresh run replaces the snapshot along with the manifest.
	second, err := s.Reset(1337, params)
	c.Assert(err, qt.IsNil)
	raw, err = os.ReadFile(s.Path() + snapshotSuffix)
	c.Assert(err, qt.IsNil)
	snap = manifestSnapshot{}
	c.Assert(cbor.Unmarshal(raw, &snap), qt.IsNil)
	c.Assert(snap.RunID, qt.Equals, second.RunID)
	c.Assert(snap.Contracts, qt.HasLen, 0)
}

func TestManifestComplete(t *testing.T) {
	c := qt.New(t)

	m := &Manifest{Contracts: make(map[string]common.Address)}
	c.Assert(m.Complete(), qt.IsFalse)
	for i, name := range contracts.RequiredContracts {
		m.Contracts[name] = common.BigToAddress(types.NewInt(i + 1).MathBigInt())
	}
	c.Assert(m.Complete(), qt.IsTrue)
}

func TestStoreLoadWithoutFile(t *testing.T) {
	c := qt.New(t)
	s := testStore(t)

	_, err := s.LoadManifest()
	c.Assert(err, qt.IsNotNil)
}
