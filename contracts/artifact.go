// Package contracts loads compiled contract artifacts and prepares their
// bytecode for deployment. Artifacts are the standard solc/hardhat JSON
// output (abi + bytecode + linkReferences) and are treated as opaque
// deployable units: nothing here interprets what the contracts do.
package contracts

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Logical contract names. The same names key the artifact files on disk
// (<name>.json) and the entries of the deployment manifest.
const (
	SignUpToken             = "SignUpToken"
	SignUpTokenGatekeeper   = "SignUpTokenGatekeeper"
	InitialVoiceCreditProxy = "InitialVoiceCreditProxy"
	MiMC                    = "MiMC"
	BatchUstVerifier        = "BatchUpdateStateTreeVerifier"
	QvtVerifier             = "QuadVoteTallyVerifier"
	MACI                    = "MACI"
)

// RequiredContracts lists every logical contract a completed deployment run
// must have an address for, in the order they come online.
var RequiredContracts = []string{
	SignUpToken,
	InitialVoiceCreditProxy,
	SignUpTokenGatekeeper,
	MiMC,
	BatchUstVerifier,
	QvtVerifier,
	MACI,
}

// linkRef locates one 20 byte library address placeholder inside the
// unlinked bytecode. Offsets are byte offsets, as solc reports them.
type linkRef struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// Artifact is a compiled contract: its ABI, its creation bytecode (possibly
// containing unresolved library placeholders) and the link references needed
// to resolve them.
type Artifact struct {
	ContractName string
	ABI          abi.ABI

	// bytecode is kept as the hex string from the artifact file because
	// unlinked placeholders are not valid hexadecimal.
	bytecode string
	// linkReferences maps source file -> library name -> placeholder slots.
	linkReferences map[string]map[string][]linkRef
}

// artifactJSON mirrors the hardhat/solc artifact layout. The bytecode field
// is either a plain hex string (hardhat) or an object with an "object" field
// (forge), so it is decoded leniently.
type artifactJSON struct {
	ContractName   string                          `json:"contractName"`
	ABI            json.RawMessage                 `json:"abi"`
	Bytecode       json.RawMessage                 `json:"bytecode"`
	LinkReferences map[string]map[string][]linkRef `json:"linkReferences"`
}

// ParseArtifact decodes a compiled artifact from its JSON representation.
func ParseArtifact(name string, data []byte) (*Artifact, error) {
	var raw artifactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed artifact %s: %w", name, err)
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact %s has no abi", name)
	}
	parsedABI, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return nil, fmt.Errorf("artifact %s abi: %w", name, err)
	}
	bytecode, err := decodeBytecodeField(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", name, err)
	}
	if raw.ContractName != "" {
		name = raw.ContractName
	}
	return &Artifact{
		ContractName:   name,
		ABI:            parsedABI,
		bytecode:       bytecode,
		linkReferences: raw.LinkReferences,
	}, nil
}

func decodeBytecodeField(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("missing bytecode")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return normalizeBytecode(s)
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Object == "" {
		return "", fmt.Errorf("unsupported bytecode encoding")
	}
	return normalizeBytecode(obj.Object)
}

func normalizeBytecode(s string) (string, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return "", fmt.Errorf("empty bytecode")
	}
	return s, nil
}

// NeedsLinking reports whether the creation bytecode still contains
// unresolved library placeholders.
func (a *Artifact) NeedsLinking() bool {
	return strings.Contains(a.bytecode, "_")
}

// Libraries returns the names of the libraries the bytecode must be linked
// against before deployment.
func (a *Artifact) Libraries() []string {
	var names []string
	seen := map[string]struct{}{}
	for _, libs := range a.linkReferences {
		for name := range libs {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	return names
}

// Link embeds the given library addresses into the creation bytecode and
// returns the deployable binary. It fails if any placeholder remains
// unresolved, so a missing library can never reach the chain.
func (a *Artifact) Link(libraries map[string]common.Address) ([]byte, error) {
	code := a.bytecode
	for _, libs := range a.linkReferences {
		for name, refs := range libs {
			addr, ok := libraries[name]
			if !ok {
				return nil, fmt.Errorf("artifact %s requires library %s but no address was provided", a.ContractName, name)
			}
			addrHex := hex.EncodeToString(addr.Bytes())
			for _, ref := range refs {
				// Offsets are byte positions in the binary; the hex string
				// doubles them.
				start, end := ref.Start*2, (ref.Start+ref.Length)*2
				if start < 0 || end > len(code) {
					return nil, fmt.Errorf("artifact %s: link reference for %s out of range", a.ContractName, name)
				}
				code = code[:start] + addrHex + code[end:]
			}
		}
	}
	if strings.Contains(code, "_") {
		return nil, fmt.Errorf("artifact %s: unresolved library placeholders remain after linking", a.ContractName)
	}
	bin, err := hex.DecodeString(code)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: invalid bytecode after linking: %w", a.ContractName, err)
	}
	return bin, nil
}

// Repository loads artifacts by logical name from a directory of compiled
// <name>.json files and caches them.
type Repository struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Artifact
}

// NewRepository creates an artifact repository backed by the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{
		dir:   dir,
		cache: make(map[string]*Artifact),
	}
}

// Artifact returns the compiled artifact for the given logical name.
func (r *Repository) Artifact(name string) (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.cache[name]; ok {
		return a, nil
	}
	data, err := os.ReadFile(filepath.Join(r.dir, name+".json"))
	if err != nil {
		return nil, fmt.Errorf("cannot read artifact for %s: %w", name, err)
	}
	a, err := ParseArtifact(name, data)
	if err != nil {
		return nil, err
	}
	r.cache[name] = a
	return a, nil
}
