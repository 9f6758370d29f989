// Package keys holds the coordinator key material of a deployment. The
// coordinator key pair is an EdDSA key over the BabyJubJub curve, the same
// scheme the deployed contracts expect for message encryption and tallying.
package keys

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/iden3/go-iden3-crypto/babyjub"

	"github.com/programmerraja/maci/types"
)

// CoordinatorPrivateKey wraps a BabyJubJub private key. The scalar is kept as
// the raw 32 byte seed babyjub expects, so public key derivation is a pure
// function of the value.
type CoordinatorPrivateKey struct {
	k babyjub.PrivateKey
}

// CoordinatorPublicKey is a point on the BabyJubJub curve, the two field
// elements the main contract constructor takes verbatim.
type CoordinatorPublicKey struct {
	X *types.BigInt `json:"x"`
	Y *types.BigInt `json:"y"`
}

// NewRandomPrivateKey generates a fresh random coordinator private key.
func NewRandomPrivateKey() *CoordinatorPrivateKey {
	return &CoordinatorPrivateKey{k: babyjub.NewRandPrivKey()}
}

// PrivateKeyFromString parses a coordinator private key from its decimal or
// 0x-prefixed hexadecimal string representation.
func PrivateKeyFromString(s string) (*CoordinatorPrivateKey, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, fmt.Errorf("malformed coordinator private key %q", s)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("coordinator private key must be positive")
	}
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("coordinator private key exceeds 256 bits")
	}
	priv := &CoordinatorPrivateKey{}
	v.FillBytes(priv.k[:])
	return priv, nil
}

// Public derives the public key from the private key. The derivation is
// deterministic and performs no I/O.
func (p *CoordinatorPrivateKey) Public() *CoordinatorPublicKey {
	point := p.k.Public()
	return &CoordinatorPublicKey{
		X: new(types.BigInt).SetBigInt(point.X),
		Y: new(types.BigInt).SetBigInt(point.Y),
	}
}

// String returns the decimal representation of the private key scalar.
func (p *CoordinatorPrivateKey) String() string {
	return new(big.Int).SetBytes(p.k[:]).String()
}

// PublicKeyFromString parses a public key from a "x,y" pair of decimal or
// 0x-prefixed hexadecimal field elements.
func PublicKeyFromString(s string) (*CoordinatorPublicKey, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed coordinator public key %q, want \"x,y\"", s)
	}
	x, ok := new(types.BigInt).SetString(strings.TrimSpace(parts[0]))
	if !ok {
		return nil, fmt.Errorf("malformed public key x coordinate %q", parts[0])
	}
	y, ok := new(types.BigInt).SetString(strings.TrimSpace(parts[1]))
	if !ok {
		return nil, fmt.Errorf("malformed public key y coordinate %q", parts[1])
	}
	pub := &CoordinatorPublicKey{X: x, Y: y}
	if err := pub.Validate(); err != nil {
		return nil, err
	}
	return pub, nil
}

// Validate checks that the point is actually on the BabyJubJub curve.
func (k *CoordinatorPublicKey) Validate() error {
	point := &babyjub.Point{X: k.X.MathBigInt(), Y: k.Y.MathBigInt()}
	if !point.InCurve() {
		return fmt.Errorf("public key point (%s, %s) is not on the curve", k.X, k.Y)
	}
	return nil
}

// String returns the "x,y" decimal representation of the public key.
func (k *CoordinatorPublicKey) String() string {
	return fmt.Sprintf("%s,%s", k.X, k.Y)
}

// Compress returns the 32 byte compressed representation of the public key,
// which is how the key is recorded in the deployment manifest.
func (k *CoordinatorPublicKey) Compress() types.HexBytes {
	pub := babyjub.PublicKey(babyjub.Point{X: k.X.MathBigInt(), Y: k.Y.MathBigInt()})
	comp := pub.Compress()
	return types.HexBytes(comp[:])
}

// DecompressPublicKey recovers a public key from its 32 byte compressed
// representation.
func DecompressPublicKey(comp types.HexBytes) (*CoordinatorPublicKey, error) {
	if len(comp) != 32 {
		return nil, fmt.Errorf("compressed public key must be 32 bytes, got %d", len(comp))
	}
	var raw babyjub.PublicKeyComp
	copy(raw[:], comp)
	pub, err := raw.Decompress()
	if err != nil {
		return nil, fmt.Errorf("cannot decompress public key: %w", err)
	}
	return &CoordinatorPublicKey{
		X: new(types.BigInt).SetBigInt(pub.X),
		Y: new(types.BigInt).SetBigInt(pub.Y),
	}, nil
}

// Equal reports whether both keys are the same curve point.
func (k *CoordinatorPublicKey) Equal(other *CoordinatorPublicKey) bool {
	if k == nil || other == nil {
		return (k == nil) == (other == nil)
	}
	return k.X.Equal(other.X) && k.Y.Equal(other.Y)
}
