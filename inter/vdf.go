package inter

import (
	"io"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/rlp"
)

// WitnessTypeHash marks a VDFProof whose witness is the hash of the output
// element rather than a full class group proof.
const WitnessTypeHash uint8 = 1

// ClassgroupElement is a binary quadratic form (a, b) produced by a VDF. Both
// coefficients are signed.
type ClassgroupElement struct {
	A *big.Int
	B *big.Int
}

// classgroupRLP carries the coefficients as two's complement byte strings,
// since rlp only knows non-negative integers.
type classgroupRLP struct {
	A []byte
	B []byte
}

// DefaultClassgroupElement is the form every VDF chain starts from.
func DefaultClassgroupElement() ClassgroupElement {
	return ClassgroupElement{A: big.NewInt(1), B: big.NewInt(2)}
}

// Copy returns a deep copy of the element.
func (e ClassgroupElement) Copy() ClassgroupElement {
	return ClassgroupElement{A: copyBig(e.A), B: copyBig(e.B)}
}

// Equal compares both coefficients.
func (e ClassgroupElement) Equal(o ClassgroupElement) bool {
	return bigOrZero(e.A).Cmp(bigOrZero(o.A)) == 0 && bigOrZero(e.B).Cmp(bigOrZero(o.B)) == 0
}

// EncodeRLP implements rlp.Encoder.
func (e ClassgroupElement) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, classgroupRLP{
		A: SignedBytes(bigOrZero(e.A)),
		B: SignedBytes(bigOrZero(e.B)),
	})
}

// DecodeRLP implements rlp.Decoder.
func (e *ClassgroupElement) DecodeRLP(s *rlp.Stream) error {
	var enc classgroupRLP
	if err := s.Decode(&enc); err != nil {
		return err
	}
	e.A = FromSignedBytes(enc.A)
	e.B = FromSignedBytes(enc.B)
	return nil
}

// Hash identifies the element; it is also the VDF witness.
func (e ClassgroupElement) Hash() hash.Hash {
	return rlpHash(e)
}

// VDFInfo describes one VDF segment: where it starts, how long it runs and
// what it produced.
type VDFInfo struct {
	Challenge          hash.Hash
	NumberOfIterations uint64
	Output             ClassgroupElement
}

// Hash of the segment description.
func (v VDFInfo) Hash() hash.Hash {
	return rlpHash(v)
}

// Copy returns a deep copy.
func (v VDFInfo) Copy() VDFInfo {
	cp := v
	cp.Output = v.Output.Copy()
	return cp
}

// VDFProof is the witness for a VDFInfo.
type VDFProof struct {
	WitnessType uint8
	Witness     []byte
}

// SignedBytes encodes x as big-endian two's complement with a sign bit.
func SignedBytes(x *big.Int) []byte {
	if x.Sign() == 0 {
		return []byte{0}
	}
	if x.Sign() > 0 {
		b := x.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	// two's complement of a negative number in n bytes is 2^(8n) + x
	n := (x.BitLen() + 8) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(8*n))
	b := new(big.Int).Add(mod, x).Bytes()
	for len(b) < n {
		b = append([]byte{0xff}, b...)
	}
	return b
}

// FromSignedBytes decodes big-endian two's complement bytes.
func FromSignedBytes(b []byte) *big.Int {
	x := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		x.Sub(x, new(big.Int).Lsh(big.NewInt(1), uint(8*len(b))))
	}
	return x
}

func bigOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

func copyBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}
