package foliage

import (
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-spacetime/inter"
)

// Spend removes one coin and creates new ones.
type Spend struct {
	Coin      inter.Coin
	Additions []inter.Coin
}

// Program generates the transactions of a block.
type Program interface {
	// Hash is the generator hash committed to by TransactionsInfo.
	Hash() hash.Hash
	// Bytes is the serialized program carried by the block.
	Bytes() ([]byte, error)
	// Evaluate runs the program and returns its spends and cost.
	Evaluate() ([]Spend, uint64, error)
}

// SpendProgram is a program that already is a flat list of spends.
type SpendProgram struct {
	Spends []Spend
	Cost   uint64
}

// Hash of the rlp encoding.
func (p *SpendProgram) Hash() hash.Hash {
	b, err := p.Bytes()
	if err != nil {
		panic("can't encode: " + err.Error())
	}
	return hash.Of(b)
}

// Bytes implements Program.
func (p *SpendProgram) Bytes() ([]byte, error) {
	return rlp.EncodeToBytes(p)
}

// Evaluate implements Program.
func (p *SpendProgram) Evaluate() ([]Spend, uint64, error) {
	return p.Spends, p.Cost, nil
}

// DecodeSpendProgram parses the generator of a block.
func DecodeSpendProgram(b []byte) (*SpendProgram, error) {
	p := new(SpendProgram)
	if err := rlp.DecodeBytes(b, p); err != nil {
		return nil, err
	}
	return p, nil
}
