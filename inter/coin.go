package inter

import (
	"bytes"
	"sort"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
)

// Coin is an unspent output: an amount locked by a puzzle hash.
type Coin struct {
	ParentCoinInfo hash.Hash
	PuzzleHash     hash.Hash
	Amount         uint64
}

// Name is the coin id.
func (c Coin) Name() hash.Hash {
	return hash.Of(c.ParentCoinInfo.Bytes(), c.PuzzleHash.Bytes(), bigendian.Uint64ToBytes(c.Amount))
}

// HashCoinList commits to a set of coins independently of their order. The
// names are sorted descending and hashed together.
func HashCoinList(coins []Coin) hash.Hash {
	names := make([]hash.Hash, len(coins))
	for i, c := range coins {
		names[i] = c.Name()
	}
	sort.Slice(names, func(i, j int) bool {
		return bytes.Compare(names[i].Bytes(), names[j].Bytes()) > 0
	})
	buf := make([]byte, 0, len(names)*32)
	for _, n := range names {
		buf = append(buf, n.Bytes()...)
	}
	return hash.Of(buf)
}
