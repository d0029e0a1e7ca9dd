package inter

import (
	"crypto/sha256"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/ethereum/go-ethereum/rlp"
)

// rlpHash is sha256 over the rlp encoding of x. Every consensus object in
// this package is identified this way.
func rlpHash(x interface{}) hash.Hash {
	hasher := sha256.New()
	if err := rlp.Encode(hasher, x); err != nil {
		panic("can't encode: " + err.Error())
	}
	return hash.BytesToHash(hasher.Sum(nil))
}
