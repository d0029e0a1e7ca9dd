// Package vdf builds the VDF segments of the challenge and reward chains on
// top of an opaque prover.
package vdf

import (
	"context"
	"math/big"
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"

	"github.com/rony4d/go-spacetime/inter"
)

// Prover runs a VDF from the form (a, b) of the class group defined by
// challenge. The output is the raw encoding of the resulting form. It must
// stop when ctx is done.
type Prover interface {
	Prove(ctx context.Context, challenge hash.Hash, a, b *big.Int, discBits uint32, iters uint64) ([]byte, error)
}

// IntSize is the byte size of one coefficient of an encoded form.
func IntSize(discBits uint32) int {
	return int((discBits + 16) >> 4)
}

// HashProver is a deterministic stand-in for a class group prover. Its output
// depends on every input, which is all block construction needs. Delay, if
// set, simulates the sequential work.
type HashProver struct {
	Delay time.Duration
}

// Prove implements Prover.
func (p HashProver) Prove(ctx context.Context, challenge hash.Hash, a, b *big.Int, discBits uint32, iters uint64) ([]byte, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := hash.Of(
		challenge.Bytes(),
		inter.SignedBytes(orZero(a)),
		inter.SignedBytes(orZero(b)),
		bigendian.Uint32ToBytes(discBits),
		bigendian.Uint64ToBytes(iters),
	)
	size := 2 * IntSize(discBits)
	out := make([]byte, 0, size+32)
	for counter := uint32(0); len(out) < size; counter++ {
		out = append(out, hash.Of(seed.Bytes(), bigendian.Uint32ToBytes(counter)).Bytes()...)
	}
	return out[:size], nil
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
