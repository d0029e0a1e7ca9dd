package consensus

import (
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
)

const (
	// MojoPerCoin is the number of base units in one coin.
	MojoPerCoin uint64 = 1000000000000
	// BlocksPerYear assumes 32 blocks per 10 minutes.
	BlocksPerYear idx.Block = 1681920

	// prefarm is the genesis allocation, in whole coins, split 7/8 to the pool
	// and 1/8 to the farmer.
	prefarm uint64 = 21000000
)

// CalculatePoolReward returns the pool part of the block reward at height.
// The reward halves every three years, after the genesis prefarm.
func CalculatePoolReward(height idx.Block) uint64 {
	if height == 0 {
		// 7/8 of the prefarm, divided first to stay within uint64
		return prefarm / 8 * 7 * MojoPerCoin
	}
	return 7 * blockRewardEighths(height)
}

// CalculateBaseFarmerReward returns the farmer part of the block reward at
// height, without fees.
func CalculateBaseFarmerReward(height idx.Block) uint64 {
	if height == 0 {
		return prefarm / 8 * MojoPerCoin
	}
	return blockRewardEighths(height)
}

// blockRewardEighths returns one eighth of the total block reward.
func blockRewardEighths(height idx.Block) uint64 {
	// 2 coins per block for the first 3 years
	eighth := 2 * MojoPerCoin / 8
	for period := idx.Block(1); period <= 4; period++ {
		if height < 3*period*BlocksPerYear {
			return eighth
		}
		eighth /= 2
	}
	return eighth
}
