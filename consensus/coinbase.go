package consensus

import (
	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"

	"github.com/rony4d/go-spacetime/inter"
)

// heightBytes is the height as a 32 byte big-endian number.
func heightBytes(height idx.Block) []byte {
	return append(make([]byte, 24, 32), bigendian.Uint64ToBytes(uint64(height))...)
}

// PoolParentID is the parent coin info of the pool coin at height.
func PoolParentID(height idx.Block) hash.Hash {
	return hash.BytesToHash(heightBytes(height))
}

// FarmerParentID is the parent coin info of the farmer coin at height.
func FarmerParentID(height idx.Block) hash.Hash {
	return hash.Of(hash.Of(heightBytes(height)).Bytes())
}

// CreatePoolCoin mints the pool reward of a block.
func CreatePoolCoin(height idx.Block, puzzleHash hash.Hash, reward uint64) inter.Coin {
	return inter.Coin{
		ParentCoinInfo: PoolParentID(height),
		PuzzleHash:     puzzleHash,
		Amount:         reward,
	}
}

// CreateFarmerCoin mints the farmer reward of a block, fees included.
func CreateFarmerCoin(height idx.Block, puzzleHash hash.Hash, reward uint64) inter.Coin {
	return inter.Coin{
		ParentCoinInfo: FarmerParentID(height),
		PuzzleHash:     puzzleHash,
		Amount:         reward,
	}
}

// RewardCoins returns the pool and farmer coins minted by the block at
// height. Fees go to the farmer.
func RewardCoins(height idx.Block, poolPuzzleHash, farmerPuzzleHash hash.Hash, fees uint64) (pool, farmer inter.Coin) {
	pool = CreatePoolCoin(height, poolPuzzleHash, CalculatePoolReward(height))
	farmer = CreateFarmerCoin(height, farmerPuzzleHash, CalculateBaseFarmerReward(height)+fees)
	return pool, farmer
}
