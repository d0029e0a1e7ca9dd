package inter

import (
	"time"

	"github.com/Fantom-foundation/lachesis-base/common/bigendian"
)

// Timestamp is a block time in unix seconds.
type Timestamp uint64

// FromUnix converts unix seconds into a Timestamp.
func FromUnix(sec int64) Timestamp {
	if sec < 0 {
		return 0
	}
	return Timestamp(sec)
}

// Bytes gets the big-endian byte representation used in hashes.
func (t Timestamp) Bytes() []byte {
	return bigendian.Uint64ToBytes(uint64(t))
}

// Unix returns the timestamp as unix seconds.
func (t Timestamp) Unix() int64 {
	return int64(t)
}

// Time converts the timestamp into a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// Add returns the timestamp moved forward by the given number of seconds.
func (t Timestamp) Add(sec uint64) Timestamp {
	return t + Timestamp(sec)
}
