package foliage

import (
	"github.com/btcsuite/btcd/btcutil/gcs"
)

// BIP158 basic filter parameters.
const (
	FilterP uint8  = 19
	FilterM uint64 = 784931
)

var filterKey [gcs.KeySize]byte

// BuildFilter encodes a Golomb coded set over items.
func BuildFilter(items [][]byte) ([]byte, error) {
	f, err := gcs.BuildGCSFilter(FilterP, FilterM, filterKey, items)
	if err != nil {
		return nil, err
	}
	return f.NBytes()
}

// FilterMatch reports whether item is probably in the encoded filter.
func FilterMatch(encoded []byte, item []byte) (bool, error) {
	f, err := gcs.FromNBytes(FilterP, FilterM, encoded)
	if err != nil {
		return false, err
	}
	return f.Match(filterKey, item)
}
