package consensus

import (
	"errors"

	"github.com/rony4d/go-spacetime/inter"
)

// Genesis fixes everything needed to build height zero.
type Genesis struct {
	Constants Constants
	// Timestamp of the genesis block, the start of the chain's clock.
	Timestamp inter.Timestamp
}

// FakeGenesis returns the genesis used by local simulations.
func FakeGenesis() Genesis {
	return Genesis{
		Constants: FakeNetConstants(),
		Timestamp: inter.FromUnix(1600000000),
	}
}

// Validate checks the genesis parameters.
func (g Genesis) Validate() error {
	if g.Timestamp == 0 {
		return errors.New("genesis timestamp is not set")
	}
	return g.Constants.Validate()
}
