package foliage

import (
	"crypto/sha256"

	"github.com/Fantom-foundation/lachesis-base/hash"
	"github.com/celestiaorg/smt"
)

// MerkleSet commits to a set of hashes. Membership of an element can be
// proven against the root without revealing the other elements.
type MerkleSet struct {
	tree *smt.SparseMerkleTree
}

// NewMerkleSet returns an empty in-memory set.
func NewMerkleSet() *MerkleSet {
	return &MerkleSet{
		tree: smt.NewSparseMerkleTree(smt.NewSimpleMap(), smt.NewSimpleMap(), sha256.New()),
	}
}

// AddAlreadyHashed inserts h.
func (m *MerkleSet) AddAlreadyHashed(h hash.Hash) error {
	_, err := m.tree.Update(h.Bytes(), h.Bytes())
	return err
}

// Root of the set. The empty set has the zero root.
func (m *MerkleSet) Root() hash.Hash {
	return hash.BytesToHash(m.tree.Root())
}

// Prove returns the inclusion proof of h.
func (m *MerkleSet) Prove(h hash.Hash) (smt.SparseMerkleProof, error) {
	return m.tree.Prove(h.Bytes())
}

// VerifyInclusion checks that h belongs to the set with the given root.
func VerifyInclusion(root, h hash.Hash, proof smt.SparseMerkleProof) bool {
	return smt.VerifyProof(proof, root.Bytes(), h.Bytes(), h.Bytes(), sha256.New())
}
