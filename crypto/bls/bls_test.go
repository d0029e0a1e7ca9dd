package bls

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-spacetime/inter/plotpk"
)

func TestSignVerify(t *testing.T) {
	require := require.New(t)

	sk := KeyGen([]byte("seed"))
	msg := []byte("message")
	sig, err := sk.Sign(msg)
	require.NoError(err)

	require.NoError(Verify(sk.PublicKey(), msg, sig))
	require.Error(Verify(sk.PublicKey(), []byte("other"), sig))
	require.Error(Verify(KeyGen([]byte("x")).PublicKey(), msg, sig))

	require.ErrorIs(Verify(plotpk.PubKey{Type: 1, Raw: []byte{1}}, msg, sig), ErrWrongKeyType)
}

func TestKeyGenDeterministic(t *testing.T) {
	require := require.New(t)

	a, b := KeyGen([]byte("seed")), KeyGen([]byte("seed"))
	require.Equal(a.Bytes(), b.Bytes())
	require.True(a.PublicKey().Equal(b.PublicKey()))

	require.Equal(a.Derive(1, 2).Bytes(), a.Child(1).Child(2).Bytes())
	require.NotEqual(a.Child(1).Bytes(), a.Child(2).Bytes())
}

func TestAggregateSameMessage(t *testing.T) {
	require := require.New(t)

	local, farmer := KeyGen([]byte("local")), KeyGen([]byte("farmer"))
	msg := []byte("foliage")

	s1, err := local.Sign(msg)
	require.NoError(err)
	s2, err := farmer.Sign(msg)
	require.NoError(err)

	agg, err := Aggregate(s1, s2)
	require.NoError(err)
	rev, err := Aggregate(s2, s1)
	require.NoError(err)
	require.Equal(agg, rev)

	pk, err := AggregatePublicKeys(local.PublicKey(), farmer.PublicKey())
	require.NoError(err)
	require.NoError(Verify(pk, msg, agg))
	require.Error(Verify(local.PublicKey(), msg, agg))

	_, err = Aggregate()
	require.Error(err)
	_, err = AggregatePublicKeys()
	require.Error(err)
}
