package rng

import "testing"

import "github.com/stretchr/testify/require"

func TestDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Uint32(), b.Uint32())
	}
}

func TestSubstreamsIndependent(t *testing.T) {
	a := Substream(7, 0)
	b := Substream(7, 1)
	same := true
	for i := 0; i < 8; i++ {
		if a.Uint32() != b.Uint32() {
			same = false
		}
	}
	require.False(t, same, "distinct worker indices should not produce identical streams")
}

func TestSubstreamReproducible(t *testing.T) {
	a := Substream(7, 3)
	b := Substream(7, 3)
	require.Equal(t, a.Uint64(), b.Uint64())
}

func TestIntNRange(t *testing.T) {
	s := New(1)
	for i := 0; i < 1000; i++ {
		v := s.IntN(5)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 5)
	}
}

func TestTwoDistinct(t *testing.T) {
	s := New(2)
	for i := 0; i < 1000; i++ {
		a, b := s.TwoDistinct(3)
		require.NotEqual(t, a, b)
		require.Less(t, a, 3)
		require.Less(t, b, 3)
	}
}
