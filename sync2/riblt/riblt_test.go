package riblt_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/seehuhn/mt19937"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-sharedlog/sync2/riblt"
)

func newRand(seed int64) *rand.Rand {
	mt := mt19937.New()
	mt.Seed(seed)
	return rand.New(mt)
}

// sets returns disjoint random sets of the requested sizes.
func sets(rng *rand.Rand, sizes ...int) [][]uint64 {
	seen := map[uint64]struct{}{}
	rst := make([][]uint64, len(sizes))
	for i, n := range sizes {
		for len(rst[i]) < n {
			v := rng.Uint64()
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			rst[i] = append(rst[i], v)
		}
	}
	return rst
}

// reconcile streams coded symbols until the decoder is done and returns the
// number of coded symbols used.
func reconcile(tb testing.TB, enc *riblt.Encoder, dec *riblt.Decoder, limit int) int {
	tb.Helper()
	for i := 1; i <= limit; i++ {
		dec.AddCodedSymbol(enc.ProduceNextCodedSymbol())
		if err := dec.TryDecode(); err != nil {
			require.ErrorIs(tb, err, riblt.ErrInvalidDegree)
		}
		if dec.Decoded() {
			return i
		}
	}
	require.FailNow(tb, "not decoded", "after %d coded symbols", limit)
	return 0
}

func TestReconcile(t *testing.T) {
	for _, tc := range []struct {
		common, local, remote int
	}{
		{0, 0, 0},
		{1000, 0, 0},
		{1000, 10, 0},
		{1000, 0, 10},
		{1000, 50, 50},
		{0, 0, 20},
		{20, 20, 0},
		{10000, 100, 200},
	} {
		t.Run(fmt.Sprintf("%d/%d/%d", tc.common, tc.local, tc.remote), func(t *testing.T) {
			s := sets(newRand(int64(tc.common+tc.local+tc.remote)), tc.common, tc.local, tc.remote)
			var (
				enc riblt.Encoder
				dec riblt.Decoder
			)
			for _, v := range s[0] {
				enc.AddSymbol(v)
				dec.AddSymbol(v)
			}
			for _, v := range s[1] {
				dec.AddSymbol(v)
			}
			for _, v := range s[2] {
				enc.AddSymbol(v)
			}
			diff := tc.local + tc.remote
			used := reconcile(t, &enc, &dec, 10*diff+10)
			require.ElementsMatch(t, s[2], dec.RemoteSymbols())
			require.ElementsMatch(t, s[1], dec.LocalSymbols())
			t.Logf("difference %d decoded with %d coded symbols", diff, used)
		})
	}
}

func TestEncoderOrderIndependent(t *testing.T) {
	s := sets(newRand(1), 500)[0]
	var a, b riblt.Encoder
	for i := range s {
		a.AddSymbol(s[i])
		b.AddSymbol(s[len(s)-1-i])
	}
	for range 100 {
		require.Equal(t, a.ProduceNextCodedSymbol(), b.ProduceNextCodedSymbol())
	}
}

func TestFirstCodedSymbolCoversAll(t *testing.T) {
	s := sets(newRand(2), 3)[0]
	var enc riblt.Encoder
	var want riblt.CodedSymbol
	for _, v := range s {
		enc.AddSymbol(v)
		want.Count++
		want.Sum ^= v
		want.Checksum ^= riblt.HashSymbol(v)
	}
	require.Equal(t, want, enc.ProduceNextCodedSymbol())
}

func TestReset(t *testing.T) {
	rng := newRand(3)
	var (
		enc riblt.Encoder
		dec riblt.Decoder
	)
	for range 2 {
		s := sets(rng, 100, 5, 5)
		for _, v := range s[0] {
			enc.AddSymbol(v)
			dec.AddSymbol(v)
		}
		for _, v := range s[1] {
			dec.AddSymbol(v)
		}
		for _, v := range s[2] {
			enc.AddSymbol(v)
		}
		require.Equal(t, 105, enc.Len())
		require.Equal(t, 105, dec.Len())
		reconcile(t, &enc, &dec, 200)
		require.ElementsMatch(t, s[2], dec.RemoteSymbols())
		require.ElementsMatch(t, s[1], dec.LocalSymbols())
		enc.Reset()
		dec.Reset()
		require.Zero(t, dec.Received())
		require.False(t, dec.Decoded())
	}
}

func BenchmarkReconcile(b *testing.B) {
	s := sets(newRand(4), 100000, 500, 500)
	for range b.N {
		var (
			enc riblt.Encoder
			dec riblt.Decoder
		)
		for _, v := range s[0] {
			enc.AddSymbol(v)
			dec.AddSymbol(v)
		}
		for _, v := range s[1] {
			dec.AddSymbol(v)
		}
		for _, v := range s[2] {
			enc.AddSymbol(v)
		}
		reconcile(b, &enc, &dec, 100000)
	}
}
