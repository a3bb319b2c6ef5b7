package lexid_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvertools/bumpver/pkg/lexid"
	"github.com/calvertools/bumpver/pkg/testutil"
)

func TestNextID(t *testing.T) {
	t.Parallel()
	testcases := map[string]string{
		"0":     "1",
		"1":     "2",
		"8":     "9",
		"09":    "110",
		"0098":  "0099",
		"0099":  "1100",
		"0999":  "11000",
		"1000":  "1001",
		"11000": "11001",
		"19999": "220000",
		"0001":  "0002",
	}
	for prev, want := range testcases {
		prev := prev
		want := want
		t.Run(prev, func(t *testing.T) {
			t.Parallel()
			got, err := lexid.NextID(prev)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			// both orderings must hold across every step
			assert.Less(t, prev, got)
		})
	}
}

func TestNextIDOverflow(t *testing.T) {
	t.Parallel()
	for _, id := range []string{"9", "99", "9999999999"} {
		_, err := lexid.NextID(id)
		assert.ErrorIs(t, err, lexid.ErrOverflow, "id=%q", id)
	}
}

func TestNextIDInvalid(t *testing.T) {
	t.Parallel()
	_, err := lexid.NextID("00x1")
	assert.Error(t, err)
}

func TestChainIsLexicallyOrdered(t *testing.T) {
	t.Parallel()
	id := "0001"
	prevOrd, err := lexid.OrdVal(id)
	require.NoError(t, err)
	for i := 0; i < 2500; i++ {
		next, err := lexid.NextID(id)
		require.NoError(t, err)
		require.Less(t, id, next, "lexical order broken after %d steps", i)

		ord, err := lexid.OrdVal(next)
		require.NoError(t, err)
		require.Equal(t, prevOrd+1, ord)

		id = next
		prevOrd = ord
	}
}

func TestNextIDKeepsOrderQuick(t *testing.T) {
	t.Parallel()
	prop := func(n uint16) bool {
		id := fmt.Sprintf("0%03d", n%1000)
		next, err := lexid.NextID(id)
		if err != nil || next <= id {
			return false
		}
		ord, err := lexid.OrdVal(next)
		return err == nil && ord == uint64(n%1000)+1
	}
	testutil.QuickCheck(t, prop, testutil.QuickConfig{MaxCount: 500},
		[]interface{}{uint16(999)},
	)
}

func TestOrdVal(t *testing.T) {
	t.Parallel()
	testcases := map[string]uint64{
		"0":     0,
		"7":     7,
		"11":    1,
		"0999":  999,
		"11000": 1000,
	}
	for id, want := range testcases {
		got, err := lexid.OrdVal(id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "id=%q", id)
	}
}
