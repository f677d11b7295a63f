package brc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	for _, n := range []int{1, 2, 1024, DefaultSlots} {
		table, err := NewTable(n)
		require.NoError(t, err)
		assert.Equal(t, n, table.NumSlots())
		assert.Zero(t, table.Len())
	}
	for _, n := range []int{0, -4, 3, 100, 130712} {
		_, err := NewTable(n)
		assert.ErrorIs(t, err, ErrInvalidOptions, "slots=%d", n)
	}
}

func TestTableInsertOrUpdate(t *testing.T) {
	table, err := NewTable(1024)
	require.NoError(t, err)
	for _, r := range []struct {
		name string
		temp float64
	}{{"chicago", 10}, {"nyc", -5.5}, {"chicago", 20}, {"chicago", -1.5}} {
		table.InsertOrUpdate([]byte(r.name), hashKey([]byte(r.name)), r.temp)
	}
	assert.Equal(t, 2, table.Len())
	assert.EqualValues(t, 4, table.Records())
	for e := range table.All() {
		switch e.Key.String() {
		case "chicago":
			assert.Equal(t, Stat{Min: -1.5, Max: 20, Sum: 28.5, Count: 3}, e.Stat)
		case "nyc":
			assert.Equal(t, Stat{Min: -5.5, Max: -5.5, Sum: -5.5, Count: 1}, e.Stat)
		default:
			t.Errorf("unexpected station %q", e.Key.String())
		}
	}
}

// With a single slot every name collides, chaining must keep them apart.
func TestTableCollisions(t *testing.T) {
	table, err := NewTable(1)
	require.NoError(t, err)
	names := []string{"chicago", "nyc", "san_francisco", "a"}
	for i, name := range names {
		for j := range 3 {
			table.InsertOrUpdate([]byte(name), hashKey([]byte(name)), float64(i*10+j))
		}
	}
	assert.Equal(t, len(names), table.Len())
	assert.Equal(t, len(names), table.Collisions())
	assert.Equal(t, len(names), table.MaxChain())
	seen := 0
	for e := range table.All() {
		i := seen
		assert.Equal(t, names[i], e.Key.String())
		assert.Equal(t, Stat{Min: float64(i * 10), Max: float64(i*10 + 2), Sum: float64(i*30 + 3), Count: 3}, e.Stat)
		seen++
	}
	assert.Equal(t, len(names), seen)
}

// Distinct names sharing a full hash still get their own statistics.
func TestTableSameHashDistinctNames(t *testing.T) {
	table, err := NewTable(8)
	require.NoError(t, err)
	table.InsertOrUpdate([]byte("alpha"), 42, 1)
	table.InsertOrUpdate([]byte("beta"), 42, 2)
	table.InsertOrUpdate([]byte("alpha"), 42, 3)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 2, table.MaxChain())

	result, err := mergeTables([]*Table{table}, 8)
	require.NoError(t, err)
	alpha, ok := result.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, Stat{Min: 1, Max: 3, Sum: 4, Count: 2}, alpha)
	beta, ok := result.Lookup("beta")
	require.True(t, ok)
	assert.Equal(t, Stat{Min: 2, Max: 2, Sum: 2, Count: 1}, beta)
}

func TestTableNoCollisionSpread(t *testing.T) {
	table, err := NewTable(1 << 10)
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c", "d"} {
		table.InsertOrUpdate([]byte(name), hashKey([]byte(name)), 1)
	}
	assert.Zero(t, table.Collisions())
	assert.Equal(t, 1, table.MaxChain())
}

func TestMergeTables(t *testing.T) {
	t1, _ := NewTable(4)
	t2, _ := NewTable(16)
	for _, name := range []string{"b", "a", "c"} {
		t1.InsertOrUpdate([]byte(name), hashKey([]byte(name)), 1)
	}
	t2.InsertOrUpdate([]byte("a"), hashKey([]byte("a")), -3)
	t2.InsertOrUpdate([]byte("d"), hashKey([]byte("d")), 7)
	result, err := mergeTables([]*Table{t1, t2}, 4)
	require.NoError(t, err)
	require.Equal(t, 4, result.Len())
	var names []string
	for _, e := range result.Entries() {
		names = append(names, e.Key.String())
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, names)
	a, _ := result.Lookup("a")
	assert.Equal(t, Stat{Min: -3, Max: 1, Sum: -2, Count: 2}, a)
	_, ok := result.Lookup("e")
	assert.False(t, ok)
	assert.EqualValues(t, 5, result.Records())
	// merging reads partial tables only
	assert.Equal(t, 3, t1.Len())
}

func TestResultLookupByteOrder(t *testing.T) {
	table := newTestTable(t)
	for _, name := range []string{"ab", "a", "Ürümqi", "Zürich", "abc", "São Paulo"} {
		table.InsertOrUpdate([]byte(name), hashKey([]byte(name)), float64(len(name)))
	}
	result, err := mergeTables([]*Table{table}, 64)
	require.NoError(t, err)
	for _, name := range []string{"ab", "a", "Ürümqi", "Zürich", "abc", "São Paulo"} {
		stat, ok := result.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, float64(len(name)), stat.Max, name)
	}
	for _, name := range []string{"", "b", "abcd", "Ü", "S"} {
		_, ok := result.Lookup(name)
		assert.False(t, ok, name)
	}
}

func singleEntryResult(name string, stat Stat) *Result {
	return newResult([]*Entry{{Key: newKey([]byte(name)), Hash: hashKey([]byte(name)), Stat: stat}})
}

// Sums added in another order may render a different mean on a rounding tie.
func TestEquivalent(t *testing.T) {
	expected := singleEntryResult("nyc", Stat{Min: 0.2, Max: 0.3, Sum: 0.5, Count: 2})
	reordered := singleEntryResult("nyc", Stat{Min: 0.2, Max: 0.3, Sum: 0.5000000000000001, Count: 2})
	assert.NotEqual(t, expected.String(), reordered.String())
	assert.NotEqual(t, expected.Digest(), reordered.Digest())
	assert.NoError(t, Equivalent(expected, reordered, 1e-9))
	assert.NoError(t, Equivalent(expected, expected, 0))

	for _, got := range []*Result{
		singleEntryResult("chicago", Stat{Min: 0.2, Max: 0.3, Sum: 0.5, Count: 2}),
		singleEntryResult("nyc", Stat{Min: 0.1, Max: 0.3, Sum: 0.5, Count: 2}),
		singleEntryResult("nyc", Stat{Min: 0.2, Max: 0.3, Sum: 0.5, Count: 3}),
		singleEntryResult("nyc", Stat{Min: 0.2, Max: 0.3, Sum: 0.6, Count: 2}),
		newResult(nil),
	} {
		assert.Error(t, Equivalent(expected, got, 1e-9), got.String())
	}
}
