package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Seq int `json:"seq"`
}

func newTestStore() *Store {
	return New(afero.NewMemMapFs(), "/reports")
}

func TestAppendCappedKeepsMostRecent(t *testing.T) {
	s := newTestStore()

	for i := 1; i <= 105; i++ {
		n, err := AppendCapped(s, RankingsFile, entry{Seq: i}, MetricsCap)
		require.NoError(t, err)
		assert.Equal(t, min(i, MetricsCap), n)
	}

	items, err := All[entry](s, RankingsFile)
	require.NoError(t, err)
	require.Len(t, items, 100)
	assert.Equal(t, 6, items[0].Seq)
	assert.Equal(t, 105, items[99].Seq)
}

func TestAppendCappedLengthProperty(t *testing.T) {
	for _, tc := range []struct{ appends, cap int }{{0, 3}, {1, 3}, {3, 3}, {7, 3}, {12, 10}} {
		s := newTestStore()
		for i := 0; i < tc.appends; i++ {
			_, err := AppendCapped(s, AlertsFile, entry{Seq: i}, tc.cap)
			require.NoError(t, err)
		}
		items, err := All[entry](s, AlertsFile)
		require.NoError(t, err)
		assert.Len(t, items, min(tc.appends, tc.cap))
		for j, it := range items {
			assert.Equal(t, tc.appends-len(items)+j, it.Seq)
		}
	}
}

func TestAppendCappedRejectsBadCap(t *testing.T) {
	_, err := AppendCapped(newTestStore(), AlertsFile, entry{}, 0)
	assert.Error(t, err)
}

func TestCorruptHistoryIsMovedAside(t *testing.T) {
	fsys := afero.NewMemMapFs()
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	s := New(fsys, "/reports", WithClock(func() time.Time { return now }))
	require.NoError(t, s.WriteFile(RankingsFile, []byte(`[{"a":1},`)))

	for i := 1; i <= 3; i++ {
		n, err := AppendCapped(s, RankingsFile, entry{Seq: i}, MetricsCap)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	items, err := All[entry](s, RankingsFile)
	require.NoError(t, err)
	assert.Equal(t, []entry{{Seq: 1}, {Seq: 2}, {Seq: 3}}, items)

	aside := fmt.Sprintf("/reports/rankings.json.corrupt-%d", now.Unix())
	raw, err := afero.ReadFile(fsys, aside)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1},`, string(raw))
}

func TestCorruptHistoryReadsFail(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.WriteFile(TrafficFile, []byte("{not json")))

	_, err := All[entry](s, TrafficFile)
	assert.Error(t, err)
	assert.True(t, s.Exists(TrafficFile))
}

func TestLastAndTail(t *testing.T) {
	s := newTestStore()

	_, ok, err := Last[entry](s, ConversionsFile)
	require.NoError(t, err)
	assert.False(t, ok)

	for i := 1; i <= 4; i++ {
		_, err := AppendCapped(s, ConversionsFile, entry{Seq: i}, MetricsCap)
		require.NoError(t, err)
	}

	last, ok, err := Last[entry](s, ConversionsFile)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4, last.Seq)

	tail, err := Tail[entry](s, ConversionsFile, 2)
	require.NoError(t, err)
	assert.Equal(t, []entry{{Seq: 3}, {Seq: 4}}, tail)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	s := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := AppendCapped(s, AlertsFile, entry{Seq: i}, AlertsCap)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := All[entry](s, AlertsFile)
	require.NoError(t, err)
	assert.Len(t, items, 50)
}

func TestWriteJSONRoundTrip(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.WriteJSON(ContentStateFile, map[string]int{"pagesUpdated": 2}))
	assert.True(t, s.Exists(ContentStateFile))

	var got map[string]int
	require.NoError(t, s.ReadJSON(ContentStateFile, &got))
	assert.Equal(t, 2, got["pagesUpdated"])

	err := s.ReadJSON("missing.json", &got)
	assert.True(t, IsNotExist(err))
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, WriteFileAtomic(fsys, "/out/a.json", []byte("1")))
	require.NoError(t, WriteFileAtomic(fsys, "/out/a.json", []byte("2")))

	entries, err := afero.ReadDir(fsys, "/out")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())

	data, err := afero.ReadFile(fsys, "/out/a.json")
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))
}
