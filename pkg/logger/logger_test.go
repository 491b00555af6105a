package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLogger(t *testing.T, level string, console *bytes.Buffer) (*Logger, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	opts := Options{
		Dir:    "/logs",
		Level:  level,
		ToFile: true,
		Fs:     fsys,
		Now:    func() time.Time { return testNow },
	}
	if console != nil {
		opts.ToConsole = true
		opts.Console = console
	}
	return New("ContentUpdateService", opts), fsys
}

func readEntries(t *testing.T, fsys afero.Fs, name string) []map[string]any {
	t.Helper()
	data, err := afero.ReadFile(fsys, name)
	require.NoError(t, err)

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestFileEntryShape(t *testing.T) {
	l, fsys := newTestLogger(t, "info", nil)

	l.Info("Content update completed", map[string]int{"pagesUpdated": 2})

	entries := readEntries(t, fsys, "/logs/ContentUpdateService-2026-06-01.log")
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "INFO", e["level"])
	assert.Equal(t, "ContentUpdateService", e["service"])
	assert.Equal(t, "Content update completed", e["message"])
	assert.Equal(t, "2026-06-01T12:00:00.000Z", e["timestamp"])
	assert.Equal(t, map[string]any{"pagesUpdated": float64(2)}, e["data"])
}

func TestLevelThreshold(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"error", []string{"ERROR"}},
		{"warn", []string{"ERROR", "WARN"}},
		{"info", []string{"ERROR", "WARN", "INFO"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, fsys := newTestLogger(t, tt.level, nil)
			l.Error("e")
			l.Warn("w")
			l.Info("i")
			l.Debug("d")

			var got []string
			for _, e := range readEntries(t, fsys, "/logs/ContentUpdateService-2026-06-01.log") {
				got = append(got, e["level"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShouldLogOrdering(t *testing.T) {
	l, _ := newTestLogger(t, "warn", nil)
	assert.True(t, l.ShouldLog(LevelError))
	assert.True(t, l.ShouldLog(LevelWarn))
	assert.False(t, l.ShouldLog(LevelInfo))
	assert.False(t, l.ShouldLog(LevelDebug))
}

func TestConsoleIsColorized(t *testing.T) {
	var console bytes.Buffer
	l, _ := newTestLogger(t, "debug", &console)

	l.Error("broken")
	l.Warn("careful")

	out := console.String()
	assert.Contains(t, out, colorRed+"ERROR [ContentUpdateService]")
	assert.Contains(t, out, colorYellow+"WARN  [ContentUpdateService]")
	assert.Contains(t, out, "broken")
}

func TestErrorDataIsSerialized(t *testing.T) {
	l, fsys := newTestLogger(t, "info", nil)
	l.Error("step failed", errors.New("disk full"))

	entries := readEntries(t, fsys, "/logs/ContentUpdateService-2026-06-01.log")
	assert.Equal(t, map[string]any{"error": "disk full"}, entries[0]["data"])
}

func TestTimerEnd(t *testing.T) {
	fsys := afero.NewMemMapFs()
	clock := testNow
	l := New("Timer", Options{
		Dir:    "/logs",
		Level:  "info",
		ToFile: true,
		Fs:     fsys,
		Now:    func() time.Time { return clock },
	})

	timer := l.StartTimer("weekly report")
	clock = clock.Add(250 * time.Millisecond)
	elapsed := timer.End(map[string]any{"sections": 4})

	assert.Equal(t, 250*time.Millisecond, elapsed)
	entries := readEntries(t, fsys, "/logs/Timer-2026-06-01.log")
	require.Len(t, entries, 1)
	assert.Equal(t, "Performance: weekly report completed in 250ms", entries[0]["message"])
	data := entries[0]["data"].(map[string]any)
	assert.Equal(t, float64(4), data["sections"])
	assert.Equal(t, float64(250), data["duration"])
}

func TestAPICallLevels(t *testing.T) {
	l, fsys := newTestLogger(t, "debug", nil)
	l.APICall("POST", "https://api.indexnow.org/indexnow", 200, time.Second)
	l.APICall("GET", "https://example.com", 302, time.Second)
	l.APICall("POST", "https://api.indexnow.org/indexnow", 422, time.Second)

	entries := readEntries(t, fsys, "/logs/ContentUpdateService-2026-06-01.log")
	require.Len(t, entries, 3)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "ERROR", entries[2]["level"])
	assert.Equal(t, "API POST https://api.indexnow.org/indexnow - 422 (1000ms)", entries[2]["message"])
}

func TestRecentLogsAndStats(t *testing.T) {
	l, fsys := newTestLogger(t, "debug", nil)
	for i := 0; i < 5; i++ {
		l.Info("tick")
	}
	l.Error("boom")
	require.NoError(t, afero.WriteFile(fsys, "/logs/ContentUpdateService-2026-05-31.log",
		[]byte(`{"level":"WARN","message":"old"}`+"\nnot json\n"), 0o644))

	recent, err := l.RecentLogs(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "boom", recent[2].Message)

	stats, err := l.Stats(7)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.TotalEntries)
	assert.Equal(t, 5, stats.InfoCount)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, 1, stats.WarnCount)
	assert.Equal(t, "2026-05-25", stats.DateRange.Start)
	assert.Equal(t, "2026-06-01", stats.DateRange.End)
}

func TestRecentLogsMissingFile(t *testing.T) {
	l, _ := newTestLogger(t, "info", nil)
	recent, err := l.RecentLogs(10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestCleanOldLogs(t *testing.T) {
	l, fsys := newTestLogger(t, "error", nil)

	files := map[string]time.Time{
		"/logs/a-2026-04-01.log": testNow.AddDate(0, 0, -61),
		"/logs/b-2026-05-20.log": testNow.AddDate(0, 0, -12),
		"/logs/notes.txt":        testNow.AddDate(0, 0, -90),
	}
	for name, mtime := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte("{}\n"), 0o644))
		require.NoError(t, fsys.Chtimes(name, mtime, mtime))
	}

	removed, err := l.CleanOldLogs(30)
	require.NoError(t, err)
	assert.Equal(t, []string{"a-2026-04-01.log"}, removed)

	exists, _ := afero.Exists(fsys, "/logs/b-2026-05-20.log")
	assert.True(t, exists)
	exists, _ = afero.Exists(fsys, "/logs/notes.txt")
	assert.True(t, exists)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
	assert.Equal(t, "warn", LevelWarn.String())
}
