package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Entry is one parsed log line
type Entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Service   string `json:"service"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DateRange is an inclusive range of YYYY-MM-DD dates
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Stats counts entries by level over a window of days
type Stats struct {
	TotalEntries int       `json:"totalEntries"`
	ErrorCount   int       `json:"errorCount"`
	WarnCount    int       `json:"warnCount"`
	InfoCount    int       `json:"infoCount"`
	DebugCount   int       `json:"debugCount"`
	DateRange    DateRange `json:"dateRange"`
}

// RecentLogs returns up to limit entries from today's file, oldest first.
// A missing file yields no entries.
func (l *Logger) RecentLogs(limit int) ([]Entry, error) {
	lines, err := l.readLines(l.now())
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			entries = append(entries, Entry{Message: string(line), Error: "Failed to parse log entry"})
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Stats tallies entries by level over the last days days, today included
func (l *Logger) Stats(days int) (Stats, error) {
	now := l.now().UTC()
	stats := Stats{
		DateRange: DateRange{
			Start: now.AddDate(0, 0, -days).Format("2006-01-02"),
			End:   now.Format("2006-01-02"),
		},
	}

	for i := 0; i < days; i++ {
		lines, err := l.readLines(now.AddDate(0, 0, -i))
		if err != nil {
			return stats, err
		}
		stats.TotalEntries += len(lines)
		for _, line := range lines {
			var e Entry
			if err := json.Unmarshal(line, &e); err != nil {
				continue
			}
			switch e.Level {
			case "ERROR":
				stats.ErrorCount++
			case "WARN":
				stats.WarnCount++
			case "INFO":
				stats.InfoCount++
			case "DEBUG":
				stats.DebugCount++
			}
		}
	}
	return stats, nil
}

// CleanOldLogs deletes .log files in the log directory whose modification
// time predates now minus daysToKeep. It returns the removed file names.
func (l *Logger) CleanOldLogs(daysToKeep int) ([]string, error) {
	infos, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		if ok, _ := afero.DirExists(l.fs, l.dir); !ok {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", l.dir, err)
	}

	cutoff := l.now().Add(-time.Duration(daysToKeep) * 24 * time.Hour)
	var removed []string
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".log") {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := l.fs.Remove(filepath.Join(l.dir, info.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", info.Name(), err)
		}
		removed = append(removed, info.Name())
	}

	if len(removed) > 0 {
		l.Info(fmt.Sprintf("Cleaned %d old log files", len(removed)), removed)
	}
	return removed, nil
}

func (l *Logger) readLines(day time.Time) ([][]byte, error) {
	data, err := afero.ReadFile(l.fs, l.fileName(day))
	if err != nil {
		if ok, _ := afero.Exists(l.fs, l.fileName(day)); !ok {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	var lines [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	return lines, scanner.Err()
}
