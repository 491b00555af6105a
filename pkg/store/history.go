package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// errCorrupt marks a history file that exists but does not decode
var errCorrupt = errors.New("corrupt history file")

// AppendCapped appends item to the JSON array stored in name, keeping only the
// last limit entries. The read-modify-write runs under the file's lock.
// It returns the array length after the write. A file that does not decode is
// renamed to <name>.corrupt-<unix> and the stream restarts from an empty array.
func AppendCapped[T any](s *Store, name string, item T, limit int) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("invalid cap %d for %s", limit, name)
	}

	l := s.lock(name)
	l.Lock()
	defer l.Unlock()

	items, err := readArray[T](s, name)
	if errors.Is(err, errCorrupt) {
		items, err = quarantine[T](s, name, err)
	}
	if err != nil {
		return 0, err
	}

	items = append(items, item)
	if len(items) > limit {
		items = items[len(items)-limit:]
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := WriteFileAtomic(s.fs, s.Path(name), data); err != nil {
		return 0, err
	}
	return len(items), nil
}

// All returns every entry of the JSON array in name; a missing file is empty
func All[T any](s *Store, name string) ([]T, error) {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	return readArray[T](s, name)
}

// Last returns the most recent entry of the array in name.
// ok is false when the file is missing or empty.
func Last[T any](s *Store, name string) (item T, ok bool, err error) {
	items, err := All[T](s, name)
	if err != nil || len(items) == 0 {
		return item, false, err
	}
	return items[len(items)-1], true, nil
}

// Tail returns up to n most recent entries, oldest first
func Tail[T any](s *Store, name string, n int) ([]T, error) {
	items, err := All[T](s, name)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(items) > n {
		items = items[len(items)-n:]
	}
	return items, nil
}

func readArray[T any](s *Store, name string) ([]T, error) {
	data, err := s.ReadFile(name)
	if err != nil {
		if IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w: %w", name, errCorrupt, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// quarantine moves a corrupt history file aside so the stream can continue
func quarantine[T any](s *Store, name string, cause error) ([]T, error) {
	aside := fmt.Sprintf("%s.corrupt-%d", name, s.now().Unix())
	if err := s.fs.Rename(s.Path(name), s.Path(aside)); err != nil {
		return nil, fmt.Errorf("failed to move corrupt %s aside: %w", name, err)
	}
	s.log.Warn("Corrupt history file moved aside", map[string]any{
		"file":    name,
		"movedTo": aside,
		"error":   cause.Error(),
	})
	return []T{}, nil
}
