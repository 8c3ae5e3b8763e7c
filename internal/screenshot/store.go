package screenshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Store persists screenshots under a single directory with
// date-scoped sequence numbers: <prefix>_<YYYY-MM-DD>_<NNNN>.png.
// The sequence counter lives in a sidecar file guarded by a file lock
// so concurrent instances never hand out the same name.
type Store struct {
	dir    string
	prefix string
	now    func() time.Time
}

type counterState struct {
	Date string `json:"date"`
	Seq  int    `json:"seq"`
}

func NewStore(dir, prefix string) (*Store, error) {
	if prefix == "" {
		prefix = "screenshot"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot dir %s: %w", dir, err)
	}
	return &Store{dir: dir, prefix: prefix, now: time.Now}, nil
}

// Dir returns the directory screenshots are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes PNG bytes under the next sequence number for today and
// returns the absolute path and bare filename.
func (s *Store) Save(data []byte) (path, filename string, err error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("refusing to save empty screenshot")
	}

	date := s.now().Format("2006-01-02")
	seq, err := s.nextSequence(date)
	if err != nil {
		return "", "", err
	}

	filename = fmt.Sprintf("%s_%s_%04d.png", s.prefix, date, seq)
	path = filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, filename, nil
}

// nextSequence advances the date-scoped counter. The sequence resets to
// 1 on the first save of a new day.
func (s *Store) nextSequence(date string) (int, error) {
	lockPath := filepath.Join(s.dir, ".sequence.lock")
	statePath := filepath.Join(s.dir, ".sequence.json")

	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("failed to lock screenshot counter: %w", err)
	}
	defer lock.Unlock()

	var state counterState
	if raw, err := os.ReadFile(statePath); err == nil {
		// A corrupt counter file falls through to a fresh state.
		_ = json.Unmarshal(raw, &state)
	}
	if state.Date != date {
		state = counterState{Date: date, Seq: 0}
	}
	state.Seq++

	raw, err := json.Marshal(state)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(statePath, raw, 0644); err != nil {
		return 0, fmt.Errorf("failed to persist screenshot counter: %w", err)
	}
	return state.Seq, nil
}
