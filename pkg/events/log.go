package events

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
)

// Entry is an immutable, hash-chained event log entry.
type Entry struct {
	Sequence    uint64 `json:"sequence"`
	Event       Event  `json:"event"`
	ContentHash string `json:"content_hash"`
	PrevHash    string `json:"prev_hash"`
}

// Log is an append-only, hash-chained event log. It implements Sink so
// registries can emit straight into it; readers get the chain back out
// for verification and replay.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	headHash string
	clock    func() time.Time
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{
		entries:  make([]Entry, 0),
		headHash: "genesis",
		clock:    time.Now,
	}
}

// WithClock overrides clock for testing.
func (l *Log) WithClock(clock func() time.Time) *Log {
	l.clock = clock
	return l
}

// Emit appends an event to the log.
func (l *Log) Emit(ctx context.Context, typ Type, payload any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.entries)) + 1
	event := Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: l.clock(),
		Payload:   payload,
	}

	contentHash, err := entryHash(seq, event, l.headHash)
	if err != nil {
		return fmt.Errorf("failed to hash event: %w", err)
	}

	l.entries = append(l.entries, Entry{
		Sequence:    seq,
		Event:       event,
		ContentHash: contentHash,
		PrevHash:    l.headHash,
	})
	l.headHash = contentHash
	return nil
}

// Get retrieves an entry by sequence number.
func (l *Log) Get(seq uint64) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if seq == 0 || seq > uint64(len(l.entries)) {
		return nil, fmt.Errorf("entry %d not found", seq)
	}
	entry := l.entries[seq-1]
	return &entry, nil
}

// All returns a copy of every entry in append order.
func (l *Log) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ByType returns entries matching the given type, in append order.
func (l *Log) ByType(typ Type) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	for _, e := range l.entries {
		if e.Event.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Head returns the current head hash.
func (l *Log) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headHash
}

// Length returns the number of entries.
func (l *Log) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Verify checks the integrity of the entire chain.
func (l *Log) Verify() (bool, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prevHash := "genesis"
	for i, entry := range l.entries {
		if entry.PrevHash != prevHash {
			return false, fmt.Sprintf("chain broken at entry %d: expected prev %s, got %s", i+1, prevHash, entry.PrevHash)
		}

		computed, err := entryHash(entry.Sequence, entry.Event, entry.PrevHash)
		if err != nil {
			return false, fmt.Sprintf("failed to hash entry %d", i+1)
		}
		if computed != entry.ContentHash {
			return false, fmt.Sprintf("hash mismatch at entry %d", i+1)
		}
		prevHash = entry.ContentHash
	}

	return true, "chain verified"
}

// entryHash computes the content hash over the JCS-canonical form of the
// entry body, so byte layout never depends on Go's map iteration or
// struct field ordering quirks.
func entryHash(seq uint64, event Event, prevHash string) (string, error) {
	body := struct {
		Seq   uint64 `json:"seq"`
		Event Event  `json:"event"`
		Prev  string `json:"prev"`
	}{seq, event, prevHash}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(canonical)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}
