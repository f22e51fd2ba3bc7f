package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KaramelBytes/tabscope-cli/internal/utils"
)

// MemoryStore keeps windows in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	stamps map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stamps: make(map[string][]time.Time)}
}

func (m *MemoryStore) Load(_ context.Context, clientID string) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.stamps[clientID]...), nil
}

func (m *MemoryStore) Save(_ context.Context, clientID string, stamps []time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(stamps) == 0 {
		delete(m.stamps, clientID)
		return nil
	}
	m.stamps[clientID] = append([]time.Time(nil), stamps...)
	return nil
}

// FileStore persists windows as JSON so separate CLI invocations share them.
// Writes are atomic; concurrent processes may still race on read-modify-write.
type FileStore struct {
	Path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

type fileState struct {
	Clients map[string][]int64 `json:"clients"` // unix milliseconds
}

func (f *FileStore) read() (fileState, error) {
	st := fileState{Clients: map[string][]int64{}}
	if _, err := utils.ReadJSON(f.Path, &st); err != nil {
		return st, err
	}
	if st.Clients == nil {
		st.Clients = map[string][]int64{}
	}
	return st, nil
}

func (f *FileStore) Load(_ context.Context, clientID string) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.read()
	if err != nil {
		return nil, err
	}
	raw := st.Clients[clientID]
	out := make([]time.Time, len(raw))
	for i, ms := range raw {
		out[i] = time.UnixMilli(ms)
	}
	return out, nil
}

func (f *FileStore) Save(_ context.Context, clientID string, stamps []time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, err := f.read()
	if err != nil {
		return err
	}
	if len(stamps) == 0 {
		delete(st.Clients, clientID)
	} else {
		raw := make([]int64, len(stamps))
		for i, ts := range stamps {
			raw[i] = ts.UnixMilli()
		}
		st.Clients[clientID] = raw
	}
	b, err := utils.PrettyJSON(st)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(f.Path, b); err != nil {
		return fmt.Errorf("save rate state: %w", err)
	}
	return nil
}
