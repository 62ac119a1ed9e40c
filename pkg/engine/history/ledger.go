// Package history keeps a ledger of scan summaries so trends can be computed
// across runs.
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/report"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/storage"
)

// Entry is the ledger line for one run.
type Entry struct {
	Timestamp          time.Time      `json:"timestamp"`
	RunID              string         `json:"runId"`
	SnapshotVersion    uint64         `json:"snapshotVersion"`
	Assets             int            `json:"assets"`
	Failing            int            `json:"failing"`
	FindingsBySeverity map[string]int `json:"findingsBySeverity"`
	DriftPercentage    float64        `json:"driftPercentage"`
}

// NewEntry summarises a run. DriftPercentage is zero when drift did not run.
func NewEntry(run *engine.Run, at time.Time) Entry {
	st := run.Input.Graph.Stats()
	e := Entry{
		Timestamp:          at.UTC(),
		RunID:              run.ID,
		SnapshotVersion:    run.SnapshotVersion,
		Assets:             st.Assets,
		Failing:            st.Failing,
		FindingsBySeverity: report.SeverityCounts(run.Findings),
	}
	if o, ok := run.Outcome(analyzers.NameDrift); ok {
		if dr, ok := o.Result.(*analyzers.DriftResult); ok {
			e.DriftPercentage = dr.Summary.DriftPercentage
		}
	}
	return e
}

// Backend stores ledger entries in append order.
type Backend interface {
	Append(ctx context.Context, e Entry) error
	// Load returns at most the last n entries, oldest first.
	Load(ctx context.Context, n int) ([]Entry, error)
}

// Client manages historical state.
type Client struct {
	backend Backend
}

// NewClient wraps backend, defaulting to the local ledger file.
func NewClient(backend Backend) *Client {
	if backend == nil {
		backend = &FileBackend{}
	}
	return &Client{backend: backend}
}

// Record appends the summary of run.
func (c *Client) Record(ctx context.Context, run *engine.Run, at time.Time) (Entry, error) {
	e := NewEntry(run, at)
	return e, c.backend.Append(ctx, e)
}

// Window loads the last n entries.
func (c *Client) Window(ctx context.Context, n int) ([]Entry, error) {
	return c.backend.Load(ctx, n)
}

// Open picks a backend for location: s3:// URLs use a BlobBackend, anything
// else is a local JSONL file. An empty location means DefaultLedgerPath.
func Open(ctx context.Context, location string, opts ...storage.Option) (Backend, error) {
	if !strings.HasPrefix(location, "s3://") {
		return &FileBackend{Path: location}, nil
	}
	loc, err := storage.Open(ctx, location, opts...)
	if err != nil {
		return nil, err
	}
	return NewBlobBackend(loc.Store, loc.Key), nil
}

// FileBackend appends JSON lines to a local file.
type FileBackend struct {
	Path string
}

// NewLocalBackend creates a file-based backend at the specified path.
func NewLocalBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) path() (string, error) {
	if b.Path != "" {
		return b.Path, nil
	}
	return DefaultLedgerPath()
}

func (b *FileBackend) Append(_ context.Context, e Entry) error {
	path, err := b.path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

func (b *FileBackend) Load(_ context.Context, n int) ([]Entry, error) {
	path, err := b.path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	entries, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}
	return tail(entries, n), nil
}

// BlobBackend keeps the whole ledger as one object. Object stores cannot
// append, so Append is read-modify-write serialised within this process.
type BlobBackend struct {
	Store storage.BlobStore
	Key   string

	mu sync.Mutex
}

func NewBlobBackend(store storage.BlobStore, key string) *BlobBackend {
	return &BlobBackend{Store: store, Key: key}
}

func (b *BlobBackend) Append(ctx context.Context, e Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.readAll(ctx)
	if err != nil {
		return err
	}
	existing = append(existing, e)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range existing {
		if err := enc.Encode(entry); err != nil {
			return err
		}
	}
	return b.Store.Put(ctx, b.Key, buf.Bytes())
}

func (b *BlobBackend) Load(ctx context.Context, n int) ([]Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return tail(entries, n), nil
}

func (b *BlobBackend) readAll(ctx context.Context) ([]Entry, error) {
	data, err := b.Store.Get(ctx, b.Key)
	if errors.Is(err, storage.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// decode skips blank lines; a malformed line is an error so a corrupted
// ledger is not silently truncated on the next write.
func decode(data []byte) ([]Entry, error) {
	entries := []Entry{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func tail(entries []Entry, n int) []Entry {
	if n > 0 && len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}

// DefaultLedgerPath provides the default local storage path.
func DefaultLedgerPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".factorytwin", "ledger.jsonl"), nil
}
