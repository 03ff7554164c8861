package lsm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/nitrite-go/nitrite/store"
)

// Options configures a durable Store.
type Options struct {
	// Dir is the directory holding one data file per map. Created if it
	// does not exist.
	Dir string
	// BufferPoolCapacity is the number of pages cached per map. Defaults
	// to 256 (2MiB at the 8KiB page size) if zero.
	BufferPoolCapacity int
}

// Store is a durable store.Store: each named map is its own paged,
// buffer-pooled B+Tree file under Options.Dir.
type Store struct {
	opts Options

	mu     sync.RWMutex
	maps   map[string]*Map
	closed bool
}

// Open opens or creates a durable store rooted at opts.Dir.
func Open(opts Options) (*Store, error) {
	if opts.BufferPoolCapacity <= 0 {
		opts.BufferPoolCapacity = 256
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, err
	}
	s := &Store{opts: opts, maps: make(map[string]*Map)}

	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".db" {
			continue
		}
		name := e.Name()[:len(e.Name())-len(".db")]
		if _, err := s.OpenMap(name); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) OpenMap(name string) (store.OrderedMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, store.ErrClosed
	}
	if m, ok := s.maps[name]; ok {
		return m, nil
	}

	dataFile := filepath.Join(s.opts.Dir, name+".db")
	pager, err := NewPager(dataFile)
	if err != nil {
		return nil, err
	}
	bp := NewBufferPool(s.opts.BufferPoolCapacity, pager)

	var tree *BPlusTree
	rootID := readRootID(s.opts.Dir, name)
	if rootID != 0 {
		tree, err = LoadBPlusTree(bp, rootID)
	} else {
		tree, err = NewBPlusTree(bp)
	}
	if err != nil {
		return nil, err
	}
	tree.SetOnRootChange(func(id PageID) {
		_ = writeRootID(s.opts.Dir, name, id)
	})
	_ = writeRootID(s.opts.Dir, name, tree.GetRootID())

	m := &Map{name: name, tree: tree, bp: bp, attrPath: filepath.Join(s.opts.Dir, name+".attrs.json")}
	m.loadAttributes()
	s.maps[name] = m
	return m, nil
}

func (s *Store) RemoveMap(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	if m, ok := s.maps[name]; ok {
		m.bp.Close()
		delete(s.maps, name)
	}
	os.Remove(filepath.Join(s.opts.Dir, name+".db"))
	os.Remove(filepath.Join(s.opts.Dir, name+".root"))
	os.Remove(filepath.Join(s.opts.Dir, name+".attrs.json"))
	return nil
}

func (s *Store) HasMap(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.maps[name]
	return ok
}

func (s *Store) MapNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.maps))
	for name := range s.maps {
		names = append(names, name)
	}
	return names
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	for _, m := range s.maps {
		if err := m.bp.Close(); err != nil {
			return err
		}
	}
	s.closed = true
	return nil
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// readRootID/writeRootID persist each map's B+Tree root page id across
// restarts, the same role bundoc/metadata.go's CollectionMeta.Indexes
// field served for the teacher, scoped down to one map instead of a
// whole-database JSON catalog since the in-store catalog (store/catalog.go)
// now owns that higher-level bookkeeping.
func readRootID(dir, name string) PageID {
	b, err := os.ReadFile(filepath.Join(dir, name+".root"))
	if err != nil {
		return 0
	}
	var id uint64
	if err := json.Unmarshal(b, &id); err != nil {
		return 0
	}
	return PageID(id)
}

func writeRootID(dir, name string, id PageID) error {
	b, err := json.Marshal(uint64(id))
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+".root"), b, 0644)
}
