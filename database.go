package nitrite

import (
	"sync"

	"github.com/nitrite-go/nitrite/errs"
	"github.com/nitrite-go/nitrite/index"
	"github.com/nitrite-go/nitrite/store"
)

// Database is the top-level handle (spec §2's Nitrite database
// abstraction): one backing store.Store, one shared store.Catalog (C2),
// one shared index.Manager (C3) spanning every collection it opens, and
// a registry of live *Collection facades. A single shared Manager (rather
// than one per collection) mirrors how bundoc/store.go keeps one
// metadata registry for the whole database — it also makes FindMatching
// and Restore single calls instead of a fan-out over every collection.
type Database struct {
	mu      sync.Mutex
	backing store.Store
	catalog *store.Catalog
	idxMgr  *index.Manager
	opts    Options

	collections map[string]*Collection
}

func collectionMapName(name string) string { return "$" + name + "_data" }

// processIds is shared by every collection, so NitriteIds are unique
// across the process rather than only within one collection.
var processIds = newIdGenerator()

// Open attaches a Database to an already-constructed backing store (an
// in-memory store or an LSM-backed one), restoring any index metadata the
// store already carries.
func Open(backing store.Store, opts Options) (*Database, error) {
	catalog, err := store.OpenCatalog(backing)
	if err != nil {
		return nil, errs.LiftBackendError(err)
	}
	idxMgr := index.NewManager(backing)
	if err := idxMgr.Restore(); err != nil {
		return nil, err
	}
	return &Database{
		backing:     backing,
		catalog:     catalog,
		idxMgr:      idxMgr,
		opts:        opts,
		collections: make(map[string]*Collection),
	}, nil
}

// GetCollection returns the named collection, opening (and registering in
// the catalog) it on first access. A previously Close-d handle is
// reopened rather than duplicated.
func (d *Database) GetCollection(name string) (*Collection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.collections[name]; ok {
		if c.state == stateDropped {
			return nil, errs.New(errs.InvalidOperation, "collection "+name+" was dropped")
		}
		c.mu.Lock()
		c.state = stateOpen
		c.mu.Unlock()
		return c, nil
	}
	return d.openCollectionLocked(name)
}

func (d *Database) openCollectionLocked(name string) (*Collection, error) {
	if name == "" {
		return nil, errs.New(errs.ValidationError, "collection name must not be empty")
	}
	mapName := collectionMapName(name)
	m, err := d.backing.OpenMap(mapName)
	if err != nil {
		return nil, errs.LiftBackendError(err)
	}
	if !d.catalog.Has(name) {
		if err := d.catalog.Register(name, mapName); err != nil {
			return nil, errs.LiftBackendError(err)
		}
	}
	c := &Collection{
		name:         name,
		backingStore: d.backing,
		m:            m,
		idxMgr:       d.idxMgr,
		ids:          processIds,
		chain:        newProcessorChain(),
		bus:          newEventBus(d.opts.logger()),
		sep:          d.opts.separator(),
		logger:       d.opts.logger(),
		state:        stateOpen,
	}
	d.collections[name] = c
	return c, nil
}

// ListCollections returns the names of every registered collection.
func (d *Database) ListCollections() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	names, err := d.catalog.Names()
	if err != nil {
		return nil, errs.LiftBackendError(err)
	}
	return names, nil
}

// DropCollection permanently removes a collection's data, indexes, and
// catalog entry.
func (d *Database) DropCollection(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.collections[name]
	if !ok {
		var err error
		c, err = d.openCollectionLocked(name)
		if err != nil {
			return err
		}
	}
	if err := c.Dispose(); err != nil {
		return err
	}
	if err := d.catalog.Unregister(name); err != nil {
		return errs.LiftBackendError(err)
	}
	delete(d.collections, name)
	return nil
}

// Close closes every open collection and the backing store.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.collections {
		_ = c.Close()
	}
	if err := d.backing.Close(); err != nil {
		return errs.LiftBackendError(err)
	}
	return nil
}
