package store

import (
	"encoding/json"
)

// catalogMapName is the reserved map name backing the store catalog (C2),
// mirroring spec's $nitrite_catalog convention. Collection/index data maps
// never use this name.
const catalogMapName = "$nitrite_catalog"

// Catalog tracks which named collections exist in a Store, persisted in
// the store itself (rather than a side file, unlike the teacher's
// bundoc/metadata.go JSON catalog) so catalog state can never drift out of
// sync with the backend that holds the data it describes.
type Catalog struct {
	m OrderedMap
}

// OpenCatalog opens (creating if absent) the catalog map of s.
func OpenCatalog(s Store) (*Catalog, error) {
	m, err := s.OpenMap(catalogMapName)
	if err != nil {
		return nil, err
	}
	return &Catalog{m: m}, nil
}

type entryRecord struct {
	Name    string `json:"name"`
	DataMap string `json:"data_map"`
}

// Register records that a collection named `name` exists, backed by the
// data map `dataMap`. Idempotent.
func (c *Catalog) Register(name, dataMap string) error {
	rec := entryRecord{Name: name, DataMap: dataMap}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.m.Put([]byte(name), b)
}

// Unregister removes a collection's catalog entry.
func (c *Catalog) Unregister(name string) error {
	return c.m.Remove([]byte(name))
}

// Has reports whether name is a registered collection.
func (c *Catalog) Has(name string) bool {
	_, ok, err := c.m.Get([]byte(name))
	return err == nil && ok
}

// Names returns every registered collection name.
func (c *Catalog) Names() ([]string, error) {
	entries, err := c.m.Range(nil, nil, false)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		var rec entryRecord
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			continue
		}
		names = append(names, rec.Name)
	}
	return names, nil
}
