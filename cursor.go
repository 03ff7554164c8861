package nitrite

// Cursor lazily walks a planned result set, applying the registered
// processor chain's ProcessAfterRead to each document as it is yielded
// (spec §4.6's read path). Sorting (when requested) requires examining
// every candidate's sort-key values up front, so FindOptions.Sort is
// resolved before the Cursor is constructed; skip/limit are applied to
// the id list for the same reason. Fetch and process_after_read remain
// lazy per-document.
type Cursor struct {
	ids       []NitriteId
	fetch     func(NitriteId) (*Document, bool, error)
	afterRead func(*Document) error
	pos       int
	cur       *Document
	err       error
}

func newCursor(ids []NitriteId, fetch func(NitriteId) (*Document, bool, error), afterRead func(*Document) error) *Cursor {
	return &Cursor{ids: ids, fetch: fetch, afterRead: afterRead}
}

// Next advances the cursor, returning false once exhausted or on error
// (check Err after a false return to distinguish the two).
func (c *Cursor) Next() bool {
	if c.err != nil {
		return false
	}
	for c.pos < len(c.ids) {
		id := c.ids[c.pos]
		c.pos++
		doc, ok, err := c.fetch(id)
		if err != nil {
			c.err = err
			return false
		}
		if !ok {
			continue // document removed concurrently between plan and fetch
		}
		if err := c.afterRead(doc); err != nil {
			c.err = err
			return false
		}
		c.cur = doc
		return true
	}
	return false
}

// Document returns the document most recently yielded by Next.
func (c *Cursor) Document() *Document { return c.cur }

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error { return c.err }

// Count returns the number of ids the plan produced, independent of
// iteration position.
func (c *Cursor) Count() int { return len(c.ids) }

// All drains the cursor into a slice.
func (c *Cursor) All() ([]*Document, error) {
	out := make([]*Document, 0, len(c.ids))
	for c.Next() {
		out = append(out, c.Document())
	}
	return out, c.Err()
}
