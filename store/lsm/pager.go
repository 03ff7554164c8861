// Package lsm implements the persistent OrderedMap backend: a paged,
// buffer-pooled B+Tree written directly to one data file per map.
//
// It is responsible for:
// 1. Pager: Direct Disk I/O, managing a single data file split into 8KB pages.
// 2. BufferPool: In-memory SLRU cache to minimize disk access.
// 3. BPlusTree: The core indexing data structure for fast key lookup.
// 4. Page: The fundamental unit of storage, containing headers and raw data.
package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nitrite-go/nitrite/store/lsm/internal/util"
)

// Pager manages disk I/O for fixed-size pages.
type Pager struct {
	file         *os.File
	mu           sync.RWMutex
	nextPageID   PageID
	diskPageSize int64
}

// NewPager opens (creating if necessary) the data file backing a map.
func NewPager(filename string) (*Pager, error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrDiskWriteFailed, err)
	}

	diskPageSize := int64(PageSize)

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", util.ErrDiskReadFailed, err)
	}

	nextPageID := PageID(info.Size() / diskPageSize)

	return &Pager{
		file:         file,
		nextPageID:   nextPageID,
		diskPageSize: diskPageSize,
	}, nil
}

// AllocatePage reserves a new PageID and extends the file size.
func (p *Pager) AllocatePage() (PageID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pageID := p.nextPageID
	p.nextPageID++

	// Extend the file
	newSize := int64(p.nextPageID) * p.diskPageSize
	if err := p.file.Truncate(newSize); err != nil {
		return 0, fmt.Errorf("%w: %v", util.ErrDiskWriteFailed, err)
	}

	return pageID, nil
}

// ReadPage reads the page data from disk into memory.
func (p *Pager) ReadPage(pageID PageID) (*Page, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if pageID >= p.nextPageID {
		return nil, util.ErrInvalidPageID
	}

	page := &Page{ID: pageID} // Data is zeroed [PageSize]
	offset := int64(pageID) * p.diskPageSize

	// Read Disk Data
	diskData := make([]byte, p.diskPageSize)
	n, err := p.file.ReadAt(diskData, offset)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("%w: %v", util.ErrDiskReadFailed, err)
	}

	copy(page.Data[:], diskData)

	return page, nil
}

// WritePage writes a page to disk
func (p *Pager) WritePage(page *Page) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if page.ID >= p.nextPageID {
		return util.ErrInvalidPageID
	}

	dataToWrite := page.Data[:]
	offset := int64(page.ID) * p.diskPageSize
	_, err := p.file.WriteAt(dataToWrite, offset)
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrDiskWriteFailed, err)
	}

	// Mark as clean
	page.mu.Lock()
	page.IsDirty = false
	page.mu.Unlock()

	return nil
}

// Sync flushes all pending writes to disk
func (p *Pager) Sync() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrDiskWriteFailed, err)
	}
	return nil
}

// Close closes the pager
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file != nil {
		if err := p.file.Sync(); err != nil {
			return fmt.Errorf("%w: %v", util.ErrDiskWriteFailed, err)
		}
		return p.file.Close()
	}
	return nil
}

// GetNextPageID returns the next available page ID
func (p *Pager) GetNextPageID() PageID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nextPageID
}
