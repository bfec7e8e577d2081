package state

import (
	"errors"
	"fmt"

	"junotreasury/storage"
)

var errOverlayClosed = errors.New("state: overlay already committed or discarded")

// Overlay is a per-call working copy over a database. Reads fall through to
// the backing store; writes stay in memory until Commit applies them as one
// batch. Discard drops them.
type Overlay struct {
	db      storage.Database
	writes  map[string][]byte
	deleted map[string]struct{}
	order   []string
	closed  bool
}

// NewOverlay opens a working copy over db.
func NewOverlay(db storage.Database) *Overlay {
	return &Overlay{
		db:      db,
		writes:  make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

func (o *Overlay) touch(key string) {
	if _, ok := o.writes[key]; ok {
		return
	}
	if _, ok := o.deleted[key]; ok {
		return
	}
	o.order = append(o.order, key)
}

// Get returns the staged value or the backing value.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	k := string(key)
	if value, ok := o.writes[k]; ok {
		return append([]byte(nil), value...), nil
	}
	if _, ok := o.deleted[k]; ok {
		return nil, storage.ErrNotFound
	}
	return o.db.Get(key)
}

// Put stages a write.
func (o *Overlay) Put(key, value []byte) error {
	if o.closed {
		return errOverlayClosed
	}
	k := string(key)
	o.touch(k)
	delete(o.deleted, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

// Delete stages a removal.
func (o *Overlay) Delete(key []byte) error {
	if o.closed {
		return errOverlayClosed
	}
	k := string(key)
	o.touch(k)
	delete(o.writes, k)
	o.deleted[k] = struct{}{}
	return nil
}

// Dirty reports the number of staged keys.
func (o *Overlay) Dirty() int { return len(o.order) }

// Commit writes every staged change in one atomic batch.
func (o *Overlay) Commit() error {
	if o.closed {
		return errOverlayClosed
	}
	batch := new(storage.Batch)
	for _, k := range o.order {
		if value, ok := o.writes[k]; ok {
			batch.Put([]byte(k), value)
			continue
		}
		batch.Delete([]byte(k))
	}
	if err := o.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	o.reset()
	o.closed = true
	return nil
}

// Discard drops every staged change.
func (o *Overlay) Discard() {
	o.reset()
	o.closed = true
}

func (o *Overlay) reset() {
	o.writes = make(map[string][]byte)
	o.deleted = make(map[string]struct{})
	o.order = nil
}
