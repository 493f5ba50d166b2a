package source

import "github.com/jsonschema-engine/interrogator/internal/genarena"

type journalKind int

const (
	journalInsertDocument journalKind = iota
	journalInsertLink
)

type journalEntry struct {
	kind   journalKind
	docKey genarena.Key
	srcKey genarena.Key
	uriKey string
}

// Txn brackets a sequence of mutations to a Sources repository so they can
// be rolled back as a unit. The repository serves reads consistently while
// a Txn is open; staged inserts become visible to readers immediately
// (there is no snapshot isolation from other goroutines — mutation is
// caller-serialized per the engine's concurrency model) but are fully
// reverted by Rollback.
type Txn struct {
	sources *Sources
	journal []journalEntry
	closed  bool
}

// StartTxn begins a new transaction against s.
func (s *Sources) StartTxn() *Txn {
	return &Txn{sources: s}
}

func (s *Sources) journal(txn *Txn, entry journalEntry) {
	if txn == nil {
		return
	}
	txn.journal = append(txn.journal, entry)
}

// Commit finalizes the transaction; its staged mutations remain.
func (t *Txn) Commit() error {
	if t.closed {
		return ErrNoActiveTransaction
	}
	t.closed = true
	t.journal = nil
	return nil
}

// Rollback reverts every mutation staged since StartTxn, in reverse order.
func (t *Txn) Rollback() error {
	if t.closed {
		return ErrNoActiveTransaction
	}
	t.closed = true

	s := t.sources
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(t.journal) - 1; i >= 0; i-- {
		entry := t.journal[i]
		switch entry.kind {
		case journalInsertLink:
			delete(s.byURI, entry.uriKey)
			s.links.Remove(entry.srcKey)
		case journalInsertDocument:
			s.documents.Remove(entry.docKey)
		}
	}
	t.journal = nil
	return nil
}
