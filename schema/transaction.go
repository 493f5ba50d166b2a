package schema

import "github.com/jsonschema-engine/interrogator/errors"

// ErrNoActiveTransaction is returned by Commit/Rollback on a Txn already closed.
const ErrNoActiveTransaction = errors.Error("no active transaction")

type journalKind int

const (
	journalInsertSchema journalKind = iota
	journalRegisterURI
	journalMutate
)

type journalEntry struct {
	kind   journalKind
	key    Key
	uriKey string
	prior  CompiledSchema
}

// Txn brackets a sequence of mutations to a Graph so they can be rolled
// back as a unit, mirroring source.Txn.
type Txn struct {
	journal  []journalEntry
	captured map[Key]bool
	closed   bool
}

// StartTxn begins a new transaction against g.
func (g *Graph) StartTxn() *Txn {
	return &Txn{captured: make(map[Key]bool)}
}

func (g *Graph) journal(txn *Txn, entry journalEntry) {
	if txn == nil {
		return
	}
	txn.journal = append(txn.journal, entry)
}

// captureForMutation records cs's pre-mutation value the first time key is
// touched within txn, so Rollback can restore it even though the mutating
// methods apply in place.
func (g *Graph) captureForMutation(txn *Txn, key Key, cs CompiledSchema) {
	if txn == nil || txn.captured[key] {
		return
	}
	txn.captured[key] = true
	txn.journal = append(txn.journal, journalEntry{kind: journalMutate, key: key, prior: cs})
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
func (g *Graph) Rollback(t *Txn) error {
	if t.closed {
		return ErrNoActiveTransaction
	}
	t.closed = true

	g.mu.Lock()
	defer g.mu.Unlock()

	for i := len(t.journal) - 1; i >= 0; i-- {
		entry := t.journal[i]
		switch entry.kind {
		case journalRegisterURI:
			delete(g.byURI, entry.uriKey)
		case journalInsertSchema:
			g.schemas.Remove(entry.key)
		case journalMutate:
			g.schemas.Set(entry.key, entry.prior)
		}
	}
	t.journal = nil
	return nil
}
