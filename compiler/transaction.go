package compiler

import (
	"github.com/jsonschema-engine/interrogator/errors"
	"github.com/jsonschema-engine/interrogator/schema"
	"github.com/jsonschema-engine/interrogator/source"
)

// ErrNoActiveTransaction is returned by Commit/Rollback on a Txn already closed.
const ErrNoActiveTransaction = errors.Error("compiler: no active transaction")

// Txn coordinates a source.Txn and a schema.Txn as one unit, so a compile
// pass spanning both the source repository and the schema graph rolls back
// atomically on any sub-failure (invariant 4).
type Txn struct {
	compiler  *Compiler
	sourceTxn *source.Txn
	schemaTxn *schema.Txn
	closed    bool
}

// StartTxn begins a transaction spanning c's source repository and schema graph.
func (c *Compiler) StartTxn() *Txn {
	return &Txn{
		compiler:  c,
		sourceTxn: c.Sources.StartTxn(),
		schemaTxn: c.Graph.StartTxn(),
	}
}

// Commit finalizes both underlying transactions.
func (t *Txn) Commit() error {
	if t.closed {
		return ErrNoActiveTransaction
	}
	t.closed = true
	if err := t.sourceTxn.Commit(); err != nil {
		return err
	}
	return t.schemaTxn.Commit()
}

// Rollback reverts both underlying transactions, schema graph first so a
// rolled-back reference's dependent edge never outlives the source link it
// was discovered from.
func (t *Txn) Rollback() error {
	if t.closed {
		return ErrNoActiveTransaction
	}
	t.closed = true

	schemaErr := t.compiler.Graph.Rollback(t.schemaTxn)
	sourceErr := t.sourceTxn.Rollback()
	if schemaErr != nil {
		return schemaErr
	}
	return sourceErr
}
