package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// table reports which compliance table a statement inserts into.
func (c execCall) table() string {
	for _, t := range []string{"drug_tests", "violations", "credentials"} {
		if strings.Contains(c.sql, "INSERT INTO "+t) {
			return t
		}
	}
	return ""
}

// fakeDB records statements that were committed through fakeTx.
type fakeDB struct {
	mu         sync.Mutex
	committed  []execCall
	rollbacks  int
	acquired   int
	released   int
	acquireErr error
	beginErr   error
	commitErr  error
	failOn     string
	blockExec  bool
}

func (db *fakeDB) Acquire(ctx context.Context) (Conn, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.acquireErr != nil {
		return nil, db.acquireErr
	}
	db.acquired++
	return &fakeConn{db: db}, nil
}

func (db *fakeDB) rows(table string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, c := range db.committed {
		if c.table() == table {
			n++
		}
	}
	return n
}

type fakeConn struct {
	db *fakeDB
}

func (c *fakeConn) Begin(ctx context.Context) (pgx.Tx, error) {
	if c.db.beginErr != nil {
		return nil, c.db.beginErr
	}
	return &fakeTx{db: c.db}, nil
}

func (c *fakeConn) Release() {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.released++
}

// fakeTx implements the subset of pgx.Tx the writer uses.
type fakeTx struct {
	pgx.Tx
	db      *fakeDB
	pending []execCall
	closed  bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.db.blockExec {
		<-ctx.Done()
		return pgconn.CommandTag{}, ctx.Err()
	}
	if tx.db.failOn != "" && strings.Contains(sql, tx.db.failOn) {
		return pgconn.CommandTag{}, errors.New("simulated constraint violation")
	}
	tx.pending = append(tx.pending, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	if tx.db.commitErr != nil {
		return tx.db.commitErr
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.committed = append(tx.db.committed, tx.pending...)
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.pending = nil
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.rollbacks++
	return nil
}
