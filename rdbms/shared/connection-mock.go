package shared

import (
	"context"
	"errors"
	"sync"

	"github.com/relloyd/obspipe/logger"
)

// MockStatement is a statement executed against a MockConnection.
type MockStatement struct {
	Sql  string
	Args []interface{}
	InTx bool
}

// MockConnection implements Connector and records every statement it is given.
// Statements executed inside a transaction are only added to Committed when the transaction commits.
type MockConnection struct {
	log       logger.Logger
	dbType    string
	dml       DmlGenerator
	mu        sync.Mutex
	Executed  []MockStatement // everything executed, including rolled back work.
	Committed []MockStatement // auto-committed statements plus the statements of committed transactions.
	Commits   int
	Rollbacks int
	// ExecErr is called for every statement and, if it returns an error, the statement fails.
	ExecErr func(sql string) error
	// BeginErr is returned by Begin when set.
	BeginErr error
	Closed   bool
}

// NewMockConnectionWithMockTx returns a MockConnection using the ":N" bind style.
func NewMockConnectionWithMockTx(log logger.Logger, dbType string) *MockConnection {
	return &MockConnection{
		log:    log,
		dbType: dbType,
		dml:    &DmlGeneratorTxtBatch{Bind: BindColonN},
	}
}

func (c *MockConnection) Begin() (Transacter, error) {
	return c.BeginTx(context.Background())
}

func (c *MockConnection) BeginTx(ctx context.Context) (Transacter, error) {
	if c.BeginErr != nil {
		return nil, c.BeginErr
	}
	return &MockTx{conn: c}, nil
}

func (c *MockConnection) Exec(query string, args ...interface{}) (Result, error) {
	return c.ExecContext(context.Background(), query, args...)
}

func (c *MockConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if err := c.exec(query, args, false); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.Committed = append(c.Committed, MockStatement{Sql: query, Args: args})
	c.mu.Unlock()
	return mockResult{}, nil
}

func (c *MockConnection) exec(query string, args []interface{}, inTx bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Closed {
		return errors.New("mock connection is closed")
	}
	c.Executed = append(c.Executed, MockStatement{Sql: query, Args: args, InTx: inTx})
	if c.log != nil {
		c.log.Debug("mock exec: ", query)
	}
	if c.ExecErr != nil {
		return c.ExecErr(query)
	}
	return nil
}

func (c *MockConnection) PingContext(ctx context.Context) error {
	return nil
}

func (c *MockConnection) Close() {
	c.mu.Lock()
	c.Closed = true
	c.mu.Unlock()
}

func (c *MockConnection) GetType() string {
	return c.dbType
}

func (c *MockConnection) GetDmlGenerator() DmlGenerator {
	return c.dml
}

// CommittedStatements returns a copy of the committed statements.
func (c *MockConnection) CommittedStatements() []MockStatement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MockStatement(nil), c.Committed...)
}

// ExecutedStatements returns a copy of all executed statements.
func (c *MockConnection) ExecutedStatements() []MockStatement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MockStatement(nil), c.Executed...)
}

type MockTx struct {
	conn    *MockConnection
	pending []MockStatement
	done    bool
}

func (t *MockTx) Exec(query string, args ...interface{}) (Result, error) {
	return t.ExecContext(context.Background(), query, args...)
}

func (t *MockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if t.done {
		return nil, errors.New("transaction has already been committed or rolled back")
	}
	if err := t.conn.exec(query, args, true); err != nil {
		return nil, err
	}
	t.pending = append(t.pending, MockStatement{Sql: query, Args: args, InTx: true})
	return mockResult{}, nil
}

func (t *MockTx) Commit() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.Committed = append(t.conn.Committed, t.pending...)
	t.conn.Commits++
	return nil
}

func (t *MockTx) Rollback() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.pending = nil
	t.conn.mu.Lock()
	t.conn.Rollbacks++
	t.conn.mu.Unlock()
	return nil
}

type mockResult struct{}

func (mockResult) LastInsertId() (int64, error) { return 0, nil }
func (mockResult) RowsAffected() (int64, error) { return 0, nil }
