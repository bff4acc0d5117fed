package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"strings"
	"sync"
)

// recordingDB is a database/sql backend that records statements and tracks
// applied migration versions, enough to drive transactions and the migrator.
type recordingDB struct {
	mu        sync.Mutex
	execs     []string
	applied   map[string]bool
	begins    int
	commits   int
	rollbacks int
}

func newRecordingDB() (*recordingDB, *sql.DB) {
	state := &recordingDB{applied: make(map[string]bool)}
	return state, sql.OpenDB(recordingConnector{state: state})
}

func (s *recordingDB) executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.execs...)
}

type recordingConnector struct {
	state *recordingDB
}

func (c recordingConnector) Connect(context.Context) (driver.Conn, error) {
	return &recordingConn{state: c.state}, nil
}

func (c recordingConnector) Driver() driver.Driver {
	return recordingDriver{state: c.state}
}

type recordingDriver struct {
	state *recordingDB
}

func (d recordingDriver) Open(string) (driver.Conn, error) {
	return &recordingConn{state: d.state}, nil
}

type recordingConn struct {
	state *recordingDB
}

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{state: c.state, query: query}, nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) Begin() (driver.Tx, error) {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	c.state.begins++
	return recordingTx{state: c.state}, nil
}

type recordingTx struct {
	state *recordingDB
}

func (t recordingTx) Commit() error {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	t.state.commits++
	return nil
}

func (t recordingTx) Rollback() error {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	t.state.rollbacks++
	return nil
}

type recordingStmt struct {
	state *recordingDB
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.execs = append(s.state.execs, s.query)
	if strings.Contains(s.query, "INSERT INTO schema_migrations") && len(args) == 1 {
		if version, ok := args[0].(string); ok {
			s.state.applied[version] = true
		}
	}
	return driver.RowsAffected(1), nil
}

func (s *recordingStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	var count int64
	if len(args) == 1 {
		if version, ok := args[0].(string); ok && s.state.applied[version] {
			count = 1
		}
	}
	return &countRows{values: []int64{count}}, nil
}

type countRows struct {
	values []int64
}

func (r *countRows) Columns() []string { return []string{"count"} }
func (r *countRows) Close() error      { return nil }

func (r *countRows) Next(dest []driver.Value) error {
	if len(r.values) == 0 {
		return io.EOF
	}
	dest[0] = r.values[0]
	r.values = r.values[1:]
	return nil
}
