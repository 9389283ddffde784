package backends

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
)

// fakeQueryFunc answers one driver-level query with canned rows.
type fakeQueryFunc func(query string, args []driver.NamedValue) (driver.Rows, error)

// fakeDB opens a database/sql pool over an in-memory driver whose queries
// are answered by fn. Covers exactly the query shapes the sql backends
// issue; everything else errors.
func fakeDB(fn fakeQueryFunc) *sql.DB {
	return sql.OpenDB(fakeConnector{conn: &fakeConn{query: fn}})
}

type fakeConnector struct{ conn *fakeConn }

func (c fakeConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c fakeConnector) Driver() driver.Driver                        { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open by name not supported")
}

type fakeConn struct {
	query fakeQueryFunc
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return c.query(query, args)
}

// cannedRows builds a driver result set from literal values.
func cannedRows(cols []string, rows ...[]driver.Value) driver.Rows {
	return &fakeRows{cols: cols, rows: rows}
}

type fakeRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
