package driver

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct {
	calls []string
	fail  bool
}

func (d *stubDriver) record(operation string) error {
	d.calls = append(d.calls, operation)
	if d.fail {
		return errors.New("stub failure")
	}
	return nil
}

func (d *stubDriver) Connect(ctx context.Context) error { return d.record("connect") }
func (d *stubDriver) Disconnect() error                 { return d.record("disconnect") }

func (d *stubDriver) Query(ctx context.Context, sql string) ([]Row, error) {
	return []Row{{"n": int64(1)}}, d.record("query")
}

func (d *stubDriver) GetTables(ctx context.Context) ([]string, error) {
	return []string{"users"}, d.record("getTables")
}

func (d *stubDriver) GetTableSchema(ctx context.Context, table string) ([]Column, error) {
	return []Column{{Field: "id"}}, d.record("getTableSchema")
}

func (d *stubDriver) GetTableData(ctx context.Context, table string, options *TableQueryOptions) (*TableQueryResult, error) {
	return &TableQueryResult{}, d.record("getTableData")
}

func (d *stubDriver) DeleteRows(ctx context.Context, table string, ids []any) error {
	return d.record("deleteRows")
}

func (d *stubDriver) InsertRow(ctx context.Context, table string, row Row) error {
	return d.record("insertRow")
}

func (d *stubDriver) UpdateRows(ctx context.Context, table string, rows []Row) error {
	return d.record("updateRows")
}

func TestObservableDriverDelegation(t *testing.T) {
	stub := &stubDriver{}
	obs, err := NewObservableDriverWithOptions(stub, &ObservableDriverOptions{
		Name:          "delegation_test",
		EnableLogging: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, obs.Connect(ctx))

	rows, err := obs.Query(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	tables, err := obs.GetTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, tables)

	columns, err := obs.GetTableSchema(ctx, "users")
	require.NoError(t, err)
	assert.Len(t, columns, 1)

	_, err = obs.GetTableData(ctx, "users", nil)
	require.NoError(t, err)

	require.NoError(t, obs.InsertRow(ctx, "users", Row{"id": 1}))
	require.NoError(t, obs.UpdateRows(ctx, "users", []Row{{"id": 1}}))
	require.NoError(t, obs.DeleteRows(ctx, "users", []any{1}))
	require.NoError(t, obs.Disconnect())

	assert.Equal(t, []string{
		"connect", "query", "getTables", "getTableSchema", "getTableData",
		"insertRow", "updateRows", "deleteRows", "disconnect",
	}, stub.calls)
}

func TestObservableDriverErrorPassthrough(t *testing.T) {
	stub := &stubDriver{fail: true}
	obs, err := NewObservableDriverWithOptions(stub, &ObservableDriverOptions{
		Name:          "error_test",
		EnableLogging: false,
	})
	require.NoError(t, err)

	assert.Error(t, obs.Connect(context.Background()))
}

func TestObservableDriverNilDriver(t *testing.T) {
	_, err := NewObservableDriverWithOptions(nil, nil)
	assert.Error(t, err)
}
