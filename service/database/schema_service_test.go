/*
 * @module service/database/schema_service_test
 * @description SchemaService 单元测试
 * @architecture 测试层 - 单元测试
 */

package database

import (
	"formbuilder-service/testutil"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanColumnSync_RenameAndAdd(t *testing.T) {
	ops := PlanColumnSync("feedbacks", []string{"a", "b", "c"}, []string{"a", "x", "c", "d"})

	want := []ColumnOperation{
		{Type: ColumnOpRename, Table: "feedbacks", Column: "b", NewName: "x"},
		{Type: ColumnOpAdd, Table: "feedbacks", Column: "d"},
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Errorf("PlanColumnSync() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanColumnSync_NoDrops(t *testing.T) {
	ops := PlanColumnSync("feedbacks", []string{"a", "b", "c"}, []string{"a"})
	assert.Empty(t, ops, "删除字段不应生成任何列操作")
}

func TestPlanColumnSync_Identical(t *testing.T) {
	ops := PlanColumnSync("feedbacks", []string{"a", "b"}, []string{"a", "b"})
	assert.Empty(t, ops)
}

func TestPlanColumnSync_FromEmpty(t *testing.T) {
	ops := PlanColumnSync("feedbacks", nil, []string{"email", "phone"})

	require.Len(t, ops, 2)
	assert.Equal(t, ColumnOpAdd, ops[0].Type)
	assert.Equal(t, "email", ops[0].Column)
	assert.Equal(t, "phone", ops[1].Column)
}

func TestPlanColumnSync_IgnoresReservedColumns(t *testing.T) {
	ops := PlanColumnSync("feedbacks", []string{"email"}, []string{"id", "email", "created_at", "phone"})

	want := []ColumnOperation{
		{Type: ColumnOpAdd, Table: "feedbacks", Column: "phone"},
	}
	assert.Equal(t, want, ops)
}

func TestColumnOperation_String(t *testing.T) {
	rename := ColumnOperation{Type: ColumnOpRename, Table: "t", Column: "a", NewName: "b"}
	add := ColumnOperation{Type: ColumnOpAdd, Table: "t", Column: "c"}

	assert.Equal(t, "rename_column t.a -> b", rename.String())
	assert.Equal(t, "add_column t.c", add.String())
}

func TestCreateFormTable(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	service := NewSchemaService(tdb.DB)

	err := service.CreateFormTable("customer_feedbacks", []string{"email", "message", "id"})
	require.NoError(t, err)

	exists, err := service.CheckTableExists("customer_feedbacks")
	require.NoError(t, err)
	assert.True(t, exists)

	columns, err := service.ListColumns("customer_feedbacks")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email", "message", "created_at", "updated_at"}, columns)
}

func TestCreateFormTable_AlreadyExists(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	service := NewSchemaService(tdb.DB)

	require.NoError(t, service.CreateFormTable("surveys", []string{"q1"}))
	err := service.CreateFormTable("surveys", []string{"q1"})
	assert.Error(t, err)
}

func TestSyncColumns(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	service := NewSchemaService(tdb.DB)

	require.NoError(t, service.CreateFormTable("surveys", []string{"a", "b", "c"}))

	applied, err := service.SyncColumns("surveys", []string{"a", "b", "c"}, []string{"a", "x", "c", "d"})
	require.NoError(t, err)
	assert.Len(t, applied, 2)

	assert.True(t, service.HasColumn("surveys", "x"))
	assert.True(t, service.HasColumn("surveys", "d"))
	assert.False(t, service.HasColumn("surveys", "b"))
}

func TestSyncColumns_KeepsRemovedColumns(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	service := NewSchemaService(tdb.DB)

	require.NoError(t, service.CreateFormTable("surveys", []string{"a", "b"}))

	applied, err := service.SyncColumns("surveys", []string{"a", "b"}, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.True(t, service.HasColumn("surveys", "b"))
}

func TestSyncColumns_RenameConflictFails(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	service := NewSchemaService(tdb.DB)

	require.NoError(t, service.CreateFormTable("surveys", []string{"a", "b"}))

	// b -> a 与已有列冲突
	_, err := service.SyncColumns("surveys", []string{"a", "b"}, []string{"b", "a"})
	assert.Error(t, err)
}

func TestSyncColumns_RolledBackWithTransaction(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	service := NewSchemaService(tdb.DB)
	require.NoError(t, service.CreateFormTable("surveys", []string{"a"}))

	tx := tdb.DB.Begin()
	_, err := service.WithDB(tx).SyncColumns("surveys", []string{"a"}, []string{"a", "b"})
	require.NoError(t, err)
	tx.Rollback()

	assert.False(t, service.HasColumn("surveys", "b"))
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, ValidateTableName("customer_feedbacks"))
	assert.Error(t, ValidateTableName(""))
	assert.Error(t, ValidateTableName("   "))

	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidateTableName(string(long)))
}

func TestFilterReservedColumns(t *testing.T) {
	assert.Equal(t, []string{"email", "phone"}, FilterReservedColumns([]string{"id", "email", "updated_at", "phone"}))
	assert.True(t, IsReservedColumn("created_at"))
	assert.False(t, IsReservedColumn("email"))
}

func TestDuplicateColumns(t *testing.T) {
	assert.Empty(t, DuplicateColumns([]string{"a", "b", "c"}))
	assert.Empty(t, DuplicateColumns(nil))
	assert.Equal(t, []string{"q1"}, DuplicateColumns([]string{"q1", "q2", "q1", "q1"}))
	assert.Equal(t, []string{"Email"}, DuplicateColumns([]string{"email", "Email"}))
}
