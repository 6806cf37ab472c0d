package database

import (
	"context"
	"formbuilder-service/service/models"
	"formbuilder-service/testutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeMigration(t *testing.T, dir, name, table string, columns ...string) {
	t.Helper()
	content, err := yaml.Marshal(MigrationArtifact{Name: name, Table: table, Columns: columns})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+MigrationFileExt), content, 0o644))
}

func TestRunPendingMigrations(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	dir := t.TempDir()

	writeMigration(t, dir, "2024_01_02_000000_create_orders_table", "orders", "item")
	writeMigration(t, dir, "2024_01_01_000000_create_surveys_table", "surveys", "q1", "q2")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	runner := NewMigrationRunner(dir, NewSchemaService(tdb.DB))

	pending, err := runner.PendingMigrations(tdb.DB)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "2024_01_01_000000_create_surveys_table.yaml", filepath.Base(pending[0]))

	require.NoError(t, runner.RunPendingMigrations(context.Background(), tdb.DB))

	assert.True(t, tdb.DB.Migrator().HasTable("surveys"))
	assert.True(t, tdb.DB.Migrator().HasTable("orders"))

	var records []models.SchemaMigration
	require.NoError(t, tdb.DB.Order("name ASC").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Batch)
	assert.Equal(t, 1, records[1].Batch)

	pending, err = runner.PendingMigrations(tdb.DB)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunPendingMigrations_IncrementsBatch(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	dir := t.TempDir()
	runner := NewMigrationRunner(dir, NewSchemaService(tdb.DB))

	writeMigration(t, dir, "2024_01_01_000000_create_surveys_table", "surveys", "q1")
	require.NoError(t, runner.RunPendingMigrations(context.Background(), tdb.DB))

	writeMigration(t, dir, "2024_01_02_000000_create_orders_table", "orders", "item")
	require.NoError(t, runner.RunPendingMigrations(context.Background(), tdb.DB))

	var record models.SchemaMigration
	require.NoError(t, tdb.DB.Where("name = ?", "2024_01_02_000000_create_orders_table").First(&record).Error)
	assert.Equal(t, 2, record.Batch)
}

func TestRunPendingMigrations_MissingDirectory(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	runner := NewMigrationRunner(filepath.Join(t.TempDir(), "absent"), NewSchemaService(tdb.DB))

	assert.NoError(t, runner.RunPendingMigrations(context.Background(), tdb.DB))
}

func TestRunPendingMigrations_SkipsFailingFile(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	dir := t.TempDir()
	schema := NewSchemaService(tdb.DB)
	runner := NewMigrationRunner(dir, schema)

	// 表已存在，surveys 迁移必然失败
	require.NoError(t, schema.CreateFormTable("surveys", []string{"q1"}))
	writeMigration(t, dir, "2024_01_01_000000_create_surveys_table", "surveys", "q1")
	writeMigration(t, dir, "2024_01_02_000000_create_orders_table", "orders", "item")

	tx := tdb.DB.Begin()
	err := runner.RunPendingMigrations(context.Background(), tx)
	require.ErrorIs(t, err, ErrMigrationSkipped)
	assert.Contains(t, err.Error(), "2024_01_01_000000_create_surveys_table")
	require.NoError(t, tx.Commit().Error)

	assert.True(t, tdb.DB.Migrator().HasTable("orders"), "失败文件之后的迁移仍应执行")

	var names []string
	require.NoError(t, tdb.DB.Model(&models.SchemaMigration{}).Pluck("name", &names).Error)
	assert.Equal(t, []string{"2024_01_02_000000_create_orders_table"}, names)

	pending, err := runner.PendingMigrations(tdb.DB)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "2024_01_01_000000_create_surveys_table.yaml", filepath.Base(pending[0]))
}

func TestRunMigration_OnlyRunsGivenFile(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	dir := t.TempDir()
	schema := NewSchemaService(tdb.DB)
	runner := NewMigrationRunner(dir, schema)

	// 遗留的失败迁移
	require.NoError(t, schema.CreateFormTable("surveys", []string{"q1"}))
	writeMigration(t, dir, "2024_01_01_000000_create_surveys_table", "surveys", "q1")
	writeMigration(t, dir, "2024_01_02_000000_create_orders_table", "orders", "item")

	path := filepath.Join(dir, "2024_01_02_000000_create_orders_table"+MigrationFileExt)
	require.NoError(t, runner.RunMigration(context.Background(), tdb.DB, path))
	assert.True(t, tdb.DB.Migrator().HasTable("orders"))

	var record models.SchemaMigration
	require.NoError(t, tdb.DB.Where("name = ?", "2024_01_02_000000_create_orders_table").First(&record).Error)
	assert.Equal(t, 1, record.Batch)

	// 重复执行同一文件不报错
	require.NoError(t, runner.RunMigration(context.Background(), tdb.DB, path))

	var count int64
	tdb.DB.Model(&models.SchemaMigration{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRunMigration_FailureInTransactionRollsBack(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	dir := t.TempDir()
	schema := NewSchemaService(tdb.DB)
	runner := NewMigrationRunner(dir, schema)

	require.NoError(t, schema.CreateFormTable("surveys", []string{"q1"}))
	writeMigration(t, dir, "2024_01_01_000000_create_surveys_table", "surveys", "q1")

	tx := tdb.DB.Begin()
	err := runner.RunMigration(context.Background(), tx, filepath.Join(dir, "2024_01_01_000000_create_surveys_table"+MigrationFileExt))
	require.Error(t, err)
	tx.Rollback()

	var count int64
	tdb.DB.Model(&models.SchemaMigration{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestReadMigrationArtifact_DefaultsName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024_01_01_000000_create_polls_table.yaml")
	require.NoError(t, os.WriteFile(path, []byte("table: polls\ncolumns: [a, b]\n"), 0o644))

	artifact, err := ReadMigrationArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "2024_01_01_000000_create_polls_table", artifact.Name)
	assert.Equal(t, []string{"a", "b"}, artifact.Columns)
}
