package scheduler

import (
	"context"
	"formbuilder-service/service/database"
	"formbuilder-service/service/distributed_lock"
	"formbuilder-service/service/formbuilder"
	"formbuilder-service/testutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSchemaReconciler_RunOnce(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	root := t.TempDir()
	migrationsDir := filepath.Join(root, "migrations")
	schema := database.NewSchemaService(tdb.DB)
	registry := formbuilder.NewModelRegistry()
	artifacts := formbuilder.NewArtifactGenerator(migrationsDir, filepath.Join(root, "models"), registry)
	runner := database.NewMigrationRunner(migrationsDir, schema)

	factory := testutil.NewTestDataFactory(tdb.DB)
	drifted := factory.CreateForm(testutil.WithFields("q1", "q2"))
	missing := factory.CreateForm(testutil.WithFields("a"))
	pending := factory.CreateForm(testutil.WithFields("item"))

	// 生成表缺少 q2 列
	require.NoError(t, schema.CreateFormTable(drifted.Identifier, []string{"q1"}))

	// 尚未执行的迁移
	require.NoError(t, os.MkdirAll(migrationsDir, 0o755))
	content, err := yaml.Marshal(database.MigrationArtifact{
		Name:    "2024_01_01_000000_create_" + pending.Identifier + "_table",
		Table:   pending.Identifier,
		Columns: []string{"item"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(migrationsDir, "2024_01_01_000000_create_"+pending.Identifier+"_table.yaml"), content, 0o644))

	reconciler := NewSchemaReconciler(tdb.DB, schema, artifacts, runner, "")
	report, err := reconciler.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.FormsChecked)
	assert.Empty(t, report.MigrationError)
	assert.Empty(t, report.Errors)
	assert.Equal(t, []string{"q2"}, report.AddedColumns[drifted.Identifier])
	assert.Equal(t, []string{missing.Identifier}, report.MissingTables)
	assert.ElementsMatch(t, []string{drifted.Identifier, pending.Identifier}, report.Reregistered)

	assert.True(t, schema.HasColumn(drifted.Identifier, "q2"))
	assert.True(t, tdb.DB.Migrator().HasTable(pending.Identifier))

	descriptor, ok := registry.Lookup(drifted.Identifier)
	require.True(t, ok)
	assert.Equal(t, []string{"q1", "q2"}, descriptor.Fillable)

	_, ok = registry.Lookup(missing.Identifier)
	assert.False(t, ok)
	assert.False(t, report.HasErrors())
}

func TestSchemaReconciler_Idempotent(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	root := t.TempDir()
	schema := database.NewSchemaService(tdb.DB)
	artifacts := formbuilder.NewArtifactGenerator(filepath.Join(root, "migrations"), filepath.Join(root, "models"), formbuilder.NewModelRegistry())
	runner := database.NewMigrationRunner(filepath.Join(root, "migrations"), schema)

	form := testutil.NewTestDataFactory(tdb.DB).CreateForm(testutil.WithFields("q1"))
	require.NoError(t, schema.CreateFormTable(form.Identifier, []string{"q1"}))

	reconciler := NewSchemaReconciler(tdb.DB, schema, artifacts, runner, "")
	_, err := reconciler.RunOnce(context.Background())
	require.NoError(t, err)

	report, err := reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.AddedColumns)
}

func TestSchemaReconciler_RunLockedSkipsWhenHeld(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	root := t.TempDir()
	schema := database.NewSchemaService(tdb.DB)
	artifacts := formbuilder.NewArtifactGenerator(filepath.Join(root, "migrations"), filepath.Join(root, "models"), formbuilder.NewModelRegistry())
	runner := database.NewMigrationRunner(filepath.Join(root, "migrations"), schema)

	lock := distributed_lock.NewMemoryLock()
	reconciler := NewSchemaReconciler(tdb.DB, schema, artifacts, runner, "")
	reconciler.SetLocker(distributed_lock.NewLockExecutor(lock))

	report, err := reconciler.RunLocked(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	// 其他实例持有锁
	held, err := lock.TryLock(context.Background(), reconcileLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	report, err = reconciler.RunLocked(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestSchemaReconciler_InvalidCron(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	reconciler := NewSchemaReconciler(tdb.DB, database.NewSchemaService(tdb.DB), nil, nil, "not a cron")
	assert.Error(t, reconciler.Start())
}

func TestSchemaReconciler_StartStop(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	reconciler := NewSchemaReconciler(tdb.DB, database.NewSchemaService(tdb.DB), nil, nil, "")
	require.NoError(t, reconciler.Start())
	reconciler.Stop()
}
