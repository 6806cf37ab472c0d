package formbuilder

import (
	"formbuilder-service/service/database"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T) (*ArtifactGenerator, *ModelRegistry) {
	t.Helper()
	root := t.TempDir()
	registry := NewModelRegistry()
	generator := NewArtifactGenerator(filepath.Join(root, "migrations"), filepath.Join(root, "models"), registry)
	generator.now = func() time.Time { return time.Date(2024, 3, 5, 14, 30, 15, 0, time.UTC) }
	return generator, registry
}

func TestCreateMigrationArtifact(t *testing.T) {
	generator, _ := newTestGenerator(t)

	path, err := generator.CreateMigrationArtifact("customer_feedbacks", []string{"email", "id", "message"})
	require.NoError(t, err)
	assert.Equal(t, "2024_03_05_143015_create_customer_feedbacks_table.yaml", filepath.Base(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), generatedFileComment))

	artifact, err := database.ReadMigrationArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "customer_feedbacks", artifact.Table)
	assert.Equal(t, []string{"email", "message"}, artifact.Columns)
	assert.Equal(t, "2024_03_05_143015_create_customer_feedbacks_table", artifact.Name)
}

func TestCreateMigrationArtifact_Conflict(t *testing.T) {
	generator, _ := newTestGenerator(t)

	_, err := generator.CreateMigrationArtifact("surveys", []string{"q1"})
	require.NoError(t, err)

	_, err = generator.CreateMigrationArtifact("surveys", []string{"q1"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestCreateModelArtifact_SkipsExisting(t *testing.T) {
	generator, registry := newTestGenerator(t)

	require.NoError(t, generator.CreateModelArtifact("surveys", []string{"q1"}))
	require.NoError(t, generator.CreateModelArtifact("surveys", []string{"q1", "q2"}))

	descriptor, err := generator.ReadModelArtifact(generator.ModelArtifactPath("surveys"))
	require.NoError(t, err)
	assert.Equal(t, "Survey", descriptor.Model)
	assert.Equal(t, []string{"q1"}, descriptor.Fillable, "已存在的模型描述不应被覆盖")

	registered, ok := registry.Lookup("surveys")
	require.True(t, ok)
	assert.Equal(t, []string{"q1"}, registered.Fillable)
}

func TestUpdateModelArtifact_Overwrites(t *testing.T) {
	generator, registry := newTestGenerator(t)

	require.NoError(t, generator.CreateModelArtifact("surveys", []string{"q1"}))
	require.NoError(t, generator.UpdateModelArtifact("surveys", []string{"q1", "q2", "updated_at"}))

	descriptor, err := generator.ReadModelArtifact(generator.ModelArtifactPath("surveys"))
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2"}, descriptor.Fillable)

	registered, _ := registry.Lookup("surveys")
	assert.Equal(t, []string{"q1", "q2"}, registered.Fillable)
}

func TestLoadModelArtifacts(t *testing.T) {
	generator, _ := newTestGenerator(t)
	require.NoError(t, generator.UpdateModelArtifact("surveys", []string{"q1"}))
	require.NoError(t, generator.UpdateModelArtifact("customer_feedbacks", []string{"email"}))
	require.NoError(t, os.WriteFile(filepath.Join(generator.modelsDir, "notes.txt"), []byte("x"), 0o644))

	fresh := NewModelRegistry()
	loader := NewArtifactGenerator(generator.migrationsDir, generator.modelsDir, fresh)

	descriptors, err := loader.LoadModelArtifacts()
	require.NoError(t, err)
	assert.Len(t, descriptors, 2)
	assert.Equal(t, []string{"customer_feedbacks", "surveys"}, fresh.Identifiers())
}

func TestLoadModelArtifacts_MissingDirectory(t *testing.T) {
	generator := NewArtifactGenerator("", filepath.Join(t.TempDir(), "absent"), NewModelRegistry())

	descriptors, err := generator.LoadModelArtifacts()
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}

func TestModelRegistry_RegisterCopiesFillable(t *testing.T) {
	registry := NewModelRegistry()
	fillable := []string{"a", "b"}
	registry.Register(ModelDescriptor{Model: "Survey", Table: "surveys", Fillable: fillable})
	fillable[0] = "mutated"

	descriptor, ok := registry.Lookup("surveys")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, descriptor.Fillable)
	assert.True(t, descriptor.IsFillable("b"))
	assert.False(t, descriptor.IsFillable("id"))

	_, ok = registry.Lookup("Survey")
	assert.False(t, ok, "按表单标识查找，不按模型名查找")
}
