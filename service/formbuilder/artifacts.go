package formbuilder

import (
	"errors"
	"fmt"
	"formbuilder-service/service/database"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	modelArtifactExt      = ".yaml"
	migrationTimestamp    = "2006_01_02_150405"
	generatedFileComment  = "# 由表单构建器自动生成，请勿手动修改\n"
	artifactDirPermission = 0o755
)

// ArtifactGenerator 生成迁移文件和模型描述文件
type ArtifactGenerator struct {
	migrationsDir string
	modelsDir     string
	registry      *ModelRegistry
	now           func() time.Time
}

// NewArtifactGenerator 创建生成器
func NewArtifactGenerator(migrationsDir, modelsDir string, registry *ModelRegistry) *ArtifactGenerator {
	return &ArtifactGenerator{
		migrationsDir: migrationsDir,
		modelsDir:     modelsDir,
		registry:      registry,
		now:           time.Now,
	}
}

// MigrationArtifactPath 建表迁移文件路径
func (g *ArtifactGenerator) MigrationArtifactPath(tableName string, at time.Time) string {
	name := fmt.Sprintf("%s_create_%s_table%s", at.Format(migrationTimestamp), tableName, database.MigrationFileExt)
	return filepath.Join(g.migrationsDir, name)
}

// ModelArtifactPath 模型描述文件路径，由表名确定
func (g *ArtifactGenerator) ModelArtifactPath(tableName string) string {
	return filepath.Join(g.modelsDir, ModelName(tableName)+modelArtifactExt)
}

// CreateMigrationArtifact 写入建表迁移文件；同名文件已存在视为冲突
func (g *ArtifactGenerator) CreateMigrationArtifact(tableName string, fieldNames []string) (string, error) {
	path := g.MigrationArtifactPath(tableName, g.now())
	artifact := database.MigrationArtifact{
		Name:    strings.TrimSuffix(filepath.Base(path), database.MigrationFileExt),
		Table:   tableName,
		Columns: database.FilterReservedColumns(fieldNames),
	}

	if err := writeYAML(path, artifact, os.O_WRONLY|os.O_CREATE|os.O_EXCL); err != nil {
		return "", fmt.Errorf("%w: 写入迁移文件 %s 失败: %v", ErrGenerationFailed, path, err)
	}

	slog.Info("迁移文件已生成", "path", path, "table", tableName)
	return path, nil
}

// CreateModelArtifact 模型描述不存在时才写入
func (g *ArtifactGenerator) CreateModelArtifact(tableName string, fieldNames []string) error {
	path := g.ModelArtifactPath(tableName)
	if _, err := os.Stat(path); err == nil {
		slog.Info("模型描述已存在，跳过生成", "path", path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: 检查模型描述 %s 失败: %v", ErrGenerationFailed, path, err)
	}

	return g.writeModelArtifact(tableName, fieldNames)
}

// UpdateModelArtifact 无条件覆盖模型描述
func (g *ArtifactGenerator) UpdateModelArtifact(tableName string, fieldNames []string) error {
	return g.writeModelArtifact(tableName, fieldNames)
}

// ReadModelArtifact 读取单个模型描述
func (g *ArtifactGenerator) ReadModelArtifact(path string) (ModelDescriptor, error) {
	var descriptor ModelDescriptor

	content, err := os.ReadFile(path)
	if err != nil {
		return descriptor, err
	}
	if err := yaml.Unmarshal(content, &descriptor); err != nil {
		return descriptor, fmt.Errorf("解析模型描述 %s 失败: %w", path, err)
	}
	return descriptor, nil
}

// LoadModelArtifacts 读取目录下全部模型描述并注册
func (g *ArtifactGenerator) LoadModelArtifacts() ([]ModelDescriptor, error) {
	entries, err := os.ReadDir(g.modelsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取模型目录失败: %w", err)
	}

	descriptors := make([]ModelDescriptor, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != modelArtifactExt {
			continue
		}

		descriptor, err := g.ReadModelArtifact(filepath.Join(g.modelsDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if descriptor.Table == "" {
			slog.Warn("模型描述缺少表名，已忽略", "file", entry.Name())
			continue
		}

		g.registry.Register(descriptor)
		descriptors = append(descriptors, descriptor)
	}

	slog.Info("模型描述加载完成", "count", len(descriptors))
	return descriptors, nil
}

func (g *ArtifactGenerator) writeModelArtifact(tableName string, fieldNames []string) error {
	path := g.ModelArtifactPath(tableName)
	descriptor := ModelDescriptor{
		Model:    ModelName(tableName),
		Table:    tableName,
		Fillable: database.FilterReservedColumns(fieldNames),
	}

	if err := writeYAML(path, descriptor, os.O_WRONLY|os.O_CREATE|os.O_TRUNC); err != nil {
		return fmt.Errorf("%w: 写入模型描述 %s 失败: %v", ErrGenerationFailed, path, err)
	}

	g.registry.Register(descriptor)
	slog.Info("模型描述已写入", "path", path, "fillable", descriptor.Fillable)
	return nil
}

func writeYAML(path string, value interface{}, flag int) error {
	content, err := yaml.Marshal(value)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), artifactDirPermission); err != nil {
		return err
	}

	file, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(generatedFileComment); err != nil {
		file.Close()
		return err
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
