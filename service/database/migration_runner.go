/*
 * @module service/database/migration_runner
 * @description 迁移执行器，扫描迁移目录并执行尚未执行的建表迁移
 * @architecture 分层架构 - 数据访问层
 * @stateFlow 扫描迁移文件 -> 过滤已执行 -> 建表 -> 记录批次
 * @rules 按文件名顺序执行，同一次执行的迁移共享一个批次号；单个文件失败只回滚并跳过该文件
 * @dependencies gorm.io/gorm, gopkg.in/yaml.v3
 * @refs service/formbuilder/artifacts.go
 */

package database

import (
	"context"
	"errors"
	"fmt"
	"formbuilder-service/service/models"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// MigrationFileExt 迁移文件扩展名
const MigrationFileExt = ".yaml"

// ErrMigrationSkipped 有迁移文件执行失败并被跳过
var ErrMigrationSkipped = errors.New("部分迁移执行失败，已跳过")

// MigrationArtifact 建表迁移描述
type MigrationArtifact struct {
	Name    string   `yaml:"name"`
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
}

// MigrationRunner 迁移执行器
type MigrationRunner struct {
	dir    string
	schema *SchemaService
}

// NewMigrationRunner 创建迁移执行器
func NewMigrationRunner(dir string, schema *SchemaService) *MigrationRunner {
	return &MigrationRunner{
		dir:    dir,
		schema: schema,
	}
}

// ReadMigrationArtifact 读取迁移文件
func ReadMigrationArtifact(path string) (*MigrationArtifact, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", path, err)
	}

	var artifact MigrationArtifact
	if err := yaml.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("解析迁移文件 %s 失败: %w", path, err)
	}
	if artifact.Name == "" {
		artifact.Name = migrationName(path)
	}
	return &artifact, nil
}

// PendingMigrations 返回尚未执行的迁移文件路径，按文件名排序
func (r *MigrationRunner) PendingMigrations(db *gorm.DB) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取迁移目录失败: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != MigrationFileExt {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	var applied []string
	if err := db.Model(&models.SchemaMigration{}).Pluck("name", &applied).Error; err != nil {
		return nil, fmt.Errorf("查询已执行迁移失败: %w", err)
	}
	appliedSet := make(map[string]struct{}, len(applied))
	for _, name := range applied {
		appliedSet[name] = struct{}{}
	}

	pending := make([]string, 0)
	for _, file := range files {
		if _, ok := appliedSet[migrationName(file)]; ok {
			continue
		}
		pending = append(pending, filepath.Join(r.dir, file))
	}
	return pending, nil
}

// RunPendingMigrations 执行全部待执行迁移
// 每个迁移文件在独立的（嵌套）事务中执行，失败的文件回滚后跳过，不影响其余迁移；
// 有文件被跳过时返回包装了 ErrMigrationSkipped 的错误
func (r *MigrationRunner) RunPendingMigrations(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)

	pending, err := r.PendingMigrations(db)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	batch, err := nextBatch(db)
	if err != nil {
		return err
	}

	var skipped []string
	for _, path := range pending {
		if err := r.apply(db, path, batch); err != nil {
			slog.Warn("迁移执行失败，已跳过", "migration", migrationName(path), "error", err)
			skipped = append(skipped, migrationName(path))
		}
	}

	if len(skipped) > 0 {
		return fmt.Errorf("%w: %s", ErrMigrationSkipped, strings.Join(skipped, ", "))
	}
	return nil
}

// RunMigration 只执行指定的迁移文件，已执行过的直接返回
func (r *MigrationRunner) RunMigration(ctx context.Context, db *gorm.DB, path string) error {
	db = db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.SchemaMigration{}).Where("name = ?", migrationName(path)).Count(&count).Error; err != nil {
		return fmt.Errorf("查询已执行迁移失败: %w", err)
	}
	if count > 0 {
		return nil
	}

	batch, err := nextBatch(db)
	if err != nil {
		return err
	}
	return r.apply(db, path, batch)
}

// apply 建表并记录迁移；db 已处于事务中时使用保存点，失败只回滚本文件
func (r *MigrationRunner) apply(db *gorm.DB, path string, batch int) error {
	artifact, err := ReadMigrationArtifact(path)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := r.schema.WithDB(tx).CreateFormTable(artifact.Table, artifact.Columns); err != nil {
			return fmt.Errorf("执行迁移 %s 失败: %w", artifact.Name, err)
		}

		record := &models.SchemaMigration{
			Name:      migrationName(path),
			Batch:     batch,
			AppliedAt: time.Now(),
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("记录迁移 %s 失败: %w", artifact.Name, err)
		}

		slog.Info("迁移执行成功", "migration", record.Name, "table", artifact.Table, "batch", batch)
		return nil
	})
}

func nextBatch(db *gorm.DB) (int, error) {
	var lastBatch int
	if err := db.Model(&models.SchemaMigration{}).Select("COALESCE(MAX(batch), 0)").Scan(&lastBatch).Error; err != nil {
		return 0, fmt.Errorf("查询迁移批次失败: %w", err)
	}
	return lastBatch + 1, nil
}

// migrationName 文件名去掉扩展名作为迁移名
func migrationName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), MigrationFileExt)
}
