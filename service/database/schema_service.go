/*
 * @module service/database/schema_service
 * @description 表结构管理服务，负责表单生成表的创建、列重命名和列新增
 * @architecture 分层架构 - 数据访问层
 * @stateFlow 旧字段列表 + 新字段列表 -> 位置对比 -> 重命名/新增列
 * @rules 只做新增和重命名，从不删除列；所有列均为可空文本列
 * @dependencies gorm.io/gorm, github.com/lib/pq
 * @refs service/formbuilder/form_service.go, service/database/migration_runner.go
 */

package database

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// 列操作类型
const (
	ColumnOpRename = "rename_column"
	ColumnOpAdd    = "add_column"
)

// textColumnLength 生成列统一使用的长度
const textColumnLength = 255

// reservedColumns 生成表自带的列，不参与字段同步
var reservedColumns = map[string]struct{}{
	"id":         {},
	"created_at": {},
	"updated_at": {},
}

// ColumnOperation 单个列变更操作
type ColumnOperation struct {
	Type    string `json:"type"`
	Table   string `json:"table"`
	Column  string `json:"column"`
	NewName string `json:"new_name,omitempty"`
}

// String 用于日志输出
func (op ColumnOperation) String() string {
	if op.Type == ColumnOpRename {
		return fmt.Sprintf("%s %s.%s -> %s", op.Type, op.Table, op.Column, op.NewName)
	}
	return fmt.Sprintf("%s %s.%s", op.Type, op.Table, op.Column)
}

// SchemaService 表结构管理服务
type SchemaService struct {
	db *gorm.DB
}

// NewSchemaService 创建表结构管理服务实例
func NewSchemaService(db *gorm.DB) *SchemaService {
	return &SchemaService{db: db}
}

// WithDB 返回绑定到指定连接（通常是事务）的副本
func (s *SchemaService) WithDB(db *gorm.DB) *SchemaService {
	return &SchemaService{db: db}
}

// IsReservedColumn 是否为生成表自带列
func IsReservedColumn(name string) bool {
	_, ok := reservedColumns[name]
	return ok
}

// FilterReservedColumns 去掉 id/created_at/updated_at，保持原有顺序
func FilterReservedColumns(names []string) []string {
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if IsReservedColumn(name) {
			continue
		}
		filtered = append(filtered, name)
	}
	return filtered
}

// DuplicateColumns 返回重复出现的列名（忽略大小写，保留首次重复时的写法）
func DuplicateColumns(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	reported := make(map[string]struct{})
	duplicates := make([]string, 0)
	for _, name := range names {
		key := strings.ToLower(name)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			continue
		}
		if _, ok := reported[key]; ok {
			continue
		}
		reported[key] = struct{}{}
		duplicates = append(duplicates, name)
	}
	return duplicates
}

// PlanColumnSync 按位置对比新旧字段，生成重命名和新增操作
// 同一下标上名称不同视为重命名，超出旧列表长度的部分视为新增，不会生成删除操作
func PlanColumnSync(tableName string, oldNames, newNames []string) []ColumnOperation {
	oldNames = FilterReservedColumns(oldNames)
	newNames = FilterReservedColumns(newNames)

	operations := make([]ColumnOperation, 0)

	shared := len(oldNames)
	if len(newNames) < shared {
		shared = len(newNames)
	}
	for i := 0; i < shared; i++ {
		if oldNames[i] != newNames[i] {
			operations = append(operations, ColumnOperation{
				Type:    ColumnOpRename,
				Table:   tableName,
				Column:  oldNames[i],
				NewName: newNames[i],
			})
		}
	}

	for i := len(oldNames); i < len(newNames); i++ {
		operations = append(operations, ColumnOperation{
			Type:   ColumnOpAdd,
			Table:  tableName,
			Column: newNames[i],
		})
	}

	return operations
}

// SyncColumns 根据新旧字段列表同步生成表的列
// 任何一步 DDL 失败都会直接返回，由调用方负责回滚
func (s *SchemaService) SyncColumns(tableName string, oldNames, newNames []string) ([]ColumnOperation, error) {
	operations := PlanColumnSync(tableName, oldNames, newNames)

	applied := make([]ColumnOperation, 0, len(operations))
	for _, op := range operations {
		var err error
		switch op.Type {
		case ColumnOpRename:
			err = s.RenameColumn(tableName, op.Column, op.NewName)
		case ColumnOpAdd:
			err = s.AddTextColumn(tableName, op.Column)
		}
		if err != nil {
			return applied, err
		}
		applied = append(applied, op)
		slog.Info("表结构同步", "operation", op.String())
	}

	return applied, nil
}

// CreateFormTable 创建表单生成表：自增主键 + 每个字段一个可空文本列 + 两个时间戳列
func (s *SchemaService) CreateFormTable(tableName string, fieldNames []string) error {
	if err := ValidateTableName(tableName); err != nil {
		return err
	}

	idColumn, timestampType := s.dialectColumnTypes()

	columns := make([]string, 0, len(fieldNames)+3)
	columns = append(columns, fmt.Sprintf("%s %s", pq.QuoteIdentifier("id"), idColumn))
	for _, name := range FilterReservedColumns(fieldNames) {
		columns = append(columns, fmt.Sprintf("%s varchar(%d) NULL", pq.QuoteIdentifier(name), textColumnLength))
	}
	columns = append(columns,
		fmt.Sprintf("%s %s NULL", pq.QuoteIdentifier("created_at"), timestampType),
		fmt.Sprintf("%s %s NULL", pq.QuoteIdentifier("updated_at"), timestampType),
	)

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", pq.QuoteIdentifier(tableName), strings.Join(columns, ", "))
	if err := s.db.Exec(createSQL).Error; err != nil {
		return fmt.Errorf("创建表 %s 失败: %w", tableName, err)
	}

	slog.Info("生成表创建成功", "table", tableName, "columns", len(columns))
	return nil
}

// AddTextColumn 新增可空文本列
func (s *SchemaService) AddTextColumn(tableName, columnName string) error {
	if strings.TrimSpace(columnName) == "" {
		return fmt.Errorf("列名不能为空")
	}

	alterSQL := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s varchar(%d) NULL",
		pq.QuoteIdentifier(tableName), pq.QuoteIdentifier(columnName), textColumnLength)
	if err := s.db.Exec(alterSQL).Error; err != nil {
		return fmt.Errorf("表 %s 新增列 %s 失败: %w", tableName, columnName, err)
	}
	return nil
}

// RenameColumn 重命名列
func (s *SchemaService) RenameColumn(tableName, oldName, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return fmt.Errorf("新列名不能为空")
	}

	alterSQL := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		pq.QuoteIdentifier(tableName), pq.QuoteIdentifier(oldName), pq.QuoteIdentifier(newName))
	if err := s.db.Exec(alterSQL).Error; err != nil {
		return fmt.Errorf("表 %s 重命名列 %s 为 %s 失败: %w", tableName, oldName, newName, err)
	}
	return nil
}

// CheckTableExists 检查表是否存在
func (s *SchemaService) CheckTableExists(tableName string) (bool, error) {
	if tableName == "" {
		return false, nil
	}
	return s.db.Migrator().HasTable(tableName), nil
}

// HasColumn 检查列是否存在
func (s *SchemaService) HasColumn(tableName, columnName string) bool {
	return s.db.Migrator().HasColumn(tableName, columnName)
}

// ListColumns 获取表的全部列名
func (s *SchemaService) ListColumns(tableName string) ([]string, error) {
	columnTypes, err := s.db.Migrator().ColumnTypes(tableName)
	if err != nil {
		return nil, fmt.Errorf("获取表 %s 列信息失败: %w", tableName, err)
	}

	names := make([]string, 0, len(columnTypes))
	for _, columnType := range columnTypes {
		names = append(names, columnType.Name())
	}
	return names, nil
}

// ValidateTableName 验证表名
func ValidateTableName(tableName string) error {
	if strings.TrimSpace(tableName) == "" {
		return fmt.Errorf("表名不能为空")
	}
	if len(tableName) > 63 {
		return fmt.Errorf("表名长度不能超过63个字符")
	}
	return nil
}

// dialectColumnTypes 不同数据库的主键和时间戳类型
func (s *SchemaService) dialectColumnTypes() (idColumn string, timestampType string) {
	switch s.db.Dialector.Name() {
	case "sqlite":
		return "integer PRIMARY KEY AUTOINCREMENT", "datetime"
	default:
		return "bigserial PRIMARY KEY", "timestamptz"
	}
}
