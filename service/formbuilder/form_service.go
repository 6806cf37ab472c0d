/*
 * @module service/formbuilder/form_service
 * @description 表单生命周期管理：创建、更新、删除表单定义，并同步生成表、迁移文件和模型描述
 * @architecture 分层架构 - 业务服务层
 * @stateFlow Draft -> Active(表单+生成表+模型描述) -> Updated(表结构同步) -> Deleted(生成表保留)
 * @rules identifier 只在创建时生成；表单行和DDL在同一事务内，磁盘文件不参与回滚
 * @dependencies gorm.io/gorm, gorm.io/datatypes, github.com/go-playground/validator/v10
 * @refs service/database/schema_service.go, service/formbuilder/artifacts.go
 */

package formbuilder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"formbuilder-service/service/database"
	"formbuilder-service/service/event"
	"formbuilder-service/service/metrics"
	"formbuilder-service/service/models"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MigrationRunner 执行迁移文件
type MigrationRunner interface {
	// RunMigration 只执行指定的迁移文件
	RunMigration(ctx context.Context, db *gorm.DB, path string) error
	// RunPendingMigrations 执行全部尚未执行的迁移，失败的文件跳过并返回 database.ErrMigrationSkipped
	RunPendingMigrations(ctx context.Context, db *gorm.DB) error
}

// FormDefinition 表单设计器保存时提交的定义
type FormDefinition struct {
	Name            string          `json:"name" validate:"required,max=255"`
	Description     string          `json:"description" validate:"max=2000"`
	Visibility      string          `json:"visibility" validate:"omitempty,oneof=PUBLIC PRIVATE"`
	AllowsEdit      bool            `json:"allows_edit"`
	FormBuilderJSON json.RawMessage `json:"form_builder_json" swaggertype:"array,object"`
}

// FormService 表单生命周期服务
type FormService struct {
	db        *gorm.DB
	schema    *database.SchemaService
	artifacts *ArtifactGenerator
	registry  *ModelRegistry
	runner    MigrationRunner
	publisher event.Publisher
	validate  *validator.Validate
}

// NewFormService 创建表单生命周期服务
func NewFormService(db *gorm.DB, schema *database.SchemaService, artifacts *ArtifactGenerator,
	runner MigrationRunner, publisher event.Publisher) *FormService {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &FormService{
		db:        db,
		schema:    schema,
		artifacts: artifacts,
		registry:  artifacts.registry,
		runner:    runner,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// === 查询 ===

// ListForms 获取用户的表单列表，最新的在前
func (s *FormService) ListForms(ctx context.Context, ownerID string) ([]models.Form, error) {
	var forms []models.Form
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("id DESC").
		Find(&forms).Error
	if err != nil {
		return nil, err
	}

	for i := range forms {
		forms[i].SubmissionsCount = s.countSubmissions(ctx, forms[i].Identifier)
	}
	return forms, nil
}

// GetForm 获取表单详情（带提交数量）
func (s *FormService) GetForm(ctx context.Context, ownerID string, id uint) (*models.Form, error) {
	form, err := findOwnedForm(ctx, s.db, ownerID, id)
	if err != nil {
		return nil, err
	}
	form.SubmissionsCount = s.countSubmissions(ctx, form.Identifier)
	return form, nil
}

// === 创建 ===

// CreateForm 创建表单：保存定义、生成迁移文件和模型描述、执行迁移
// 保存之后任何一步失败都会回滚表单行，但已写入磁盘的文件保留
func (s *FormService) CreateForm(ctx context.Context, ownerID string, def *FormDefinition) (*models.Form, error) {
	builderJSON, err := s.prepareDefinition(ownerID, def)
	if err != nil {
		return nil, err
	}

	identifier := DeriveIdentifier(def.Name)
	if identifier == "" {
		return nil, fmt.Errorf("%w: 表单名称无法生成数据表名", ErrValidationFailed)
	}
	if err := database.ValidateTableName(identifier); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	slog.Info("创建表单", "user_id", ownerID, "name", def.Name, "table", identifier)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Form{}).Where("identifier = ?", identifier).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: 表单标识 %s 已存在", ErrValidationFailed, identifier)
	}
	// 已删除表单的生成表和服务自身的表都会占用表名
	exists, err := s.schema.WithDB(s.db.WithContext(ctx)).CheckTableExists(identifier)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: 数据表 %s 已存在", ErrValidationFailed, identifier)
	}

	descriptors, err := DecodeFieldDescriptors(builderJSON)
	if err != nil {
		return nil, err
	}
	if err := validateFieldNames(ExtractFieldNames(descriptors)); err != nil {
		return nil, err
	}

	form := &models.Form{
		UserID:          ownerID,
		Name:            strings.TrimSpace(def.Name),
		Identifier:      identifier,
		Description:     def.Description,
		Visibility:      visibilityOrDefault(def.Visibility),
		AllowsEdit:      def.AllowsEdit,
		FormBuilderJSON: datatypes.JSON(builderJSON),
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if err := tx.Create(form).Error; err != nil {
		tx.Rollback()
		metrics.FormOperations.WithLabelValues("create", metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("保存表单定义失败: %w", err)
	}

	if err := s.materialize(ctx, tx, form); err != nil {
		tx.Rollback()
		slog.Error("创建表单及数据表失败，表单定义已回滚", "table", identifier, "error", err)
		metrics.FormOperations.WithLabelValues("create", metrics.ResultFailure).Inc()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		slog.Error("提交表单创建事务失败", "table", identifier, "error", err)
		metrics.FormOperations.WithLabelValues("create", metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("%w: 提交事务失败: %v", ErrGenerationFailed, err)
	}

	metrics.FormOperations.WithLabelValues("create", metrics.ResultSuccess).Inc()
	slog.Info("表单及数据表创建成功", "form_id", form.ID, "table", identifier)
	return form, nil
}

// materialize 生成迁移文件和模型描述并执行迁移
func (s *FormService) materialize(ctx context.Context, tx *gorm.DB, form *models.Form) error {
	// 通知在迁移执行之前发出，后续步骤失败时通知不会撤回
	s.publisher.Publish(ctx, event.EventFormCreated, form)

	descriptors, err := DecodeFieldDescriptors(form.FormBuilderJSON)
	if err != nil {
		return err
	}
	fieldNames := ExtractFieldNames(descriptors)

	path, err := s.artifacts.CreateMigrationArtifact(form.Identifier, fieldNames)
	if err != nil {
		return err
	}
	if err := s.artifacts.CreateModelArtifact(form.Identifier, fieldNames); err != nil {
		return err
	}

	// 只执行本次生成的迁移，遗留的失败迁移不影响新表单
	start := time.Now()
	err = s.runner.RunMigration(ctx, tx, path)
	metrics.MigrationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: 执行迁移失败: %v", ErrGenerationFailed, err)
	}

	metrics.SchemaOperations.WithLabelValues("create_table").Inc()
	return nil
}

// === 更新 ===

// UpdateForm 更新表单定义，并按位置对比新旧字段同步生成表
func (s *FormService) UpdateForm(ctx context.Context, ownerID string, id uint, def *FormDefinition) (*models.Form, error) {
	builderJSON, err := s.prepareDefinition(ownerID, def)
	if err != nil {
		return nil, err
	}

	form, err := findOwnedForm(ctx, s.db, ownerID, id)
	if err != nil {
		return nil, err
	}

	oldDescriptors, err := DecodeFieldDescriptors(form.FormBuilderJSON)
	if err != nil {
		return nil, err
	}
	newDescriptors, err := DecodeFieldDescriptors(builderJSON)
	if err != nil {
		return nil, err
	}
	oldNames := ExtractFieldNames(oldDescriptors)
	newNames := ExtractFieldNames(newDescriptors)
	if err := validateFieldNames(newNames); err != nil {
		return nil, err
	}
	slog.Info("更新表单", "form_id", form.ID, "table", form.Identifier, "old_fields", oldNames, "new_fields", newNames)

	previous, hadPrevious := s.registry.Lookup(form.Identifier)

	form.Name = strings.TrimSpace(def.Name)
	form.Description = def.Description
	form.Visibility = visibilityOrDefault(def.Visibility)
	form.AllowsEdit = def.AllowsEdit
	form.FormBuilderJSON = datatypes.JSON(builderJSON)
	form.UpdatedAt = time.Now()

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	err = tx.Model(form).
		Select("name", "description", "visibility", "allows_edit", "form_builder_json", "updated_at").
		Updates(form).Error
	if err != nil {
		tx.Rollback()
		metrics.FormOperations.WithLabelValues("update", metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("更新表单定义失败: %w", err)
	}

	if err := s.applySchemaChanges(ctx, tx, form.Identifier, oldNames, newNames); err != nil {
		tx.Rollback()
		s.restoreModelArtifact(form.Identifier, previous, hadPrevious)
		slog.Error("更新表单及数据表失败，表单定义已回滚", "form_id", form.ID, "table", form.Identifier, "error", err)
		metrics.FormOperations.WithLabelValues("update", metrics.ResultFailure).Inc()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		s.restoreModelArtifact(form.Identifier, previous, hadPrevious)
		slog.Error("提交表单更新事务失败", "form_id", form.ID, "error", err)
		metrics.FormOperations.WithLabelValues("update", metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("%w: 提交事务失败: %v", ErrGenerationFailed, err)
	}

	// form.updated 事件暂不发布

	metrics.FormOperations.WithLabelValues("update", metrics.ResultSuccess).Inc()
	slog.Info("表单及数据表更新成功", "form_id", form.ID, "table", form.Identifier)
	form.SubmissionsCount = s.countSubmissions(ctx, form.Identifier)
	return form, nil
}

// applySchemaChanges 同步列、覆盖模型描述、执行迁移
func (s *FormService) applySchemaChanges(ctx context.Context, tx *gorm.DB, table string, oldNames, newNames []string) error {
	operations, err := s.schema.WithDB(tx).SyncColumns(table, oldNames, newNames)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaSyncFailed, err)
	}
	for _, op := range operations {
		metrics.SchemaOperations.WithLabelValues(op.Type).Inc()
	}

	if err := s.artifacts.UpdateModelArtifact(table, newNames); err != nil {
		return err
	}
	return s.runPendingMigrations(ctx, tx)
}

// restoreModelArtifact 模型描述不在事务内，失败时尽力恢复为更新前的字段
func (s *FormService) restoreModelArtifact(table string, previous ModelDescriptor, hadPrevious bool) {
	if !hadPrevious {
		return
	}
	if err := s.artifacts.UpdateModelArtifact(table, previous.Fillable); err != nil {
		slog.Error("恢复模型描述失败", "table", table, "error", err)
	}
}

// === 删除 ===

// DeleteForm 删除表单定义；生成表和模型描述保留
func (s *FormService) DeleteForm(ctx context.Context, ownerID string, id uint) (*models.Form, error) {
	form, err := findOwnedForm(ctx, s.db, ownerID, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Delete(form).Error; err != nil {
		metrics.FormOperations.WithLabelValues("delete", metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("删除表单失败: %w", err)
	}

	s.publisher.Publish(ctx, event.EventFormDeleted, form)

	metrics.FormOperations.WithLabelValues("delete", metrics.ResultSuccess).Inc()
	slog.Info("表单已删除，生成表保留", "form_id", form.ID, "table", form.Identifier)
	return form, nil
}

// === 辅助方法 ===

func (s *FormService) prepareDefinition(ownerID string, def *FormDefinition) ([]byte, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: 缺少当前用户", ErrForbidden)
	}
	if def == nil {
		return nil, fmt.Errorf("%w: 表单定义不能为空", ErrValidationFailed)
	}
	def.Name = strings.TrimSpace(def.Name)
	if err := s.validate.Struct(def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return normalizeBuilderJSON(def.FormBuilderJSON)
}

// runPendingMigrations 被跳过的遗留迁移只记录告警，不阻塞本次更新
func (s *FormService) runPendingMigrations(ctx context.Context, tx *gorm.DB) error {
	start := time.Now()
	err := s.runner.RunPendingMigrations(ctx, tx)
	metrics.MigrationDuration.Observe(time.Since(start).Seconds())
	if errors.Is(err, database.ErrMigrationSkipped) {
		slog.Warn("存在执行失败的遗留迁移", "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: 执行迁移失败: %v", ErrGenerationFailed, err)
	}
	return nil
}

// validateFieldNames 字段名重复会生成重复列
func validateFieldNames(names []string) error {
	if duplicates := database.DuplicateColumns(database.FilterReservedColumns(names)); len(duplicates) > 0 {
		return fmt.Errorf("%w: 字段名重复: %s", ErrValidationFailed, strings.Join(duplicates, ", "))
	}
	return nil
}

// countSubmissions 生成表不存在时返回0
func (s *FormService) countSubmissions(ctx context.Context, table string) int64 {
	return countRows(ctx, s.db, s.schema, table)
}

func countRows(ctx context.Context, db *gorm.DB, schema *database.SchemaService, table string) int64 {
	exists, err := schema.WithDB(db).CheckTableExists(table)
	if err != nil || !exists {
		return 0
	}

	var count int64
	if err := db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
		slog.Warn("统计提交数量失败", "table", table, "error", err)
		return 0
	}
	return count
}

func findOwnedForm(ctx context.Context, db *gorm.DB, ownerID string, id uint) (*models.Form, error) {
	var form models.Form
	if err := db.WithContext(ctx).First(&form, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 表单 %d", ErrNotFound, id)
		}
		return nil, err
	}
	if form.UserID != ownerID {
		return nil, fmt.Errorf("%w: 表单 %d", ErrForbidden, id)
	}
	return &form, nil
}

func visibilityOrDefault(visibility string) string {
	if visibility == "" {
		return models.FormVisibilityPublic
	}
	return visibility
}
