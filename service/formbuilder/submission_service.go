/*
 * @module service/formbuilder/submission_service
 * @description 表单公开填写与提交记录管理：渲染、提交、反馈、列表、详情、删除
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 标识查表单 -> 注册表取模型描述 -> 行映射 -> 写入生成表
 * @rules 提交失败只向填写者返回通用提示，详细错误仅记录日志
 * @dependencies gorm.io/gorm, github.com/lib/pq
 * @refs service/formbuilder/registry.go, service/formbuilder/row_mapper.go
 */

package formbuilder

import (
	"context"
	"errors"
	"fmt"
	"formbuilder-service/service/database"
	"formbuilder-service/service/metrics"
	"formbuilder-service/service/models"
	"log/slog"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// SubmissionPageSize 提交记录每页条数
const SubmissionPageSize = 100

// SubmissionPage 提交记录分页结果
type SubmissionPage struct {
	Form    *models.Form             `json:"form"`
	Headers []models.EntryHeader     `json:"headers"`
	Rows    []map[string]interface{} `json:"rows"`
	Total   int64                    `json:"total"`
	Page    int                      `json:"page"`
	Size    int                      `json:"size"`
}

// SubmissionDetail 单条提交记录
type SubmissionDetail struct {
	Form       *models.Form           `json:"form"`
	Headers    []models.EntryHeader   `json:"headers"`
	Submission map[string]interface{} `json:"submission"`
}

// SubmissionService 提交记录服务
type SubmissionService struct {
	db       *gorm.DB
	schema   *database.SchemaService
	registry *ModelRegistry
	mapper   *RowMapper
}

// NewSubmissionService 创建提交记录服务
func NewSubmissionService(db *gorm.DB, schema *database.SchemaService, registry *ModelRegistry, mapper *RowMapper) *SubmissionService {
	if mapper == nil {
		mapper = NewRowMapper()
	}
	return &SubmissionService{
		db:       db,
		schema:   schema,
		registry: registry,
		mapper:   mapper,
	}
}

// === 公开访问 ===

// RenderForm 按标识获取表单；私有表单仅对所有者可见
func (s *SubmissionService) RenderForm(ctx context.Context, identifier, viewerID string) (*models.Form, error) {
	var form models.Form
	err := s.db.WithContext(ctx).Where("identifier = ?", identifier).First(&form).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 表单 %s", ErrNotFound, identifier)
		}
		return nil, err
	}

	if !form.IsPublic() && form.UserID != viewerID {
		return nil, fmt.Errorf("%w: 表单 %s", ErrNotFound, identifier)
	}
	return &form, nil
}

// Feedback 提交成功后的反馈页数据
func (s *SubmissionService) Feedback(ctx context.Context, identifier, viewerID string) (*models.Form, error) {
	return s.RenderForm(ctx, identifier, viewerID)
}

// SubmitForm 把填写内容写入表单的生成表
func (s *SubmissionService) SubmitForm(ctx context.Context, identifier, viewerID string, values map[string]interface{}) error {
	slog.Info("开始处理表单提交", "identifier", identifier)

	form, err := s.RenderForm(ctx, identifier, viewerID)
	if err != nil {
		metrics.SubmissionOperations.WithLabelValues("submit", metrics.ResultFailure).Inc()
		return err
	}

	descriptor, ok := s.registry.Lookup(form.Identifier)
	if !ok {
		slog.Error("表单数据模型未注册", "identifier", form.Identifier)
		metrics.SubmissionOperations.WithLabelValues("submit", metrics.ResultFailure).Inc()
		return fmt.Errorf("%w: %s", ErrModelUnresolved, form.Identifier)
	}

	row := s.mapper.BuildRow(descriptor, values)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(descriptor.Table).Create(row).Error
	})
	if err != nil {
		slog.Error("表单提交写入失败", "identifier", form.Identifier, "table", descriptor.Table, "error", err)
		metrics.SubmissionOperations.WithLabelValues("submit", metrics.ResultFailure).Inc()
		return ErrSubmissionFailed
	}

	metrics.SubmissionOperations.WithLabelValues("submit", metrics.ResultSuccess).Inc()
	slog.Info("表单提交已保存", "identifier", form.Identifier, "table", descriptor.Table)
	return nil
}

// === 所有者管理 ===

// ListSubmissions 分页获取提交记录，最新的在前，每页100条
func (s *SubmissionService) ListSubmissions(ctx context.Context, ownerID string, formID uint, page int) (*SubmissionPage, error) {
	form, descriptor, err := s.resolveOwnedModel(ctx, ownerID, formID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	var total int64
	if err := s.db.WithContext(ctx).Table(descriptor.Table).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计提交记录失败: %w", err)
	}

	rows := make([]map[string]interface{}, 0)
	err = s.db.WithContext(ctx).Table(descriptor.Table).
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * SubmissionPageSize).
		Limit(SubmissionPageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询提交记录失败: %w", err)
	}

	headers, err := formHeaders(form)
	if err != nil {
		return nil, err
	}

	metrics.SubmissionOperations.WithLabelValues("list", metrics.ResultSuccess).Inc()
	return &SubmissionPage{
		Form:    form,
		Headers: headers,
		Rows:    rows,
		Total:   total,
		Page:    page,
		Size:    SubmissionPageSize,
	}, nil
}

// ShowSubmission 获取单条提交记录
func (s *SubmissionService) ShowSubmission(ctx context.Context, ownerID string, formID, submissionID uint) (*SubmissionDetail, error) {
	form, descriptor, err := s.resolveOwnedModel(ctx, ownerID, formID)
	if err != nil {
		return nil, err
	}

	row, err := s.findRow(ctx, descriptor.Table, submissionID)
	if err != nil {
		return nil, err
	}

	headers, err := formHeaders(form)
	if err != nil {
		return nil, err
	}
	return &SubmissionDetail{Form: form, Headers: headers, Submission: row}, nil
}

// DeleteSubmission 删除单条提交记录；记录不存在时返回 ErrNotFound，表不做任何修改
func (s *SubmissionService) DeleteSubmission(ctx context.Context, ownerID string, formID, submissionID uint) error {
	_, descriptor, err := s.resolveOwnedModel(ctx, ownerID, formID)
	if err != nil {
		return err
	}

	if _, err := s.findRow(ctx, descriptor.Table, submissionID); err != nil {
		return err
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE id = ?", pq.QuoteIdentifier(descriptor.Table))
	if err := s.db.WithContext(ctx).Exec(deleteSQL, submissionID).Error; err != nil {
		metrics.SubmissionOperations.WithLabelValues("delete", metrics.ResultFailure).Inc()
		return fmt.Errorf("删除提交记录失败: %w", err)
	}

	metrics.SubmissionOperations.WithLabelValues("delete", metrics.ResultSuccess).Inc()
	slog.Info("提交记录已删除", "table", descriptor.Table, "submission_id", submissionID)
	return nil
}

// === 辅助方法 ===

func (s *SubmissionService) resolveOwnedModel(ctx context.Context, ownerID string, formID uint) (*models.Form, ModelDescriptor, error) {
	form, err := findOwnedForm(ctx, s.db, ownerID, formID)
	if err != nil {
		return nil, ModelDescriptor{}, err
	}

	descriptor, ok := s.registry.Lookup(form.Identifier)
	if !ok {
		slog.Error("表单数据模型未注册", "identifier", form.Identifier)
		return nil, ModelDescriptor{}, fmt.Errorf("%w: %s", ErrModelUnresolved, form.Identifier)
	}
	return form, descriptor, nil
}

func (s *SubmissionService) findRow(ctx context.Context, table string, submissionID uint) (map[string]interface{}, error) {
	rows := make([]map[string]interface{}, 0, 1)
	err := s.db.WithContext(ctx).Table(table).
		Where("id = ?", submissionID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询提交记录失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: 提交记录 %d", ErrNotFound, submissionID)
	}
	return rows[0], nil
}

func formHeaders(form *models.Form) ([]models.EntryHeader, error) {
	descriptors, err := DecodeFieldDescriptors(form.FormBuilderJSON)
	if err != nil {
		return nil, err
	}
	return EntryHeaders(descriptors), nil
}
