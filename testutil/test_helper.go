/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"formbuilder-service/service/event"
	"formbuilder-service/service/models"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
// 内存库只使用一个连接，否则每个连接看到的是不同的数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get sql.DB: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Form{},
		&models.FormEvent{},
		&models.SchemaMigration{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"forms",
		"form_events",
		"form_schema_migrations",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// FormOption 表单选项函数类型
type FormOption func(*models.Form)

// WithFields 设置表单字段定义
func WithFields(fields ...string) FormOption {
	return func(form *models.Form) {
		form.FormBuilderJSON = FieldsJSON(fields...)
	}
}

// WithOwner 设置表单所有者
func WithOwner(userID string) FormOption {
	return func(form *models.Form) {
		form.UserID = userID
	}
}

// CreateForm 直接写入一条表单记录，不创建生成表
func (f *TestDataFactory) CreateForm(opts ...FormOption) *models.Form {
	suffix := generateSuffix()
	form := &models.Form{
		UserID:          "user-1",
		Name:            "测试表单 " + suffix,
		Identifier:      "test_forms_" + suffix,
		Description:     "这是一个测试表单",
		Visibility:      models.FormVisibilityPublic,
		FormBuilderJSON: FieldsJSON("email"),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	for _, opt := range opts {
		opt(form)
	}

	if err := f.DB.Create(form).Error; err != nil {
		panic(fmt.Sprintf("failed to create test form: %v", err))
	}
	return form
}

// FieldsJSON 由字段名构造表单设计器JSON，标签为 "Label <字段名>"
func FieldsJSON(names ...string) datatypes.JSON {
	descriptors := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		descriptors = append(descriptors, map[string]interface{}{
			"type":  "text",
			"name":  name,
			"label": fmt.Sprintf("Label %s", name),
		})
	}
	content, _ := json.Marshal(descriptors)
	return datatypes.JSON(content)
}

var sequence atomic.Int64

func generateSuffix() string {
	return fmt.Sprintf("%d_%d", time.Now().UnixNano()%100000, sequence.Add(1))
}

// MockPublisher Mock通知总线
type MockPublisher struct {
	mock.Mock
}

// Publish 记录调用
func (m *MockPublisher) Publish(ctx context.Context, kind event.EventKind, form *models.Form) {
	m.Called(kind, form)
}

// RecordingPublisher 按顺序记录事件，可选在发布时执行回调
type RecordingPublisher struct {
	Kinds   []event.EventKind
	OnEvent func(kind event.EventKind, form *models.Form)
}

// Publish 记录事件
func (p *RecordingPublisher) Publish(ctx context.Context, kind event.EventKind, form *models.Form) {
	p.Kinds = append(p.Kinds, kind)
	if p.OnEvent != nil {
		p.OnEvent(kind, form)
	}
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// DecodeJSON 解析响应体
func (h *HTTPTestHelper) DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	err := json.Unmarshal(w.Body.Bytes(), target)
	assert.NoError(t, err, "响应体不是合法JSON: %s", w.Body.String())
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
