package formbuilder

import (
	"sort"
	"sync"
)

// ModelDescriptor 生成表的数据模型描述
type ModelDescriptor struct {
	Model    string   `yaml:"model" json:"model"`
	Table    string   `yaml:"table" json:"table"`
	Fillable []string `yaml:"fillable" json:"fillable"`
}

// IsFillable 字段是否允许写入
func (d ModelDescriptor) IsFillable(column string) bool {
	for _, name := range d.Fillable {
		if name == column {
			return true
		}
	}
	return false
}

// ModelRegistry 表单标识到模型描述的显式注册表
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]ModelDescriptor
}

// NewModelRegistry 创建空注册表
func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[string]ModelDescriptor)}
}

// Register 注册或覆盖模型描述，键为表名（即表单标识）
func (r *ModelRegistry) Register(descriptor ModelDescriptor) {
	fillable := make([]string, len(descriptor.Fillable))
	copy(fillable, descriptor.Fillable)
	descriptor.Fillable = fillable

	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[descriptor.Table] = descriptor
}

// Lookup 按表单标识查找模型描述
func (r *ModelRegistry) Lookup(identifier string) (ModelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.models[identifier]
	return descriptor, ok
}

// Identifiers 已注册的全部标识，按字母排序
func (r *ModelRegistry) Identifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identifiers := make([]string, 0, len(r.models))
	for identifier := range r.models {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}
