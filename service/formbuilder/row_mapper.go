package formbuilder

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cast"
)

// RowMapper 把提交的值映射为生成表的一行
type RowMapper struct {
	policy *bluemonday.Policy
	now    func() time.Time
}

// NewRowMapper 创建映射器，提交内容中的HTML标签会被剔除，其余字符原样保存
func NewRowMapper() *RowMapper {
	return &RowMapper{
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

// BuildRow 只保留模型允许写入的列，未知键静默忽略
func (m *RowMapper) BuildRow(descriptor ModelDescriptor, values map[string]interface{}) map[string]interface{} {
	row := make(map[string]interface{}, len(descriptor.Fillable)+2)
	for key, value := range values {
		if !descriptor.IsFillable(key) {
			continue
		}
		row[key] = m.columnValue(value)
	}

	now := m.now()
	row["created_at"] = now
	row["updated_at"] = now
	return row
}

// columnValue 所有列都是可空文本，多选值以逗号拼接
func (m *RowMapper) columnValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}

	var text string
	switch v := value.(type) {
	case []interface{}, []string:
		text = strings.Join(cast.ToStringSlice(v), ",")
	default:
		text = cast.ToString(v)
	}
	// Sanitize 会转义保留下来的文本，存库的是原文
	return html.UnescapeString(m.policy.Sanitize(text))
}
