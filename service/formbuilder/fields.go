package formbuilder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"formbuilder-service/service/models"
	"strings"

	"github.com/spf13/cast"
)

// DecodeFieldDescriptors 解析 form_builder_json 字段列表
// 空内容和 null 视为空列表；非数组内容返回 ErrValidationFailed
func DecodeFieldDescriptors(raw []byte) ([]interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []interface{}{}, nil
	}

	var descriptors []interface{}
	if err := json.Unmarshal(trimmed, &descriptors); err != nil {
		return nil, fmt.Errorf("%w: form_builder_json 必须是字段数组: %v", ErrValidationFailed, err)
	}
	return descriptors, nil
}

// ExtractFieldNames 按出现顺序提取带非空 name 的字段名，其余条目静默跳过
func ExtractFieldNames(descriptors []interface{}) []string {
	names := make([]string, 0, len(descriptors))
	for _, descriptor := range descriptors {
		if name := descriptorName(descriptor); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// EntryHeaders 提交记录列表的表头，label 为空时使用 name
func EntryHeaders(descriptors []interface{}) []models.EntryHeader {
	headers := make([]models.EntryHeader, 0, len(descriptors))
	for _, descriptor := range descriptors {
		name := descriptorName(descriptor)
		if name == "" {
			continue
		}

		label := name
		if fields, ok := descriptor.(map[string]interface{}); ok {
			if l := strings.TrimSpace(cast.ToString(fields["label"])); l != "" {
				label = l
			}
		}
		headers = append(headers, models.EntryHeader{Name: name, Label: label})
	}
	return headers
}

func descriptorName(descriptor interface{}) string {
	fields, ok := descriptor.(map[string]interface{})
	if !ok {
		return ""
	}
	name, ok := fields["name"].(string)
	if !ok {
		return ""
	}
	return name
}

// normalizeBuilderJSON 兼容两种提交方式：字段数组本身，或包含字段数组的 JSON 字符串
func normalizeBuilderJSON(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, fmt.Errorf("%w: form_builder_json 格式错误: %v", ErrValidationFailed, err)
		}
		trimmed = bytes.TrimSpace([]byte(encoded))
	}
	if len(trimmed) == 0 {
		trimmed = []byte("[]")
	}

	if _, err := DecodeFieldDescriptors(trimmed); err != nil {
		return nil, err
	}
	return trimmed, nil
}
