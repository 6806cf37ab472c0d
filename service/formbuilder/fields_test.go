package formbuilder

import (
	"encoding/json"
	"errors"
	"formbuilder-service/service/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFieldDescriptors(t *testing.T) {
	descriptors, err := DecodeFieldDescriptors([]byte(`[{"name":"email","type":"text"},{"type":"header"}]`))
	require.NoError(t, err)
	assert.Len(t, descriptors, 2)

	empty, err := DecodeFieldDescriptors(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	null, err := DecodeFieldDescriptors([]byte(" null "))
	require.NoError(t, err)
	assert.Empty(t, null)

	_, err = DecodeFieldDescriptors([]byte(`{"name":"email"}`))
	assert.True(t, errors.Is(err, ErrValidationFailed))
}

func TestExtractFieldNames(t *testing.T) {
	descriptors, err := DecodeFieldDescriptors([]byte(`[
		{"type":"header","label":"标题"},
		{"name":"email","type":"text"},
		{"name":"","type":"text"},
		{"name":42},
		"oops",
		{"name":"message","type":"textarea"}
	]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"email", "message"}, ExtractFieldNames(descriptors))
}

func TestExtractFieldNames_Empty(t *testing.T) {
	assert.Empty(t, ExtractFieldNames(nil))
	assert.NotNil(t, ExtractFieldNames(nil))
}

func TestEntryHeaders(t *testing.T) {
	descriptors, err := DecodeFieldDescriptors([]byte(`[
		{"name":"email","label":"邮箱"},
		{"name":"phone","label":"  "},
		{"type":"paragraph"}
	]`))
	require.NoError(t, err)

	assert.Equal(t, []models.EntryHeader{
		{Name: "email", Label: "邮箱"},
		{Name: "phone", Label: "phone"},
	}, EntryHeaders(descriptors))
}

func TestNormalizeBuilderJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   json.RawMessage
		want    string
		wantErr bool
	}{
		{name: "数组", input: json.RawMessage(`[{"name":"a"}]`), want: `[{"name":"a"}]`},
		{name: "字符串包裹的数组", input: json.RawMessage(`"[{\"name\":\"a\"}]"`), want: `[{"name":"a"}]`},
		{name: "空内容", input: nil, want: `[]`},
		{name: "空字符串", input: json.RawMessage(`""`), want: `[]`},
		{name: "对象", input: json.RawMessage(`{"name":"a"}`), wantErr: true},
		{name: "字符串包裹的对象", input: json.RawMessage(`"{}"`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeBuilderJSON(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidationFailed)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
