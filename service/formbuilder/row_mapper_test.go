package formbuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRowMapper_BuildRow(t *testing.T) {
	mapper := NewRowMapper()
	fixed := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	mapper.now = func() time.Time { return fixed }

	descriptor := ModelDescriptor{Model: "Survey", Table: "surveys", Fillable: []string{"email", "tags", "age", "note", "empty"}}
	row := mapper.BuildRow(descriptor, map[string]interface{}{
		"email":  "<b>someone@example.com</b>",
		"tags":   []interface{}{"a", "b"},
		"age":    42,
		"note":   nil,
		"id":     99,
		"_token": "csrf",
		"other":  "ignored",
	})

	assert.Equal(t, map[string]interface{}{
		"email":      "someone@example.com",
		"tags":       "a,b",
		"age":        "42",
		"note":       nil,
		"created_at": fixed,
		"updated_at": fixed,
	}, row)
}

func TestRowMapper_StringSlice(t *testing.T) {
	mapper := NewRowMapper()
	descriptor := ModelDescriptor{Table: "surveys", Fillable: []string{"choices"}}

	row := mapper.BuildRow(descriptor, map[string]interface{}{"choices": []string{"x", "y", "z"}})
	assert.Equal(t, "x,y,z", row["choices"])
}

func TestRowMapper_StripsScripts(t *testing.T) {
	mapper := NewRowMapper()
	descriptor := ModelDescriptor{Table: "surveys", Fillable: []string{"message"}}

	row := mapper.BuildRow(descriptor, map[string]interface{}{"message": "hi<script>alert(1)</script>"})
	assert.Equal(t, "hi", row["message"])
}

func TestRowMapper_KeepsSpecialCharacters(t *testing.T) {
	mapper := NewRowMapper()
	descriptor := ModelDescriptor{Table: "surveys", Fillable: []string{"name", "note", "literal"}}

	row := mapper.BuildRow(descriptor, map[string]interface{}{
		"name":    "O'Brien & Sons",
		"note":    `x < 5 "quoted"`,
		"literal": "a &amp; b",
	})
	assert.Equal(t, "O'Brien & Sons", row["name"])
	assert.Equal(t, `x < 5 "quoted"`, row["note"])
	assert.Equal(t, "a &amp; b", row["literal"])
}
