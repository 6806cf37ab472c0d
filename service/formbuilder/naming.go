package formbuilder

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm/schema"
)

var (
	titleCaser = cases.Title(language.Und, cases.NoLower)
	naming     = schema.NamingStrategy{}
)

// DeriveIdentifier 由表单名称生成标识（蛇形、复数），同时作为生成表的表名
// "Customer Feedback" -> "customer_feedbacks"
func DeriveIdentifier(name string) string {
	pascal := pascalCase(splitWords(name))
	if pascal == "" {
		return ""
	}
	return naming.TableName(pascal)
}

// ModelName 由表名生成模型名（单数、帕斯卡）
// "customer_feedbacks" -> "CustomerFeedback"
func ModelName(tableName string) string {
	return pascalCase(splitWords(inflection.Singular(tableName)))
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func pascalCase(words []string) string {
	var b strings.Builder
	for _, word := range words {
		b.WriteString(titleCaser.String(word))
	}
	return b.String()
}
