package formbuilder

import "errors"

// 表单构建器错误分类，调用方使用 errors.Is 判断
var (
	// ErrValidationFailed 请求参数不合法
	ErrValidationFailed = errors.New("请求参数校验失败")
	// ErrNotFound 表单或提交记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrForbidden 表单不属于当前用户
	ErrForbidden = errors.New("无权访问该表单")
	// ErrGenerationFailed 迁移/模型描述写入或迁移执行失败
	ErrGenerationFailed = errors.New("生成表单数据表失败")
	// ErrSchemaSyncFailed 表结构同步失败
	ErrSchemaSyncFailed = errors.New("同步表单数据表结构失败")
	// ErrModelUnresolved 未找到表单对应的模型描述
	ErrModelUnresolved = errors.New("未找到表单数据模型")
	// ErrSubmissionFailed 面向填写者的通用提交失败
	ErrSubmissionFailed = errors.New("表单提交失败，请稍后重试")
)
