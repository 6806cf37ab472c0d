package controllers

import (
	"errors"
	"formbuilder-service/service/formbuilder"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`

	httpStatus int
}

// Render 设置HTTP状态码，供 render.Render 使用
func (resp *APIResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if resp.httpStatus != 0 {
		render.Status(r, resp.httpStatus)
	}
	return nil
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"100"`
}

// SuccessResponse 成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status:     0,
		Msg:        msg,
		Data:       data,
		httpStatus: http.StatusOK,
	}
}

// CreatedResponse 创建成功响应
func CreatedResponse(msg string, data interface{}) *APIResponse {
	resp := SuccessResponse(msg, data)
	resp.httpStatus = http.StatusCreated
	return resp
}

// ErrorResponse 错误响应，err 仅在非5xx时返回给调用方
func ErrorResponse(status int, msg string, err error) *APIResponse {
	resp := &APIResponse{
		Status:     status,
		Msg:        msg,
		httpStatus: status,
	}
	if err != nil && status < http.StatusInternalServerError {
		resp.Error = err.Error()
	}
	return resp
}

// BadRequestResponse 参数错误响应
func BadRequestResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusBadRequest, msg, err)
}

// NotFoundResponse 资源不存在响应
func NotFoundResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusNotFound, msg, err)
}

// InternalErrorResponse 服务器内部错误响应
func InternalErrorResponse(msg string, err error) *APIResponse {
	return ErrorResponse(http.StatusInternalServerError, msg, err)
}

// ServiceErrorResponse 将业务错误映射为HTTP响应
func ServiceErrorResponse(err error) *APIResponse {
	switch {
	case errors.Is(err, formbuilder.ErrValidationFailed):
		return ErrorResponse(http.StatusUnprocessableEntity, "请求参数校验失败", err)
	case errors.Is(err, formbuilder.ErrNotFound):
		return NotFoundResponse("记录不存在", err)
	case errors.Is(err, formbuilder.ErrForbidden):
		return ErrorResponse(http.StatusForbidden, "无权访问该表单", nil)
	case errors.Is(err, formbuilder.ErrSubmissionFailed):
		return ErrorResponse(http.StatusInternalServerError, formbuilder.ErrSubmissionFailed.Error(), nil)
	case errors.Is(err, formbuilder.ErrModelUnresolved):
		return InternalErrorResponse("表单数据模型不可用", err)
	case errors.Is(err, formbuilder.ErrSchemaSyncFailed):
		return InternalErrorResponse("同步表单数据表结构失败", err)
	case errors.Is(err, formbuilder.ErrGenerationFailed):
		return InternalErrorResponse("生成表单数据表失败", err)
	default:
		return InternalErrorResponse("服务器内部错误", err)
	}
}

// renderServiceError 记录并输出业务错误
func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ServiceErrorResponse(err)
	if resp.httpStatus >= http.StatusInternalServerError {
		slog.Error("请求处理失败", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	render.Render(w, r, resp)
}
