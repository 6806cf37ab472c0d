/*
 * @module api/controllers/render_form_controller
 * @description 公开表单控制器：按标识渲染表单、接收填写内容、提交成功反馈
 * @architecture RESTful API架构 - 控制器层
 * @stateFlow 限流 -> 按标识查表单 -> 写入生成表 -> 返回反馈地址
 * @rules 私有表单对非所有者返回404；提交失败只返回通用提示
 * @dependencies formbuilder-service/service/formbuilder, github.com/go-chi/render
 * @refs service/formbuilder/submission_service.go
 */

package controllers

import (
	"fmt"
	"formbuilder-service/api/middleware"
	"formbuilder-service/service/formbuilder"
	"formbuilder-service/service/models"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// RenderFormController 公开表单控制器
type RenderFormController struct {
	submissionService *formbuilder.SubmissionService
}

// NewRenderFormController 创建公开表单控制器实例
func NewRenderFormController(submissionService *formbuilder.SubmissionService) *RenderFormController {
	return &RenderFormController{submissionService: submissionService}
}

// PublicFormView 公开表单渲染数据
type PublicFormView struct {
	Name            string               `json:"name"`
	Identifier      string               `json:"identifier"`
	Description     string               `json:"description"`
	AllowsEdit      bool                 `json:"allows_edit"`
	Fields          []models.EntryHeader `json:"fields"`
	FormBuilderJSON interface{}          `json:"form_builder_json" swaggertype:"array,object"`
}

// SubmitResult 提交结果
type SubmitResult struct {
	Identifier  string `json:"identifier"`
	FeedbackURL string `json:"feedback_url"`
}

// RenderForm 获取公开表单
// @Summary 获取公开表单
// @Description 按表单标识获取表单定义用于填写；私有表单仅所有者可见
// @Tags 公开表单
// @Produce json
// @Param identifier path string true "表单标识"
// @Success 200 {object} APIResponse{data=PublicFormView}
// @Failure 404 {object} APIResponse
// @Failure 429 {object} APIResponse
// @Router /form/{identifier} [get]
func (c *RenderFormController) RenderForm(w http.ResponseWriter, r *http.Request) {
	form, err := c.submissionService.RenderForm(r.Context(), chi.URLParam(r, "identifier"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	view, err := newPublicFormView(form)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	render.JSON(w, r, SuccessResponse("获取表单成功", view))
}

// SubmitForm 提交表单
// @Summary 提交表单
// @Description 提交填写内容，支持JSON和表单编码两种格式；只保存表单字段，其余键忽略
// @Tags 公开表单
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param identifier path string true "表单标识"
// @Param request body map[string]interface{} true "填写内容"
// @Success 201 {object} APIResponse{data=SubmitResult}
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /form/{identifier} [post]
func (c *RenderFormController) SubmitForm(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	values, err := decodeSubmission(r)
	if err != nil {
		render.Render(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	if err := c.submissionService.SubmitForm(r.Context(), identifier, middleware.UserIDFromContext(r.Context()), values); err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Render(w, r, CreatedResponse("表单提交成功", SubmitResult{
		Identifier:  identifier,
		FeedbackURL: fmt.Sprintf("/form/%s/feedback", identifier),
	}))
}

// Feedback 提交成功反馈
// @Summary 提交成功反馈
// @Tags 公开表单
// @Produce json
// @Param identifier path string true "表单标识"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /form/{identifier}/feedback [get]
func (c *RenderFormController) Feedback(w http.ResponseWriter, r *http.Request) {
	form, err := c.submissionService.Feedback(r.Context(), chi.URLParam(r, "identifier"), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, SuccessResponse("感谢您的填写", map[string]interface{}{
		"name":        form.Name,
		"identifier":  form.Identifier,
		"allows_edit": form.AllowsEdit,
	}))
}

func newPublicFormView(form *models.Form) (*PublicFormView, error) {
	descriptors, err := formbuilder.DecodeFieldDescriptors(form.FormBuilderJSON)
	if err != nil {
		return nil, err
	}
	return &PublicFormView{
		Name:            form.Name,
		Identifier:      form.Identifier,
		Description:     form.Description,
		AllowsEdit:      form.AllowsEdit,
		Fields:          formbuilder.EntryHeaders(descriptors),
		FormBuilderJSON: descriptors,
	}, nil
}

// decodeSubmission 解析填写内容；表单编码时同名多值保留为数组
func decodeSubmission(r *http.Request) (map[string]interface{}, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(10 << 20); err != nil && err != http.ErrNotMultipart {
			return nil, err
		}
		values := make(map[string]interface{}, len(r.PostForm))
		for key, items := range r.PostForm {
			if len(items) == 1 {
				values[key] = items[0]
				continue
			}
			values[key] = items
		}
		return values, nil
	default:
		values := make(map[string]interface{})
		if err := render.DecodeJSON(r.Body, &values); err != nil {
			return nil, err
		}
		return values, nil
	}
}
