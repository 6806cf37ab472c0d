/*
 * @module api/controllers/form_controller
 * @description 表单管理控制器，提供表单定义的增删改查API
 * @architecture RESTful API架构 - 控制器层
 * @stateFlow HTTP请求 -> 身份校验 -> 表单服务 -> 响应返回
 * @rules 只能操作当前用户自己的表单
 * @dependencies formbuilder-service/service/formbuilder, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/formbuilder/form_service.go
 */

package controllers

import (
	"fmt"
	"formbuilder-service/api/middleware"
	"formbuilder-service/service/formbuilder"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
)

// FormController 表单管理控制器
type FormController struct {
	formService *formbuilder.FormService
}

// NewFormController 创建表单管理控制器实例
func NewFormController(formService *formbuilder.FormService) *FormController {
	return &FormController{formService: formService}
}

// ListForms 获取表单列表
// @Summary 获取表单列表
// @Description 获取当前用户的全部表单，最新创建的在前，附带提交数量
// @Tags 表单管理
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Success 200 {object} APIResponse{data=[]models.Form}
// @Failure 401 {object} APIResponse
// @Router /forms [get]
func (c *FormController) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := c.formService.ListForms(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, SuccessResponse("获取表单列表成功", forms))
}

// CreateForm 创建表单
// @Summary 创建表单
// @Description 保存表单定义，并生成对应的数据表、迁移文件和模型描述
// @Tags 表单管理
// @Accept json
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Param request body formbuilder.FormDefinition true "表单定义"
// @Success 201 {object} APIResponse{data=models.Form}
// @Failure 422 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /forms [post]
func (c *FormController) CreateForm(w http.ResponseWriter, r *http.Request) {
	var def formbuilder.FormDefinition
	if err := render.DecodeJSON(r.Body, &def); err != nil {
		render.Render(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	form, err := c.formService.CreateForm(r.Context(), middleware.UserIDFromContext(r.Context()), &def)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Render(w, r, CreatedResponse("表单创建成功", form))
}

// GetForm 获取表单详情
// @Summary 获取表单详情
// @Tags 表单管理
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Param id path int true "表单ID"
// @Success 200 {object} APIResponse{data=models.Form}
// @Failure 403 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /forms/{id} [get]
func (c *FormController) GetForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(w, r, "id")
	if !ok {
		return
	}

	form, err := c.formService.GetForm(r.Context(), middleware.UserIDFromContext(r.Context()), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, SuccessResponse("获取表单详情成功", form))
}

// UpdateForm 更新表单
// @Summary 更新表单
// @Description 更新表单定义，字段按位置对比：同位置改名为列重命名，追加字段为新增列，删除字段不删列
// @Tags 表单管理
// @Accept json
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Param id path int true "表单ID"
// @Param request body formbuilder.FormDefinition true "表单定义"
// @Success 200 {object} APIResponse{data=models.Form}
// @Failure 403 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Failure 500 {object} APIResponse
// @Router /forms/{id} [put]
func (c *FormController) UpdateForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(w, r, "id")
	if !ok {
		return
	}

	var def formbuilder.FormDefinition
	if err := render.DecodeJSON(r.Body, &def); err != nil {
		render.Render(w, r, BadRequestResponse("请求参数解析失败", err))
		return
	}

	form, err := c.formService.UpdateForm(r.Context(), middleware.UserIDFromContext(r.Context()), id, &def)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, SuccessResponse("表单更新成功", form))
}

// DeleteForm 删除表单
// @Summary 删除表单
// @Description 删除表单定义；生成的数据表和模型描述保留
// @Tags 表单管理
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Param id path int true "表单ID"
// @Success 200 {object} APIResponse
// @Failure 403 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /forms/{id} [delete]
func (c *FormController) DeleteForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUintParam(w, r, "id")
	if !ok {
		return
	}

	form, err := c.formService.DeleteForm(r.Context(), middleware.UserIDFromContext(r.Context()), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, SuccessResponse("表单删除成功", map[string]interface{}{
		"id":         form.ID,
		"identifier": form.Identifier,
	}))
}

// parseUintParam 解析路径中的数字ID，失败时直接输出400
func parseUintParam(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	id, err := cast.ToUintE(raw)
	if err != nil || id == 0 {
		render.Render(w, r, BadRequestResponse(fmt.Sprintf("无效的参数 %s", name), err))
		return 0, false
	}
	return id, true
}
