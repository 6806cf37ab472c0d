/*
 * @module api/controllers/submission_controller
 * @description 提交记录管理控制器，表单所有者查看和删除提交记录
 * @architecture RESTful API架构 - 控制器层
 * @rules 只能查看自己表单的提交记录；每页100条
 * @dependencies formbuilder-service/service/formbuilder, github.com/go-chi/render
 * @refs service/formbuilder/submission_service.go
 */

package controllers

import (
	"formbuilder-service/api/middleware"
	"formbuilder-service/service/formbuilder"
	"net/http"

	"github.com/go-chi/render"
	"github.com/spf13/cast"
)

// SubmissionController 提交记录控制器
type SubmissionController struct {
	submissionService *formbuilder.SubmissionService
}

// NewSubmissionController 创建提交记录控制器实例
func NewSubmissionController(submissionService *formbuilder.SubmissionService) *SubmissionController {
	return &SubmissionController{submissionService: submissionService}
}

// SubmissionListData 提交记录列表数据
type SubmissionListData struct {
	Form    interface{}              `json:"form"`
	Headers interface{}              `json:"headers"`
	Rows    []map[string]interface{} `json:"rows"`
}

// ListSubmissions 获取提交记录
// @Summary 获取提交记录
// @Description 分页获取表单的提交记录，最新的在前，每页100条
// @Tags 提交记录
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Param id path int true "表单ID"
// @Param page query int false "页码" default(1)
// @Success 200 {object} PaginatedResponse{data=SubmissionListData}
// @Failure 403 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /forms/{id}/submissions [get]
func (c *SubmissionController) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	formID, ok := parseUintParam(w, r, "id")
	if !ok {
		return
	}
	page := cast.ToInt(r.URL.Query().Get("page"))

	result, err := c.submissionService.ListSubmissions(r.Context(), middleware.UserIDFromContext(r.Context()), formID, page)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: 0,
		Msg:    "获取提交记录成功",
		Data: SubmissionListData{
			Form:    result.Form,
			Headers: result.Headers,
			Rows:    result.Rows,
		},
		Total: result.Total,
		Page:  result.Page,
		Size:  result.Size,
	})
}

// ShowSubmission 获取单条提交记录
// @Summary 获取单条提交记录
// @Tags 提交记录
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Param id path int true "表单ID"
// @Param submission_id path int true "提交记录ID"
// @Success 200 {object} APIResponse{data=formbuilder.SubmissionDetail}
// @Failure 404 {object} APIResponse
// @Router /forms/{id}/submissions/{submission_id} [get]
func (c *SubmissionController) ShowSubmission(w http.ResponseWriter, r *http.Request) {
	formID, ok := parseUintParam(w, r, "id")
	if !ok {
		return
	}
	submissionID, ok := parseUintParam(w, r, "submission_id")
	if !ok {
		return
	}

	detail, err := c.submissionService.ShowSubmission(r.Context(), middleware.UserIDFromContext(r.Context()), formID, submissionID)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, SuccessResponse("获取提交记录成功", detail))
}

// DeleteSubmission 删除提交记录
// @Summary 删除提交记录
// @Tags 提交记录
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Param id path int true "表单ID"
// @Param submission_id path int true "提交记录ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /forms/{id}/submissions/{submission_id} [delete]
func (c *SubmissionController) DeleteSubmission(w http.ResponseWriter, r *http.Request) {
	formID, ok := parseUintParam(w, r, "id")
	if !ok {
		return
	}
	submissionID, ok := parseUintParam(w, r, "submission_id")
	if !ok {
		return
	}

	err := c.submissionService.DeleteSubmission(r.Context(), middleware.UserIDFromContext(r.Context()), formID, submissionID)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.JSON(w, r, SuccessResponse("提交记录删除成功", nil))
}
