package controller

import (
	"equizz_backend/internal/service"
	"equizz_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type EvaluationController struct {
	Service *service.EvaluationService
	Auth    *service.AuthService
}

func NewEvaluationController(svc *service.EvaluationService, authSvc *service.AuthService) *EvaluationController {
	return &EvaluationController{Service: svc, Auth: authSvc}
}

// @Summary 创建考核
// @Tags 考核管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.EvaluationRequest true "考核信息"
// @Success 201 {object} util.Response
// @Router /api/admin/evaluations [post]
func (c *EvaluationController) Create(ctx *gin.Context) {
	var req service.EvaluationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	e, err := c.Service.Create(req)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, e)
}

// @Summary 考核列表
// @Tags 考核管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/admin/evaluations [get]
func (c *EvaluationController) List(ctx *gin.Context) {
	page, limit := pagination(ctx)
	views, total, err := c.Service.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: views, Total: total, Page: page, Limit: limit})
}

// @Summary 考核详情
// @Tags 考核管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考核ID"
// @Success 200 {object} util.Response
// @Router /api/admin/evaluations/{id} [get]
func (c *EvaluationController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.Service.Get(id)
	if err != nil {
		if errors.Is(err, util.ErrEvaluationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 强制关闭考核（单向，不可恢复）
// @Tags 考核管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考核ID"
// @Success 200 {object} util.Response
// @Router /api/admin/evaluations/{id}/force-close [post]
func (c *EvaluationController) ForceClose(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.Service.ForceClose(id)
	if err != nil {
		if errors.Is(err, util.ErrEvaluationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 学生端：可参加的考核列表
// @Tags 考核管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/evaluations [get]
func (c *EvaluationController) ListForStudent(ctx *gin.Context) {
	user := c.Auth.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	views, err := c.Service.ListForStudent(user.ID, user.ClassGroup)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, views)
}
