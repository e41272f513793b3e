package controller

import (
	"equizz_backend/internal/service"
	"equizz_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

// ResultsController 管理员侧匿名结果查询与导出。
// 只经由 ResultsService 读匿名数据，身份绑定表对这里不可见。
type ResultsController struct {
	Service *service.ResultsService
	Export  *service.ExportService
}

func NewResultsController(svc *service.ResultsService, exportSvc *service.ExportService) *ResultsController {
	return &ResultsController{Service: svc, Export: exportSvc}
}

// @Summary 考核汇总（匿名计数）
// @Tags 匿名结果
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考核ID"
// @Success 200 {object} util.Response
// @Router /api/admin/evaluations/{id}/summary [get]
func (c *ResultsController) Summary(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	summary, err := c.Service.Summary(id)
	if err != nil {
		if errors.Is(err, util.ErrEvaluationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// @Summary 已提交会话列表（匿名）
// @Tags 匿名结果
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考核ID"
// @Success 200 {object} util.Response
// @Router /api/admin/evaluations/{id}/submissions [get]
func (c *ResultsController) ListSubmissions(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	page, limit := pagination(ctx)
	sessions, total, err := c.Service.ListSubmissions(id, page, limit)
	if err != nil {
		if errors.Is(err, util.ErrEvaluationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: sessions, Total: total, Page: page, Limit: limit})
}

// @Summary 单会话作答明细（匿名）
// @Tags 匿名结果
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/admin/sessions/{sessionId}/answers [get]
func (c *ResultsController) SessionAnswers(ctx *gin.Context) {
	sessionID := ctx.Param("sessionId")
	if sessionID == "" {
		util.BadRequest(ctx, "invalid sessionId")
		return
	}

	answers, err := c.Service.SessionAnswers(sessionID)
	if err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, answers)
}

// @Summary 逐题作答分布
// @Tags 匿名结果
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考核ID"
// @Success 200 {object} util.Response
// @Router /api/admin/evaluations/{id}/distribution [get]
func (c *ResultsController) Distribution(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	dists, err := c.Service.Distribution(id)
	if err != nil {
		if errors.Is(err, util.ErrEvaluationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, dists)
}

// @Summary 导出匿名结果 CSV
// @Tags 匿名结果
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考核ID"
// @Success 200 {object} util.Response
// @Router /api/admin/evaluations/{id}/export [post]
func (c *ResultsController) ExportCSV(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.Export.ExportEvaluationCSV(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, util.ErrEvaluationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
