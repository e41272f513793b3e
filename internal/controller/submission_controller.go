package controller

import (
	"encoding/json"
	"equizz_backend/internal/service"
	"equizz_backend/internal/util"
	"equizz_backend/pkg/monitoring"
	"errors"

	"github.com/gin-gonic/gin"
)

// SubmissionController 匿名提交流程的 HTTP 入口。响应里只出现会话
// 句柄与回执，身份与令牌的关联止步于服务层。
type SubmissionController struct {
	Service *service.SubmissionService
}

func NewSubmissionController(svc *service.SubmissionService) *SubmissionController {
	return &SubmissionController{Service: svc}
}

type AnswerRequest struct {
	QuestionID uint            `json:"questionId" binding:"required"`
	Content    json.RawMessage `json:"content" binding:"required"`
}

// @Summary 开始/恢复匿名答题会话
// @Tags 匿名提交
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考核ID"
// @Success 200 {object} util.Response
// @Router /api/evaluations/{id}/session [post]
func (c *SubmissionController) Begin(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	evaluationID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	handle, err := c.Service.Begin(user.UserID, evaluationID)
	if err != nil {
		c.rejectBegin(ctx, err)
		return
	}

	monitoring.SessionsStarted.Inc()
	util.Success(ctx, handle)
}

func (c *SubmissionController) rejectBegin(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrEvaluationNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrWindowNotOpen):
		monitoring.WindowRejections.WithLabelValues("not_open").Inc()
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrWindowClosed):
		monitoring.WindowRejections.WithLabelValues("closed").Inc()
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrEntropyUnavailable):
		util.LogInternalError(ctx, err)
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary 记录一题作答
// @Tags 匿名提交
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Param body body AnswerRequest true "作答内容"
// @Success 200 {object} util.Response
// @Router /api/sessions/{sessionId}/answers [put]
func (c *SubmissionController) Answer(ctx *gin.Context) {
	sessionID := ctx.Param("sessionId")
	if sessionID == "" {
		util.BadRequest(ctx, "invalid sessionId")
		return
	}

	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.Service.Answer(sessionID, req.QuestionID, string(req.Content))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSessionAlreadySubmitted):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrInvalidQuestion):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

// @Summary 提交会话（冻结答案）
// @Tags 匿名提交
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{sessionId}/submit [post]
func (c *SubmissionController) Finalize(ctx *gin.Context) {
	sessionID := ctx.Param("sessionId")
	if sessionID == "" {
		util.BadRequest(ctx, "invalid sessionId")
		return
	}

	receipt, err := c.Service.Finalize(sessionID)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrAlreadySubmitted):
			util.Conflict(ctx, err.Error())
		case errors.Is(err, util.ErrWindowClosed):
			monitoring.WindowRejections.WithLabelValues("closed").Inc()
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	monitoring.SubmissionsCommitted.Inc()
	util.Success(ctx, receipt)
}

// @Summary 恢复会话现状
// @Tags 匿名提交
// @Produce json
// @Security ApiKeyAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{sessionId} [get]
func (c *SubmissionController) Resume(ctx *gin.Context) {
	sessionID := ctx.Param("sessionId")
	if sessionID == "" {
		util.BadRequest(ctx, "invalid sessionId")
		return
	}

	handle, err := c.Service.Resume(sessionID)
	if err != nil {
		if errors.Is(err, util.ErrSessionNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, handle)
}

// @Summary 考核参加资格
// @Tags 匿名提交
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考核ID"
// @Success 200 {object} util.Response
// @Router /api/evaluations/{id}/eligibility [get]
func (c *SubmissionController) Eligibility(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	evaluationID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	info, err := c.Service.CheckEligibility(user.UserID, evaluationID)
	if err != nil {
		if errors.Is(err, util.ErrEvaluationNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, info)
}
