package controller

import (
	"errors"
	"net/http"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/service"
	"bimbel_asn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Sessions *service.SessionService
	Selector *service.SelectorService
	Export   *service.ExportService
}

func NewSessionController(sessions *service.SessionService, selector *service.SelectorService, export *service.ExportService) *SessionController {
	return &SessionController{Sessions: sessions, Selector: selector, Export: export}
}

// CreateSessionRequest starts a new practice or exam session.
type CreateSessionRequest struct {
	TestCategory model.TestCategory `json:"testCategory" binding:"required,oneof=cpns polri"`
	Subject      string             `json:"subject" binding:"required"`
	Subtype      string             `json:"subtype"`
	Mode         model.SessionMode  `json:"mode" binding:"required,oneof=practice exam"`
	Difficulty   *model.Difficulty  `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Count        int                `json:"count"`
	TimeLimit    int                `json:"timeLimit"`
}

// Create godoc
// @Summary Create a question session
// @Description Sources questions the user has never seen and freezes the set
// @Tags sessions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CreateSessionRequest true "session parameters"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Failure 429 {object} util.Response
// @Router /api/sessions [post]
func (c *SessionController) Create(ctx *gin.Context) {
	var req CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	session, err := c.Sessions.CreateSession(ctx.Request.Context(), service.CreateSessionInput{
		UserID:       claims.UserID,
		Tier:         claims.Tier,
		TestCategory: req.TestCategory,
		Subject:      req.Subject,
		Subtype:      req.Subtype,
		Mode:         req.Mode,
		Difficulty:   req.Difficulty,
		Count:        req.Count,
		TimeLimit:    req.TimeLimit,
	})
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Created(ctx, session)
}

// CreateReview godoc
// @Summary Create a review session
// @Description Replays a completed session's exact question set in order, with prior answers
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "source session id"
// @Success 201 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/review [post]
func (c *SessionController) CreateReview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	review, err := c.Sessions.CreateReviewSession(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Created(ctx, review)
}

// Start godoc
// @Summary Start a session
// @Description Moves the session to in_progress; repeat calls are no-ops
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/start [post]
func (c *SessionController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	session, err := c.Sessions.StartSession(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// Questions godoc
// @Summary Session questions
// @Description Returns the frozen question set in served order, without answers
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/questions [get]
func (c *SessionController) Questions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	questions, err := c.Sessions.GetSessionQuestions(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}

// SubmitAnswerRequest records one answer.
type SubmitAnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer" binding:"required,oneof=A B C D E"`
	TimeSpent  *int   `json:"timeSpent"`
}

// Answer godoc
// @Summary Submit an answer
// @Description Records an answer for a question in the running session
// @Tags sessions
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "session id"
// @Param   body body SubmitAnswerRequest true "answer"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/answers [post]
func (c *SessionController) Answer(ctx *gin.Context) {
	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.Sessions.SubmitAnswer(claims.UserID, ctx.Param("id"), req.QuestionID, req.Answer, req.TimeSpent, claims.Tier)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Complete godoc
// @Summary Complete a session
// @Description Reconciles the final score from the recorded answers
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/complete [post]
func (c *SessionController) Complete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	session, err := c.Sessions.CompleteSession(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// Abandon godoc
// @Summary Abandon a session
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/abandon [post]
func (c *SessionController) Abandon(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	session, err := c.Sessions.AbandonSession(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// Results godoc
// @Summary Session results
// @Description Per-question breakdown of a completed session
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/sessions/{id}/results [get]
func (c *SessionController) Results(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	results, err := c.Sessions.GetSessionResults(claims.UserID, ctx.Param("id"), claims.Tier)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, results)
}

// ExportPDF godoc
// @Summary Export session results as PDF
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "session id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id}/export [post]
func (c *SessionController) ExportPDF(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	location, err := c.Export.ExportSessionPDF(ctx.Request.Context(), claims.UserID, ctx.Param("id"), claims.Tier)
	if err != nil {
		c.respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"location": location})
}

// History godoc
// @Summary Session history
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   status query string false "filter by status"
// @Param   page query int false "page"
// @Param   limit query int false "page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/sessions [get]
func (c *SessionController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page := util.MustParseInt(ctx.Query("page"), 1)
	limit := util.MustParseInt(ctx.Query("limit"), 20)
	status := model.SessionStatus(ctx.Query("status"))

	sessions, total, err := c.Sessions.ListHistory(claims.UserID, status, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: sessions, Total: total, Page: page, Limit: limit})
}

// Availability godoc
// @Summary Fresh question availability
// @Description How many unseen questions remain for the user in a bucket
// @Tags sessions
// @Produce  json
// @Security BearerAuth
// @Param   category query string true "test category"
// @Param   subject query string true "subject"
// @Param   subtype query string false "subtype"
// @Success 200 {object} util.Response
// @Router /api/questions/availability [get]
func (c *SessionController) Availability(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	av, err := c.Selector.AvailableCount(
		claims.UserID,
		model.TestCategory(ctx.Query("category")),
		ctx.Query("subject"),
		ctx.Query("subtype"),
	)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, av)
}

func (c *SessionController) respondError(ctx *gin.Context, err error) {
	if iq, ok := util.IsInsufficientQuestions(err); ok {
		util.Error(ctx, http.StatusConflict, iq.Error())
		return
	}
	switch {
	case errors.Is(err, util.ErrSessionNotFound), errors.Is(err, util.ErrQuestionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrInvalidSessionState),
		errors.Is(err, util.ErrSessionNotReviewable),
		errors.Is(err, util.ErrSessionInconsistent):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrUsageRecordMissing),
		errors.Is(err, util.ErrUnknownSubject),
		errors.Is(err, util.ErrInvalidAnswerOption):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrDailyLimitReached):
		util.Error(ctx, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
