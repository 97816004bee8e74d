package controller

import (
	"errors"

	"bimbel_asn_backend/internal/model"
	"bimbel_asn_backend/internal/service"
	"bimbel_asn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// QuestionController exposes the admin-only master bank operations.
type QuestionController struct {
	Questions *service.QuestionService
	Quality   *service.QualityService
	Importer  *service.ImportService
}

func NewQuestionController(questions *service.QuestionService, quality *service.QualityService, importer *service.ImportService) *QuestionController {
	return &QuestionController{Questions: questions, Quality: quality, Importer: importer}
}

// Create godoc
// @Summary Add a master question
// @Description Validates the question and rejects content duplicates
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateQuestionInput true "question"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/admin/questions [post]
func (c *QuestionController) Create(ctx *gin.Context) {
	var req service.CreateQuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Questions.Create(req)
	if err != nil {
		if errors.Is(err, util.ErrDuplicateQuestion) {
			util.Conflict(ctx, err.Error())
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Created(ctx, gin.H{"id": q.ID})
}

// List godoc
// @Summary List questions by subject
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Param   category query string true "test category"
// @Param   subject query string true "subject"
// @Param   page query int false "page"
// @Param   limit query int false "page size"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/questions [get]
func (c *QuestionController) List(ctx *gin.Context) {
	page := util.MustParseInt(ctx.Query("page"), 1)
	limit := util.MustParseInt(ctx.Query("limit"), 20)

	questions, total, err := c.Questions.List(
		model.TestCategory(ctx.Query("category")),
		ctx.Query("subject"),
		page, limit,
	)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: questions, Total: total, Page: page, Limit: limit})
}

// Import godoc
// @Summary Bulk import questions from Excel
// @Description Uploads an .xlsx file; each row is validated and deduplicated
// @Tags admin
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   file formData file true "xlsx file"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/admin/questions/import [post]
func (c *QuestionController) Import(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	report, err := c.Importer.ImportExcel(src)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, report)
}

// RetireRequest takes a question out of circulation.
type RetireRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Retire godoc
// @Summary Retire a question
// @Tags admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "question id"
// @Param   body body RetireRequest true "reason"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/questions/{id}/retire [post]
func (c *QuestionController) Retire(ctx *gin.Context) {
	var req RetireRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Quality.Retire(ctx.Param("id"), req.Reason); err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, gin.H{"id": ctx.Param("id")})
}

// Restore godoc
// @Summary Restore a retired question
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "question id"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/questions/{id}/restore [post]
func (c *QuestionController) Restore(ctx *gin.Context) {
	if err := c.Quality.Restore(ctx.Param("id")); err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, gin.H{"id": ctx.Param("id")})
}

// QualityReport godoc
// @Summary Bank quality report
// @Description Evaluates answer statistics without retiring anything
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/questions/quality-report [get]
func (c *QuestionController) QualityReport(ctx *gin.Context) {
	report, err := c.Quality.Report()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// QualityScan godoc
// @Summary Run the quality retirement scan
// @Description Retires questions whose answer statistics fail the thresholds
// @Tags admin
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/questions/quality-scan [post]
func (c *QuestionController) QualityScan(ctx *gin.Context) {
	report, err := c.Quality.ApplyRetirementSweep()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
