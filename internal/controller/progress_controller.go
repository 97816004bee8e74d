package controller

import (
	"bimbel_asn_backend/internal/service"
	"bimbel_asn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Progress *service.ProgressService
}

func NewProgressController(progress *service.ProgressService) *ProgressController {
	return &ProgressController{Progress: progress}
}

// Get godoc
// @Summary User progress rollups
// @Description Lifetime totals with subject and difficulty breakdowns
// @Tags progress
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress [get]
func (c *ProgressController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	p, err := c.Progress.Get(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// Stats godoc
// @Summary Lifetime exposure stats
// @Description Distinct questions seen, answered and correct across all sessions
// @Tags progress
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress/stats [get]
func (c *ProgressController) Stats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	stats, err := c.Progress.Lifetime(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// Rebuild godoc
// @Summary Rebuild progress rollups from history
// @Tags progress
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress/rebuild [post]
func (c *ProgressController) Rebuild(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	p, err := c.Progress.Rebuild(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, p)
}
