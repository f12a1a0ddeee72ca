package controller

import (
	"coursegen_backend/internal/model"
	"coursegen_backend/internal/service"
	"coursegen_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	courseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{courseService: courseService}
}

type generateCourseRequest struct {
	Topic         string `json:"topic"`
	Difficulty    string `json:"difficulty"`
	ModuleCount   int    `json:"moduleCount"`
	IncludeQuiz   bool   `json:"includeQuiz"`
	IncludeVideos bool   `json:"includeVideos"`
}

type generateCourseResponse struct {
	Success bool          `json:"success"`
	Course  *model.Course `json:"course"`
	Cached  bool          `json:"cached"`
}

// Generate 课程生成入口。请求者身份来自认证层注入的 JWT claims。
func (c *CourseController) Generate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req generateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, cached, err := c.courseService.Generate(ctx.Request.Context(), model.GenerationRequest{
		Topic:         req.Topic,
		Difficulty:    model.Difficulty(req.Difficulty),
		ModuleCount:   req.ModuleCount,
		IncludeQuiz:   req.IncludeQuiz,
		IncludeVideos: req.IncludeVideos,
		RequesterID:   claims.UserID,
	})
	if err != nil {
		if ve, ok := util.IsValidationError(err); ok {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid input",
				"details": ve.Fields,
			})
			return
		}
		if errors.Is(err, util.ErrTotalGenerationFailure) {
			ctx.JSON(http.StatusBadGateway, gin.H{
				"error": "course generation failed, please try again later",
			})
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, generateCourseResponse{
		Success: true,
		Course:  course,
		Cached:  cached,
	})
}
