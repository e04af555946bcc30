package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with every route registered
func NewRouter(h *CourseHandler, log *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(log))

	r.GET("/healthz", h.Health)
	r.GET("/events", h.Events)

	api := r.Group("/api")
	{
		courses := api.Group("/courses")
		{
			courses.GET("", h.ListCourses)
			courses.POST("", h.CreateCourse)
			courses.DELETE("", h.ClearCourses)
			courses.GET("/:id", h.GetCourse)
			courses.PUT("/:id", h.UpdateCourse)
			courses.DELETE("/:id", h.DeleteCourse)
		}

		api.GET("/type", h.GetType)
		api.GET("/export", h.Export)
		api.POST("/import", h.Import)
	}

	return r
}
