package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coursebook/internal/codec"
	"coursebook/internal/contract"
	"coursebook/internal/domain"
	"coursebook/internal/hub"
	"coursebook/internal/provider"
	"coursebook/internal/service"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CreatedResponse is returned after a course is created
type CreatedResponse struct {
	URI    string        `json:"uri"`
	Course domain.Course `json:"course"`
}

// TypeResponse describes the resource an identifier addresses
type TypeResponse struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
	MIME string `json:"mime"`
}

// CourseHandler handles course API requests
type CourseHandler struct {
	svc *service.CourseService
	hub *hub.Hub
	log *zap.Logger
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(svc *service.CourseService, h *hub.Hub, log *zap.Logger) *CourseHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CourseHandler{svc: svc, hub: h, log: log}
}

// ListCourses returns every course
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var columns []string
	if v := c.Query("columns"); v != "" {
		columns = strings.Split(v, ",")
	}

	courses, err := h.svc.ListCourses(c.Request.Context(), columns, c.Query("order"))
	if err != nil {
		h.writeError(c, "Failed to list courses", err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// GetCourse returns a single course
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := h.courseID(c)
	if !ok {
		return
	}

	course, err := h.svc.GetCourse(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to get course", err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// CreateCourse stores a new course
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var course domain.Course
	if err := c.ShouldBindJSON(&course); err != nil {
		h.writeError(c, "Invalid request body", fmt.Errorf("%w: %v", provider.ErrInvalidArgument, err))
		return
	}
	course.ID = 0

	if err := h.svc.CreateCourse(c.Request.Context(), &course); err != nil {
		h.writeError(c, "Failed to create course", err)
		return
	}

	uri := contract.ItemURI(course.ID)
	c.Header("Location", fmt.Sprintf("/api/courses/%d", course.ID))
	c.JSON(http.StatusCreated, CreatedResponse{URI: uri, Course: course})
}

// UpdateCourse applies a partial update and returns the stored course
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := h.courseID(c)
	if !ok {
		return
	}

	var values domain.Values
	if err := c.ShouldBindJSON(&values); err != nil {
		h.writeError(c, "Invalid request body", fmt.Errorf("%w: %v", provider.ErrInvalidArgument, err))
		return
	}

	ctx := c.Request.Context()
	if err := h.svc.UpdateCourse(ctx, id, values); err != nil {
		h.writeError(c, "Failed to update course", err)
		return
	}

	course, err := h.svc.GetCourse(ctx, id)
	if err != nil {
		h.writeError(c, "Failed to get course", err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse removes a single course
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := h.courseID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteCourse(c.Request.Context(), id); err != nil {
		h.writeError(c, "Failed to delete course", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ClearCourses removes every course
func (h *CourseHandler) ClearCourses(c *gin.Context) {
	n, err := h.svc.ClearCourses(c.Request.Context())
	if err != nil {
		h.writeError(c, "Failed to delete courses", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// GetType reports the resource type of the uri query parameter
func (h *CourseHandler) GetType(c *gin.Context) {
	uri := c.Query("uri")
	t, err := h.svc.Provider().ResourceType(uri)
	if err != nil {
		h.writeError(c, "Unknown resource", err)
		return
	}

	c.JSON(http.StatusOK, TypeResponse{URI: uri, Type: t.String(), MIME: t.MIMEType()})
}

// Export writes every course in the requested format
func (h *CourseHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	var buf bytes.Buffer
	if err := h.svc.Export(c.Request.Context(), format, &buf); err != nil {
		h.writeError(c, "Failed to export courses", err)
		return
	}

	contentType := "application/json"
	ext := "json"
	if format != "json" {
		contentType = "application/x-yaml"
		ext = "yaml"
	}
	c.Header("Content-Disposition", "attachment; filename=courses."+ext)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Import reads courses from the request body
func (h *CourseHandler) Import(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	strategy := c.Query("strategy")

	result, err := h.svc.Import(c.Request.Context(), format, c.Request.Body, strategy)
	if err != nil {
		h.writeError(c, "Failed to import courses", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Events streams change notifications. The uri parameter defaults to the
// course collection and must be a known identifier.
func (h *CourseHandler) Events(c *gin.Context) {
	m, err := provider.Resolve(c.DefaultQuery("uri", contract.CollectionURI))
	if err != nil {
		h.writeError(c, "Unknown resource", err)
		return
	}

	descendants := true
	if v := c.Query("descendants"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(c, "Invalid descendants flag", fmt.Errorf("%w: %v", provider.ErrInvalidArgument, err))
			return
		}
		descendants = b
	}

	h.hub.Stream(c.Writer, c.Request, m.URI(), descendants)
}

// Health reports liveness
func (h *CourseHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"subscriptions": h.svc.Provider().Resolver().Count(),
		"sse_clients":   h.hub.ClientCount(),
	})
}

// courseID parses the :id path parameter. Anything that is not a
// non-negative integer can never match an item, so it is a 404.
func (h *CourseHandler) courseID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		h.writeError(c, "Invalid course ID", fmt.Errorf("course id %q: %w", raw, provider.ErrUnmatchedResource))
		return 0, false
	}
	return id, true
}

func (h *CourseHandler) writeError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(msg, zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   msg,
		Details: err.Error(),
	})
}

// statusFor maps gateway and service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrUnmatchedResource), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrInvalidArgument), errors.Is(err, codec.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
