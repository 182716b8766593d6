package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/coursesearch/pkg/httputil"
	"github.com/utafrali/coursesearch/pkg/validator"

	"github.com/utafrali/coursesearch/internal/domain"
	"github.com/utafrali/coursesearch/internal/service"
)

const (
	maxCourseBody = 1 << 20
	maxBulkBody   = 10 << 20
)

// BulkRequest is the body of POST /api/courses/bulk. It replaces the whole
// index with Courses.
type BulkRequest struct {
	Courses []domain.Course `json:"courses" validate:"required,max=10000,dive"`
}

// CourseHandler serves the admin ingestion endpoints.
type CourseHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewCourseHandler creates a new course ingestion handler.
func NewCourseHandler(svc *service.SearchService, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{service: svc, logger: logger}
}

// Index handles POST /api/courses: insert or replace one course.
func (h *CourseHandler) Index(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCourseBody)

	var course domain.Course
	if err := validator.DecodeAndValidate(r, &course); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.IndexCourse(r.Context(), &course); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"id": course.ID, "status": "indexed"},
	})
}

// Delete handles DELETE /api/courses/{id}. Deleting an unknown id succeeds.
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteCourse(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"id": id, "status": "deleted"},
	})
}

// ReplaceAll handles POST /api/courses/bulk.
func (h *CourseHandler) ReplaceAll(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBulkBody)

	var req BulkRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ReplaceAll(r.Context(), req.Courses); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"indexed": len(req.Courses), "status": "replaced"},
	})
}

// Reindex handles POST /api/courses/reindex: reload the index from the
// course store. Answers 503 when no store is configured.
func (h *CourseHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Reindex(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]any{"indexed": n, "status": "reindexed"},
	})
}
