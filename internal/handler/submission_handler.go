package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/middleware"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/response"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/validator"
)

// SubmissionHandler handles autosave, submission, and resume endpoints.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
	examService       *service.ExamService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionService *service.SubmissionService, examService *service.ExamService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		examService:       examService,
	}
}

// Autosave godoc
// PUT /api/v1/exams/:id/auto-save
// Buffers the student's current answers and elapsed time. Returns 409
// once the attempt is final; the client should stop saving then.
func (h *SubmissionHandler) Autosave(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err = h.submissionService.Autosave(c.Request.Context(), examID, claims.UserID, claims.Class, &req)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// Submit godoc
// POST /api/v1/exams/:id/submit
// Grades the final answers and closes out the attempt. A duplicate
// submit returns 400 with is_submitted so the client can settle into
// the submitted state instead of retrying.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	receipt, err := h.submissionService.Submit(c.Request.Context(), examID, claims.UserID, claims.Class, &req)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubmitted) {
			response.FailWithData(c, http.StatusBadRequest, response.ErrAlreadySubmitted, gin.H{
				"is_submitted": true,
			})
			return
		}
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submission": receipt})
}

// State godoc
// GET /api/v1/exams/:id/state
// Returns the resumable state of the student's attempt: buffered
// answers, elapsed time, and the remaining seconds on the clock.
func (h *SubmissionHandler) State(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.submissionService.GetResumeState(c.Request.Context(), examID, claims.UserID, claims.Class)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// ListByExam godoc
// GET /api/v1/exams/:id/submissions
// Returns all submissions for an exam with student display fields.
// Teachers may only review their own exams.
func (h *SubmissionHandler) ListByExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	actor := &model.User{ID: claims.UserID, Role: claims.Role}
	if err := h.examService.VerifyOwnership(c.Request.Context(), examID, actor); err != nil {
		h.failDomain(c, err)
		return
	}

	submissions, err := h.submissionService.ListByExam(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": submissions})
}

func (h *SubmissionHandler) failDomain(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAccessDenied):
		response.Fail(c, http.StatusForbidden, response.ErrAccessDenied)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrNotExamOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamOwner)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
