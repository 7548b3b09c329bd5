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

// ExamHandler handles exam listing and authoring endpoints.
type ExamHandler struct {
	examService       *service.ExamService
	submissionService *service.SubmissionService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, submissionService *service.SubmissionService) *ExamHandler {
	return &ExamHandler{
		examService:       examService,
		submissionService: submissionService,
	}
}

// List godoc
// GET /api/v1/exams
// Students receive active exams for their class with a per-exam student
// status attached; teachers receive their own exams; admins receive all.
func (h *ExamHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	if claims.Role == model.RoleStudent {
		exams, err := h.submissionService.ListExamsForStudent(c.Request.Context(), claims.UserID, claims.Class)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"exams": exams})
		return
	}

	actor := &model.User{ID: claims.UserID, Role: claims.Role}
	exams, err := h.examService.ListForStaff(c.Request.Context(), actor)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// Get godoc
// GET /api/v1/exams/:id
// Students pass through the access gate and receive a sanitized exam
// (no correct answers) plus their in-progress submission, if any.
// Staff receive the full exam including answer keys.
func (h *ExamHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if claims.Role == model.RoleStudent {
		exam, sub, err := h.submissionService.GetExamForStudent(c.Request.Context(), examID, claims.UserID, claims.Class)
		if err != nil {
			h.failDomain(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"exam":       exam,
			"submission": sub,
		})
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Create godoc
// POST /api/v1/exams
// Creates an exam with its questions. Teacher or admin only.
func (h *ExamHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateWindow) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidDateWindow)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// Update godoc
// PUT /api/v1/exams/:id
// Updates exam metadata; question replacement is rejected once the exam
// has submissions. Teachers may only touch their own exams.
func (h *ExamHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	actor := &model.User{ID: claims.UserID, Role: claims.Role}
	exam, err := h.examService.Update(c.Request.Context(), examID, actor, &req)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// Delete godoc
// DELETE /api/v1/exams/:id
// Removes an exam, its questions, and its submissions.
func (h *ExamHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	actor := &model.User{ID: claims.UserID, Role: claims.Role}
	if err := h.examService.Delete(c.Request.Context(), examID, actor); err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// failDomain translates domain errors from the exam and submission
// services into HTTP responses.
func (h *ExamHandler) failDomain(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrAccessDenied):
		response.Fail(c, http.StatusForbidden, response.ErrAccessDenied)
	case errors.Is(err, service.ErrNotExamOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamOwner)
	case errors.Is(err, service.ErrQuestionsLocked):
		response.Fail(c, http.StatusConflict, response.ErrQuestionsLocked)
	case errors.Is(err, service.ErrInvalidDateWindow):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidDateWindow)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
