package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrStaffAccessOnly   ErrCode = "STAFF_ACCESS_ONLY"
	ErrPortalClosed      ErrCode = "EXAM_PORTAL_CLOSED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrAccessDenied        ErrCode = "ACCESS_DENIED"
	ErrExamNotAvailable    ErrCode = "EXAM_NOT_AVAILABLE"
	ErrAlreadySubmitted    ErrCode = "ALREADY_SUBMITTED"
	ErrQuestionsLocked     ErrCode = "QUESTIONS_LOCKED"
	ErrInvalidDateWindow   ErrCode = "INVALID_DATE_WINDOW"
	ErrNotExamOwner        ErrCode = "NOT_EXAM_OWNER"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrTokenRequired:
		return "Authentication token required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrStaffAccessOnly:
		return "This resource is restricted to teachers and administrators."
	case ErrPortalClosed:
		return "Exam portal is currently closed."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrAccessDenied:
		return "Access denied."
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrAlreadySubmitted:
		return "Exam already submitted."
	case ErrQuestionsLocked:
		return "Questions cannot be changed once the exam has submissions."
	case ErrInvalidDateWindow:
		return "Exam start date must be before its end date."
	case ErrNotExamOwner:
		return "You are not the owner of this exam."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
