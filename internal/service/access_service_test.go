package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/service"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func openExam(now time.Time) *model.Exam {
	return &model.Exam{
		Class:     "10A",
		IsActive:  true,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	}
}

func TestStudentStatusAvailable(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := service.NewAccessServiceWithClock(fixedClock(now))

	require.Equal(t, model.StudentStatusAvailable, gate.StudentStatus(openExam(now), "10A", nil))
}

func TestStudentStatusUpcomingWhileActive(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := service.NewAccessServiceWithClock(fixedClock(now))

	exam := openExam(now)
	exam.StartDate = now.Add(time.Hour)
	exam.EndDate = now.Add(2 * time.Hour)

	require.Equal(t, model.StudentStatusUpcoming, gate.StudentStatus(exam, "10A", nil))
}

func TestStudentStatusExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := service.NewAccessServiceWithClock(fixedClock(now))

	exam := openExam(now)
	exam.StartDate = now.Add(-2 * time.Hour)
	exam.EndDate = now.Add(-time.Hour)

	require.Equal(t, model.StudentStatusExpired, gate.StudentStatus(exam, "10A", nil))
}

func TestStudentStatusDeniedBeforeEverything(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := service.NewAccessServiceWithClock(fixedClock(now))

	submitted := model.SubmissionStatusSubmitted

	inactive := openExam(now)
	inactive.IsActive = false
	require.Equal(t, model.StudentStatusAccessDenied, gate.StudentStatus(inactive, "10A", &submitted))

	wrongClass := openExam(now)
	require.Equal(t, model.StudentStatusAccessDenied, gate.StudentStatus(wrongClass, "11B", &submitted))

	require.Equal(t, model.StudentStatusAccessDenied, gate.StudentStatus(nil, "10A", nil))
}

func TestStudentStatusSubmittedOverridesWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := service.NewAccessServiceWithClock(fixedClock(now))

	// Window still open: an early submitter must not see "available" again.
	exam := openExam(now)
	submitted := model.SubmissionStatusSubmitted
	require.Equal(t, model.StudentStatusSubmitted, gate.StudentStatus(exam, "10A", &submitted))

	// Window closed: grading must not flip the status to "expired".
	exam.EndDate = now.Add(-time.Minute)
	graded := model.SubmissionStatusGraded
	require.Equal(t, model.StudentStatusSubmitted, gate.StudentStatus(exam, "10A", &graded))
}

func TestStudentStatusInProgressDoesNotLockOut(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := service.NewAccessServiceWithClock(fixedClock(now))

	inProgress := model.SubmissionStatusInProgress
	require.Equal(t, model.StudentStatusAvailable, gate.StudentStatus(openExam(now), "10A", &inProgress))
}

func TestStudentStatusStableUnderRepeatedCalls(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	gate := service.NewAccessServiceWithClock(fixedClock(now))
	exam := openExam(now)

	first := gate.StudentStatus(exam, "10A", nil)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, gate.StudentStatus(exam, "10A", nil))
	}
}
