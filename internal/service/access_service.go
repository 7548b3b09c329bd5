package service

import (
	"time"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
)

// AccessService computes a student's access status for an exam. The decision
// is a pure function of (now, exam window, exam activity, class match,
// submission status) so repeated calls with the same inputs are stable.
type AccessService struct {
	now func() time.Time
}

// NewAccessService creates a new AccessService using the wall clock.
func NewAccessService() *AccessService {
	return &AccessService{now: time.Now}
}

// NewAccessServiceWithClock creates an AccessService with an injected clock.
func NewAccessServiceWithClock(now func() time.Time) *AccessService {
	return &AccessService{now: now}
}

// StudentStatus resolves the access status of exam for a student in
// studentClass whose existing attempt (if any) has subStatus.
//
// The rules apply in strict priority order. The submission check runs
// before the time window on purpose: a student who submitted early must
// keep seeing "submitted" for as long as the window stays open, and late
// grading must never re-open an expired exam.
func (s *AccessService) StudentStatus(exam *model.Exam, studentClass string, subStatus *model.SubmissionStatus) model.StudentStatus {
	if exam == nil || !exam.IsActive || exam.Class != studentClass {
		return model.StudentStatusAccessDenied
	}

	if subStatus != nil && subStatus.IsTerminal() {
		return model.StudentStatusSubmitted
	}

	now := s.now()
	if now.Before(exam.StartDate) {
		return model.StudentStatusUpcoming
	}
	if now.After(exam.EndDate) {
		return model.StudentStatusExpired
	}
	return model.StudentStatusAvailable
}
