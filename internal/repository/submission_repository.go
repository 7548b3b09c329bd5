package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
)

// ErrSubmissionFinal is returned when a write targets a submission that has
// already reached a terminal status (submitted/graded). The guarded upsert
// below is the serialization point that makes concurrent submits safe: the
// unique (exam_id, student_id) constraint plus the status predicate ensure
// at most one write ever finalizes an attempt.
var ErrSubmissionFinal = errors.New("submission already finalized")

// SubmissionRepository handles submission persistence. All writes are
// single-statement guarded upserts keyed on (exam_id, student_id).
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// GetByExamAndStudent retrieves the submission for one (exam, student) pair.
// Returns pgx.ErrNoRows when the student has not started the exam.
func (r *SubmissionRepository) GetByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, answers, status, time_spent, total_score,
		        percentage, submitted_at, graded_at, auto_saved
		 FROM submissions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID))
}

// UpsertAutosave creates or refreshes an in-progress submission with the
// latest answer set. Last write wins. Returns ErrSubmissionFinal when the
// attempt has already been submitted or graded — a late autosave must never
// reopen a finished submission.
func (r *SubmissionRepository) UpsertAutosave(ctx context.Context, examID, studentID uuid.UUID, answers []model.Answer, timeSpent int) error {
	encoded, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO submissions (exam_id, student_id, answers, time_spent, status, auto_saved)
		 VALUES ($1, $2, $3, $4, 'in-progress', TRUE)
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     time_spent = EXCLUDED.time_spent,
		     auto_saved = TRUE
		 WHERE submissions.status = 'in-progress'
		 RETURNING id`,
		examID, studentID, encoded, timeSpent,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSubmissionFinal
	}
	return err
}

// Finalize writes the graded terminal state of an attempt. It creates the
// submission if the student never autosaved, otherwise it promotes the
// in-progress record. Returns ErrSubmissionFinal when a terminal record
// already exists, which the caller surfaces as a duplicate submission.
func (r *SubmissionRepository) Finalize(ctx context.Context, sub *model.Submission) error {
	encoded, err := json.Marshal(sub.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO submissions (exam_id, student_id, answers, time_spent, status,
		                          total_score, percentage, submitted_at, graded_at, auto_saved)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE)
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET answers = EXCLUDED.answers,
		     time_spent = EXCLUDED.time_spent,
		     status = EXCLUDED.status,
		     total_score = EXCLUDED.total_score,
		     percentage = EXCLUDED.percentage,
		     submitted_at = EXCLUDED.submitted_at,
		     graded_at = EXCLUDED.graded_at
		 WHERE submissions.status = 'in-progress'
		 RETURNING id`,
		sub.ExamID, sub.StudentID, encoded, sub.TimeSpent, sub.Status,
		sub.TotalScore, sub.Percentage, sub.SubmittedAt, sub.GradedAt,
	).Scan(&sub.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSubmissionFinal
	}
	return err
}

// ListByExam retrieves all submissions for an exam with student display
// fields, most recently submitted first.
func (r *SubmissionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.SubmissionWithStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.exam_id, s.student_id, s.answers, s.status, s.time_spent,
		        s.total_score, s.percentage, s.submitted_at, s.graded_at, s.auto_saved,
		        u.first_name, u.last_name, u.email
		 FROM submissions s
		 JOIN users u ON s.student_id = u.id
		 WHERE s.exam_id = $1
		 ORDER BY s.submitted_at DESC NULLS LAST`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.SubmissionWithStudent
	for rows.Next() {
		var sw model.SubmissionWithStudent
		var answers []byte
		if err := rows.Scan(&sw.ID, &sw.ExamID, &sw.StudentID, &answers, &sw.Status,
			&sw.TimeSpent, &sw.TotalScore, &sw.Percentage, &sw.SubmittedAt, &sw.GradedAt,
			&sw.AutoSaved, &sw.StudentFirstName, &sw.StudentLastName, &sw.StudentEmail); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answers, &sw.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
		results = append(results, sw)
	}
	return results, rows.Err()
}

// StatusesByStudent maps exam id to submission status for every attempt a
// student has started. Used to overlay access statuses on the exam list.
func (r *SubmissionRepository) StatusesByStudent(ctx context.Context, studentID uuid.UUID) (map[uuid.UUID]model.SubmissionStatus, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, status FROM submissions WHERE student_id = $1`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[uuid.UUID]model.SubmissionStatus)
	for rows.Next() {
		var examID uuid.UUID
		var status model.SubmissionStatus
		if err := rows.Scan(&examID, &status); err != nil {
			return nil, err
		}
		statuses[examID] = status
	}
	return statuses, rows.Err()
}

// CountByExam counts submissions referencing an exam. Used to lock question
// content once any attempt exists.
func (r *SubmissionRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE exam_id = $1`, examID).Scan(&n)
	return n, err
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	s := &model.Submission{}
	var answers []byte
	err := row.Scan(&s.ID, &s.ExamID, &s.StudentID, &answers, &s.Status, &s.TimeSpent,
		&s.TotalScore, &s.Percentage, &s.SubmittedAt, &s.GradedAt, &s.AutoSaved)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return s, nil
}
