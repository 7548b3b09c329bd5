package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
)

// ExamRepository handles exam and question data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, description, instructions, subject, class, teacher_id,
	duration_minutes, start_date, end_date, is_active, total_marks, created_at, updated_at`

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Instructions, &e.Subject, &e.Class,
		&e.TeacherID, &e.DurationMinutes, &e.StartDate, &e.EndDate, &e.IsActive,
		&e.TotalMarks, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam with its ordered questions.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam, err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	questions, err := r.questionsForExam(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	exam.Questions = questions
	return exam, nil
}

func (r *ExamRepository) questionsForExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, prompt, options, type, correct_answer, points, position
		 FROM questions WHERE exam_id = $1 ORDER BY position ASC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Prompt, &options, &q.Type,
			&q.CorrectAnswer, &q.Points, &q.Position); err != nil {
			return nil, err
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("decode options: %w", err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListByClass retrieves active exams for a class whose end date has not
// passed, newest first. Questions are not loaded.
func (r *ExamRepository) ListByClass(ctx context.Context, class string) ([]model.Exam, error) {
	return r.list(ctx,
		`SELECT `+examColumns+` FROM exams
		 WHERE class = $1 AND is_active = TRUE AND end_date >= NOW()
		 ORDER BY created_at DESC`, class)
}

// ListByTeacher retrieves all exams owned by a teacher, newest first.
func (r *ExamRepository) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.Exam, error) {
	return r.list(ctx,
		`SELECT `+examColumns+` FROM exams WHERE teacher_id = $1 ORDER BY created_at DESC`, teacherID)
}

// ListAll retrieves every exam, newest first (admin view).
func (r *ExamRepository) ListAll(ctx context.Context) ([]model.Exam, error) {
	return r.list(ctx, `SELECT `+examColumns+` FROM exams ORDER BY created_at DESC`)
}

func (r *ExamRepository) list(ctx context.Context, query string, args ...any) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e := model.Exam{}
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Instructions, &e.Subject,
			&e.Class, &e.TeacherID, &e.DurationMinutes, &e.StartDate, &e.EndDate,
			&e.IsActive, &e.TotalMarks, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts an exam and its questions in one transaction.
// TotalMarks must already be computed by the caller.
func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (title, description, instructions, subject, class, teacher_id,
		                    duration_minutes, start_date, end_date, is_active, total_marks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		exam.Title, exam.Description, exam.Instructions, exam.Subject, exam.Class,
		exam.TeacherID, exam.DurationMinutes, exam.StartDate, exam.EndDate,
		exam.IsActive, exam.TotalMarks,
	).Scan(&exam.ID, &exam.CreatedAt, &exam.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	if err := insertQuestions(ctx, tx, exam.ID, exam.Questions); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update rewrites exam fields and, when replaceQuestions is set, swaps the
// question set in the same transaction.
func (r *ExamRepository) Update(ctx context.Context, exam *model.Exam, replaceQuestions bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`UPDATE exams
		 SET title = $1, description = $2, instructions = $3, subject = $4, class = $5,
		     duration_minutes = $6, start_date = $7, end_date = $8, is_active = $9,
		     total_marks = $10, updated_at = NOW()
		 WHERE id = $11`,
		exam.Title, exam.Description, exam.Instructions, exam.Subject, exam.Class,
		exam.DurationMinutes, exam.StartDate, exam.EndDate, exam.IsActive,
		exam.TotalMarks, exam.ID)
	if err != nil {
		return fmt.Errorf("update exam: %w", err)
	}

	if replaceQuestions {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, exam.ID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := insertQuestions(ctx, tx, exam.ID, exam.Questions); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete removes an exam; questions and submissions cascade via FK.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func insertQuestions(ctx context.Context, tx pgx.Tx, examID uuid.UUID, questions []model.Question) error {
	for i := range questions {
		q := &questions[i]
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO questions (exam_id, prompt, options, type, correct_answer, points, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			examID, q.Prompt, options, q.Type, q.CorrectAnswer, q.Points, i,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		q.ExamID = examID
		q.Position = i
	}
	return nil
}
