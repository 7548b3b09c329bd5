package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/config"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/database"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/logger"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/repository"
)

const demoClass = "10A"

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)

	fmt.Println("=== Seeding Demo Data ===")

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	teacher := &model.User{
		Email:        "teacher@example.com",
		PasswordHash: string(hash),
		FirstName:    "Dana",
		LastName:     "Whitfield",
		Role:         model.RoleTeacher,
	}
	if err := userRepo.Create(ctx, teacher); err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}
	fmt.Printf("Created teacher %s (%s)\n", teacher.Email, teacher.ID)

	studentNames := [][2]string{
		{"Alice", "Johnson"}, {"Brian", "Okafor"}, {"Chloe", "Martinez"},
		{"Daniel", "Kim"}, {"Ella", "Thompson"}, {"Farid", "Hassan"},
		{"Grace", "Liu"}, {"Henry", "Walker"}, {"Isla", "Brown"},
		{"Jamal", "Edwards"},
	}

	created := 0
	for i, name := range studentNames {
		student := &model.User{
			Email:        fmt.Sprintf("student%d@example.com", i+1),
			PasswordHash: string(hash),
			FirstName:    name[0],
			LastName:     name[1],
			Role:         model.RoleStudent,
			Class:        demoClass,
		}
		if err := userRepo.Create(ctx, student); err != nil {
			fmt.Printf("Error creating student %s: %v\n", student.Email, err)
			continue
		}
		created++
	}
	fmt.Printf("Created %d students in class %s\n", created, demoClass)

	now := time.Now()
	exam := &model.Exam{
		Title:           "Algebra Midterm",
		Description:     "Covers linear equations and inequalities.",
		Instructions:    "Answer all questions. The exam submits itself when time runs out.",
		Subject:         "Mathematics",
		Class:           demoClass,
		TeacherID:       teacher.ID,
		DurationMinutes: 30,
		StartDate:       now.Add(-time.Hour),
		EndDate:         now.Add(24 * time.Hour),
		IsActive:        true,
		TotalMarks:      25,
		Questions: []model.Question{
			{
				Prompt:        "What is the solution of 2x + 4 = 10?",
				Options:       []string{"x = 2", "x = 3", "x = 4", "x = 6"},
				Type:          model.QuestionTypeMultipleChoice,
				CorrectAnswer: 1,
				Points:        5,
				Position:      0,
			},
			{
				Prompt:        "Which of these is a linear equation?",
				Options:       []string{"y = x^2", "y = 3x + 1", "y = 1/x", "y = 2^x"},
				Type:          model.QuestionTypeMultipleChoice,
				CorrectAnswer: 1,
				Points:        5,
				Position:      1,
			},
			{
				Prompt:        "The slope of y = -2x + 7 is:",
				Options:       []string{"7", "2", "-2", "-7"},
				Type:          model.QuestionTypeMultipleChoice,
				CorrectAnswer: 2,
				Points:        5,
				Position:      2,
			},
			{
				Prompt:        "Explain how you would solve the inequality 3x - 5 > 7.",
				Type:          model.QuestionTypeWritten,
				Points:        10,
				Position:      3,
			},
		},
	}
	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	fmt.Printf("Created exam '%s' (%s) with %d questions\n", exam.Title, exam.ID, len(exam.Questions))

	fmt.Println("\nSeed completed!")
	fmt.Println("Teacher login:  teacher@example.com / password123")
	fmt.Println("Student login:  student1@example.com / password123")
}
