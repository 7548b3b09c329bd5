package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/examtaker"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/logger"
	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Portal base URL")
		email    = flag.String("email", "", "Student email")
		cacheDir = flag.String("cache", defaultCacheDir(), "Directory for resume snapshots")
	)
	flag.Parse()

	log := logger.Setup("warn", "pretty")

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: examcli [flags] <exam-id>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	examID := args[0]

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	// ─── Login ─────────────────────────────────────────────────────────
	loginEmail := *email
	if loginEmail == "" {
		fmt.Print("Email: ")
		line, _ := reader.ReadString('\n')
		loginEmail = strings.TrimSpace(line)
	}
	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}

	token, err := examtaker.Login(ctx, *baseURL, loginEmail, string(bytePassword))
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}

	api := examtaker.NewClient(*baseURL, token, log)

	// ─── Load Exam ─────────────────────────────────────────────────────
	exam, _, err := api.GetExam(ctx, examID)
	if err != nil {
		fmt.Printf("Could not load exam: %v\n", err)
		os.Exit(1)
	}

	switch exam.StudentStatus {
	case model.StudentStatusAvailable:
	case model.StudentStatusSubmitted:
		fmt.Println("You have already submitted this exam.")
		return
	case model.StudentStatusUpcoming:
		fmt.Printf("This exam opens at %s.\n", exam.StartDate.Local().Format(time.RFC1123))
		return
	case model.StudentStatusExpired:
		fmt.Println("The exam window has closed.")
		return
	default:
		fmt.Println("You do not have access to this exam.")
		return
	}

	// ─── Reconcile Resume State ────────────────────────────────────────
	cache, err := examtaker.NewProgressCache(*cacheDir, log)
	if err != nil {
		fmt.Printf("Cache error: %v\n", err)
		os.Exit(1)
	}

	var local *examtaker.Snapshot
	if snap, ok := cache.Load(examID); ok {
		local = &snap
	}
	serverState, err := api.GetState(ctx, examID)
	if err != nil {
		fmt.Printf("Warning: could not fetch server state: %v\n", err)
	}

	state := examtaker.Reconcile(local, serverState, exam.DurationMinutes, time.Now())
	session := examtaker.NewSession(exam, state, cache, api, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go session.Start(runCtx)
	defer session.Close()

	fmt.Printf("\n=== %s ===\n", exam.Title)
	if exam.Instructions != "" {
		fmt.Println(exam.Instructions)
	}
	fmt.Printf("%d questions, %d minutes. Time remaining: %s\n",
		len(exam.Questions), exam.DurationMinutes, formatClock(session.Remaining()))
	fmt.Println("Commands: <option number> | a <text> | n | p | g <question> | submit | quit")

	// ─── Interactive Loop ──────────────────────────────────────────────
	for {
		if phase := session.Phase(); phase == examtaker.PhaseSubmitted || phase == examtaker.PhaseAlreadySubmitted {
			break
		}

		printQuestion(exam, session)

		fmt.Printf("[%s] > ", formatClock(session.Remaining()))
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input := strings.TrimSpace(line)

		switch {
		case input == "":
		case input == "quit":
			fmt.Println("Progress saved. You can resume later.")
			return
		case input == "n":
			session.SetCurrentQuestion(session.CurrentQuestion() + 1)
		case input == "p":
			session.SetCurrentQuestion(session.CurrentQuestion() - 1)
		case strings.HasPrefix(input, "g "):
			if i, err := strconv.Atoi(strings.TrimSpace(input[2:])); err == nil {
				session.SetCurrentQuestion(i - 1)
			}
		case input == "submit":
			handleSubmit(runCtx, reader, session)
		case strings.HasPrefix(input, "a "):
			q := exam.Questions[session.CurrentQuestion()]
			recordAnswer(runCtx, session, q, strings.TrimSpace(input[2:]))
		default:
			q := exam.Questions[session.CurrentQuestion()]
			if q.Type != model.QuestionTypeMultipleChoice {
				fmt.Println("Use 'a <text>' to answer a written question.")
				continue
			}
			idx, err := strconv.Atoi(input)
			if err != nil || idx < 1 || idx > len(q.Options) {
				fmt.Println("Pick an option number.")
				continue
			}
			recordAnswer(runCtx, session, q, strconv.Itoa(idx-1))
			session.SetCurrentQuestion(session.CurrentQuestion() + 1)
		}
	}

	// ─── Result ────────────────────────────────────────────────────────
	if session.Phase() == examtaker.PhaseAlreadySubmitted {
		fmt.Println("\nThis exam was already submitted.")
		return
	}
	if receipt := session.Receipt(); receipt != nil {
		fmt.Printf("\nSubmitted! Score: %.1f (%.1f%%), status: %s\n",
			receipt.TotalScore, receipt.Percentage, receipt.Status)
	}
}

func recordAnswer(ctx context.Context, session *examtaker.Session, q model.Question, answer string) {
	if err := session.SelectAnswer(ctx, q.ID.String(), answer); err != nil {
		fmt.Printf("Could not record answer: %v\n", err)
	}
}

func handleSubmit(ctx context.Context, reader *bufio.Reader, session *examtaker.Session) {
	if err := session.RequestSubmit(); err != nil {
		if errors.Is(err, examtaker.ErrQuestionsRemaining) {
			fmt.Printf("Not yet: %v\n", err)
			return
		}
		fmt.Printf("Cannot submit: %v\n", err)
		return
	}

	fmt.Print("Submit final answers? This cannot be undone. (yes/no): ")
	line, _ := reader.ReadString('\n')
	if strings.TrimSpace(line) != "yes" {
		session.Cancel()
		fmt.Println("Cancelled.")
		return
	}

	if err := session.Confirm(ctx); err != nil {
		fmt.Printf("Submit failed: %v — your answers are safe, try again.\n", err)
	}
}

func printQuestion(exam *model.ExamForStudent, session *examtaker.Session) {
	i := session.CurrentQuestion()
	q := exam.Questions[i]
	answers := session.Answers()

	fmt.Printf("\nQuestion %d/%d (%d pts): %s\n", i+1, len(exam.Questions), q.Points, q.Prompt)
	for j, opt := range q.Options {
		marker := " "
		if answers[q.ID.String()] == strconv.Itoa(j) {
			marker = "*"
		}
		fmt.Printf("  %s %d) %s\n", marker, j+1, opt)
	}
	if q.Type == model.QuestionTypeWritten {
		if cur := answers[q.ID.String()]; cur != "" {
			fmt.Printf("  Current answer: %s\n", cur)
		}
	}
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".examcli"
	}
	return filepath.Join(home, ".examcli")
}
