package examtaker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Abdullah-webd/myschoolmanagerexamportal/internal/model"
)

// Taking errors surfaced by the API client.
var (
	ErrUnauthorized     = errors.New("credential rejected, log in again")
	ErrAccessDenied     = errors.New("access to this exam was denied")
	ErrExamNotFound     = errors.New("exam not found")
	ErrAlreadySubmitted = errors.New("exam already submitted")
)

// envelope mirrors the server's response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ServerState is the server-held resume record for an attempt.
type ServerState struct {
	ExamID        string            `json:"exam_id"`
	Answers       map[string]string `json:"answers"`
	TimeSpent     int               `json:"time_spent"`
	TimeRemaining int               `json:"time_remaining"`
	Status        string            `json:"status"`
}

// Client talks to the exam portal API on behalf of one logged-in student.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates an API client for the given base URL (no trailing
// slash) and bearer token.
func NewClient(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "api_client").Logger(),
	}
}

// Login authenticates against the portal and returns a bearer token.
func Login(ctx context.Context, baseURL, email, password string) (string, error) {
	c := &Client{baseURL: baseURL, http: &http.Client{Timeout: 15 * time.Second}}

	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
		Email:    email,
		Password: password,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// GetExam fetches the exam as served to this student, including the
// in-progress submission record if one exists.
func (c *Client) GetExam(ctx context.Context, examID string) (*model.ExamForStudent, *model.Submission, error) {
	var out struct {
		Exam       *model.ExamForStudent `json:"exam"`
		Submission *model.Submission     `json:"submission"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/exams/"+examID, nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Exam, out.Submission, nil
}

// GetState fetches the server-held resume record for an attempt.
func (c *Client) GetState(ctx context.Context, examID string) (*ServerState, error) {
	var out struct {
		State *ServerState `json:"state"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/exams/"+examID+"/state", nil, &out); err != nil {
		return nil, err
	}
	return out.State, nil
}

// Autosave pushes the current answers and elapsed seconds to the server.
func (c *Client) Autosave(ctx context.Context, examID string, req model.SaveProgressRequest) error {
	return c.do(ctx, http.MethodPut, "/api/v1/exams/"+examID+"/auto-save", req, nil)
}

// Submit finalizes the attempt. A duplicate submit surfaces as
// ErrAlreadySubmitted.
func (c *Client) Submit(ctx context.Context, examID string, req model.SaveProgressRequest) (*model.SubmissionReceipt, error) {
	var out struct {
		Submission *model.SubmissionReceipt `json:"submission"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/exams/"+examID+"/submit", req, &out); err != nil {
		return nil, err
	}
	return out.Submission, nil
}

// do issues a request, unwraps the response envelope, and decodes data
// into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (%d): %w", res.StatusCode, err)
	}

	if res.StatusCode >= 400 || env.Error != nil {
		return c.apiError(res.StatusCode, env.Error)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// apiError maps the server's error codes to client sentinels.
func (c *Client) apiError(status int, e *envelopeError) error {
	if e == nil {
		return fmt.Errorf("server error (%d)", status)
	}
	switch e.Code {
	case "ALREADY_SUBMITTED":
		return ErrAlreadySubmitted
	case "ACCESS_DENIED", "EXAM_NOT_AVAILABLE", "EXAM_PORTAL_CLOSED":
		return ErrAccessDenied
	case "NOT_FOUND":
		return ErrExamNotFound
	case "TOKEN_REQUIRED", "TOKEN_INVALID", "SESSION_INVALIDATED", "INVALID_CREDENTIALS":
		return ErrUnauthorized
	}
	return fmt.Errorf("%s (%d): %s", e.Code, status, e.Message)
}
