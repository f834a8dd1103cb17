// Package api is a thin HTTP client for the blog server built on fiber's Agent.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/domain"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

var (
	// ErrUnauthenticated matches an APIError the server raised because the
	// bearer token was missing, invalid, or no longer maps to an active identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnavailable wraps transport failures.
	ErrUnavailable = errors.New("server unavailable")
)

// APIError is the decoded {"error":{...}} envelope of a failed request.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Is lets callers test errors.Is(err, ErrUnauthenticated).
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthenticated && e.Code == apperrors.CodeUnauthenticated
}

// Reason returns details.reason when the server sent one.
func (e *APIError) Reason() string {
	reason, _ := e.Details["reason"].(string)
	return reason
}

// Field returns details.field, set on conflicts.
func (e *APIError) Field() string {
	field, _ := e.Details["field"].(string)
	return field
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// Client talks to one blog server.
type Client struct {
	baseURL string
	timeout time.Duration
}

// New returns a client for baseURL. A zero timeout uses 10 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// Register creates an identity and returns its first token.
func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	if err := c.do(ctx, fiber.MethodPost, "/api/auth/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var out dto.AuthResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, fiber.MethodPost, "/api/auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the identity the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*domain.PublicIdentity, error) {
	var out domain.PublicIdentity
	if err := c.do(ctx, fiber.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	req := dto.ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	return c.do(ctx, fiber.MethodPut, "/api/auth/password", token, req, nil)
}

// ListPosts returns published posts. token may be empty.
func (c *Client) ListPosts(ctx context.Context, token string) ([]dto.PostResponse, error) {
	var out []dto.PostResponse
	if err := c.do(ctx, fiber.MethodGet, "/api/posts", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePost(ctx context.Context, token string, req dto.PostRequest) (*dto.PostResponse, error) {
	var out dto.PostResponse
	if err := c.do(ctx, fiber.MethodPost, "/api/posts", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, token, id string) error {
	return c.do(ctx, fiber.MethodDelete, "/api/posts/"+id, token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	agent.Timeout(timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if body != nil {
		agent.JSON(body)
	}
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("prepare %s %s: %w", method, path, err)
	}

	// Bytes releases the agent.
	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, errors.Join(errs...))
	}
	return decode(status, raw, out)
}

func decode(status int, raw []byte, out any) error {
	if status == http.StatusNoContent {
		return nil
	}
	var env envelope
	var parseErr error
	if len(raw) > 0 {
		parseErr = json.Unmarshal(raw, &env)
	}
	if status >= http.StatusBadRequest {
		apiErr := &APIError{Status: status, Code: apperrors.CodeInternal, Message: http.StatusText(status)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}
	if parseErr != nil {
		return fmt.Errorf("decode response (%d): %w", status, parseErr)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
