package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/api/dto"
	"github.com/spec-kit/blog-service/internal/client/api"
	apperrors "github.com/spec-kit/blog-service/pkg/util"
)

var (
	// ErrBusy is returned while another login or registration is in flight.
	ErrBusy             = errors.New("a sign-in is already in progress")
	ErrNotStarted       = errors.New("session has not been loaded")
	ErrAlreadySignedIn  = errors.New("already signed in")
	ErrNotAuthenticated = errors.New("not signed in")
	// ErrSessionExpired wraps the server's 401 on a protected call.
	ErrSessionExpired = errors.New("session expired")
)

// Authenticator is the part of the API client that creates sessions.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*dto.AuthResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
}

// Manager owns the session state and applies its side effects. Transitions
// are serialized; network calls run outside the lock.
type Manager struct {
	mu      sync.Mutex
	state   State
	storage Storage
	auth    Authenticator
	logger  *zap.Logger
}

func NewManager(storage Storage, auth Authenticator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{storage: storage, auth: auth, logger: logger}
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	if s.Identity != nil {
		identity := *s.Identity
		s.Identity = &identity
	}
	return s
}

func (m *Manager) apply(e Event) {
	m.mu.Lock()
	m.state = Reduce(m.state, e)
	m.mu.Unlock()
}

// Start restores a stored session. It runs once; later calls return the
// current state.
func (m *Manager) Start(ctx context.Context) State {
	m.mu.Lock()
	if m.state.Phase != PhaseUnknown {
		m.mu.Unlock()
		return m.State()
	}
	m.state = Reduce(m.state, BootStarted{})
	m.mu.Unlock()

	snap, err := m.storage.Load(ctx)
	var next Event = StorageEmpty{}
	switch {
	case errors.Is(err, ErrCorrupt):
		m.logger.Warn("purged unreadable stored session", zap.Error(err))
	case err != nil:
		m.logger.Warn("session storage unavailable", zap.Error(err))
	case snap != nil:
		next = StorageRestored{Token: snap.Token, Identity: snap.Identity}
		if snap.Token == "" || snap.Identity.ID == "" {
			m.logger.Warn("discarding incomplete stored session")
			if err := m.storage.Clear(ctx); err != nil {
				m.logger.Warn("clearing stored session failed", zap.Error(err))
			}
		}
	}
	m.apply(next)
	return m.State()
}

// Login signs in with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	return m.authenticate(ctx, func(ctx context.Context) (*dto.AuthResponse, error) {
		return m.auth.Login(ctx, email, password)
	})
}

// Register creates an account and signs in as it.
func (m *Manager) Register(ctx context.Context, req dto.RegisterRequest) error {
	return m.authenticate(ctx, func(ctx context.Context) (*dto.AuthResponse, error) {
		return m.auth.Register(ctx, req)
	})
}

func (m *Manager) authenticate(ctx context.Context, call func(context.Context) (*dto.AuthResponse, error)) error {
	m.mu.Lock()
	switch {
	case m.state.Submitting:
		m.mu.Unlock()
		return ErrBusy
	case m.state.Phase == PhaseAuthenticated:
		m.mu.Unlock()
		return ErrAlreadySignedIn
	case m.state.Phase != PhaseAnonymous:
		m.mu.Unlock()
		return ErrNotStarted
	}
	m.state = Reduce(m.state, AuthStarted{})
	m.mu.Unlock()

	res, err := call(ctx)
	if err == nil && (res == nil || res.Token == "") {
		err = errors.New("server returned no token")
	}
	if err != nil {
		m.apply(AuthFailed{Message: failureMessage(err)})
		return err
	}

	// The in-memory session stands even if it cannot be persisted; it just
	// will not survive a restart.
	if err := m.storage.Save(ctx, Snapshot{Token: res.Token, Identity: res.Identity}); err != nil {
		m.logger.Warn("could not persist session", zap.Error(err))
	}
	m.apply(AuthSucceeded{Token: res.Token, Identity: res.Identity})
	return nil
}

// Logout forgets the session locally. The server keeps no session state.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Phase != PhaseAuthenticated {
		m.mu.Unlock()
		return nil
	}
	m.state = Reduce(m.state, LoggedOut{})
	m.mu.Unlock()

	if err := m.storage.Clear(ctx); err != nil {
		return fmt.Errorf("clear stored session: %w", err)
	}
	return nil
}

// DismissError clears the displayed error.
func (m *Manager) DismissError() {
	m.apply(ErrorDismissed{})
}

// Authorized runs fn with the current token. If the server rejects the token
// the session drops to anonymous and asks for a new sign-in, unless the
// session already changed while fn was running.
func (m *Manager) Authorized(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	m.mu.Lock()
	if !m.state.Authenticated() {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	token := m.state.Token
	m.mu.Unlock()

	err := fn(ctx, token)
	if !errors.Is(err, api.ErrUnauthenticated) {
		return err
	}

	m.mu.Lock()
	current := m.state.Authenticated() && m.state.Token == token
	if current {
		m.state = Reduce(m.state, SessionRejected{})
	}
	m.mu.Unlock()

	if current {
		if cerr := m.storage.Clear(ctx); cerr != nil {
			m.logger.Warn("could not clear rejected session", zap.Error(cerr))
		}
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}

func failureMessage(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Code == apperrors.CodeValidation && len(apiErr.Details) > 0 {
			return apiErr.Message + ": " + describeFields(apiErr.Details)
		}
		return apiErr.Message
	case errors.Is(err, api.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request timed out"
	default:
		return defaultAuthError
	}
}

func describeFields(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %v", k, details[k]))
	}
	return strings.Join(parts, "; ")
}
