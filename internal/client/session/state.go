// Package session keeps the client's view of who is signed in. State changes
// only through Reduce; Manager performs the storage and network effects.
package session

import "github.com/spec-kit/blog-service/internal/domain"

// Phase is the coarse session status.
type Phase int

const (
	// PhaseUnknown is the state before storage has been consulted.
	PhaseUnknown Phase = iota
	PhaseLoading
	PhaseAuthenticated
	PhaseAnonymous
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// View selects what a protected screen may render.
type View int

const (
	ViewLoading View = iota
	ViewAnonymous
	ViewProtected
)

// ReauthMessage is shown after the server rejects a stored token.
const ReauthMessage = "your session has expired, please sign in again"

const defaultAuthError = "authentication failed"

// State is the client session. Identity and Token are set only in
// PhaseAuthenticated.
type State struct {
	Phase      Phase
	Identity   *domain.PublicIdentity
	Token      string
	Submitting bool
	// Err is a user-facing message that stays until dismissed.
	Err            string
	ReauthRequired bool
}

// Authenticated reports whether protected calls may carry a token.
func (s State) Authenticated() bool {
	return s.Phase == PhaseAuthenticated
}

// View gates navigation: nothing protected renders before storage is read.
func (s State) View() View {
	switch s.Phase {
	case PhaseAuthenticated:
		return ViewProtected
	case PhaseAnonymous:
		return ViewAnonymous
	default:
		return ViewLoading
	}
}

// Event is the closed set of session transitions.
type Event interface {
	sessionEvent()
}

// BootStarted begins reading durable storage.
type BootStarted struct{}

// StorageRestored carries a stored token and identity snapshot.
type StorageRestored struct {
	Token    string
	Identity domain.PublicIdentity
}

// StorageEmpty means nothing usable was stored.
type StorageEmpty struct{}

// AuthStarted marks a login or registration call in flight.
type AuthStarted struct{}

type AuthSucceeded struct {
	Token    string
	Identity domain.PublicIdentity
}

type AuthFailed struct {
	Message string
}

type LoggedOut struct{}

type ErrorDismissed struct{}

// SessionRejected means the server refused the stored token.
type SessionRejected struct{}

func (BootStarted) sessionEvent()     {}
func (StorageRestored) sessionEvent() {}
func (StorageEmpty) sessionEvent()    {}
func (AuthStarted) sessionEvent()     {}
func (AuthSucceeded) sessionEvent()   {}
func (AuthFailed) sessionEvent()      {}
func (LoggedOut) sessionEvent()       {}
func (ErrorDismissed) sessionEvent()  {}
func (SessionRejected) sessionEvent() {}

// Reduce returns the state after e. Events that do not apply to the current
// phase leave the state unchanged.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case BootStarted:
		if s.Phase == PhaseUnknown {
			s.Phase = PhaseLoading
		}
	case StorageRestored:
		if s.Phase != PhaseLoading {
			break
		}
		// A pair missing either half cannot authorize anything.
		if ev.Token == "" || ev.Identity.ID == "" {
			s = State{Phase: PhaseAnonymous}
			break
		}
		identity := ev.Identity
		s = State{Phase: PhaseAuthenticated, Identity: &identity, Token: ev.Token}
	case StorageEmpty:
		if s.Phase == PhaseLoading {
			s = State{Phase: PhaseAnonymous}
		}
	case AuthStarted:
		if s.Phase == PhaseAnonymous && !s.Submitting {
			s.Submitting = true
			s.Err = ""
		}
	case AuthSucceeded:
		if s.Submitting && ev.Token != "" {
			identity := ev.Identity
			s = State{Phase: PhaseAuthenticated, Identity: &identity, Token: ev.Token}
		}
	case AuthFailed:
		if s.Submitting {
			msg := ev.Message
			if msg == "" {
				msg = defaultAuthError
			}
			s = State{Phase: PhaseAnonymous, Err: msg, ReauthRequired: s.ReauthRequired}
		}
	case LoggedOut:
		if s.Phase == PhaseAuthenticated {
			s = State{Phase: PhaseAnonymous}
		}
	case ErrorDismissed:
		s.Err = ""
		s.ReauthRequired = false
	case SessionRejected:
		if s.Phase == PhaseAuthenticated {
			s = State{Phase: PhaseAnonymous, Err: ReauthMessage, ReauthRequired: true}
		}
	}
	return s
}
