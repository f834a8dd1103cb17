package events

import (
	"time"

	"github.com/spec-kit/blog-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIdentityRegistered  EventType = "identity_registered"
	EventLoginSucceeded      EventType = "login_succeeded"
	EventLoginFailed         EventType = "login_failed"
	EventPasswordChanged     EventType = "password_changed"
	EventIdentityDeactivated EventType = "identity_deactivated"
	EventPostDeleted         EventType = "post_deleted"
	EventCommentDeleted      EventType = "comment_deleted"
	EventCategoryChanged     EventType = "category_changed"
)

// Actor identifies who caused an event. ID is empty for anonymous callers.
type Actor struct {
	ID   string      `json:"id,omitempty"`
	Role domain.Role `json:"role,omitempty"`
}

// ActorOf builds an Actor from an identity, which may be nil.
func ActorOf(identity *domain.Identity) Actor {
	if identity == nil {
		return Actor{}
	}
	return Actor{ID: identity.ID, Role: identity.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// LoginFailedPayload never carries the attempted password.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// ResourceDeletedPayload describes a post or comment removal. ByOwner is false
// when an admin removed someone else's content.
type ResourceDeletedPayload struct {
	OwnerID string `json:"owner_id"`
	ByOwner bool   `json:"by_owner"`
}

// CategoryChangedPayload payload.
type CategoryChangedPayload struct {
	Action string `json:"action"`
	Name   string `json:"name"`
}
