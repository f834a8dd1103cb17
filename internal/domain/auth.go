package domain

// DecisionReason explains why a request was authenticated or rejected.
type DecisionReason string

const (
	ReasonNone         DecisionReason = ""
	ReasonNoToken      DecisionReason = "NO_TOKEN"
	ReasonInvalidToken DecisionReason = "INVALID_TOKEN"
	ReasonIdentityGone DecisionReason = "IDENTITY_GONE"
	ReasonForbidden    DecisionReason = "FORBIDDEN"
	ReasonInternal     DecisionReason = "INTERNAL"
)

// Decision is the per-request authentication/authorization outcome. It is
// computed fresh for every request and never stored.
type Decision struct {
	Identity *Identity
	Allowed  bool
	Reason   DecisionReason
}

// Allow builds an allowing decision for identity.
func Allow(identity *Identity) Decision {
	return Decision{Identity: identity, Allowed: true}
}

// Deny builds a rejecting decision. identity may be nil when the caller was
// never authenticated.
func Deny(identity *Identity, reason DecisionReason) Decision {
	return Decision{Identity: identity, Reason: reason}
}

// Unauthenticated reports whether the rejection maps to a 401.
func (d Decision) Unauthenticated() bool {
	switch d.Reason {
	case ReasonNoToken, ReasonInvalidToken, ReasonIdentityGone:
		return !d.Allowed
	}
	return false
}
