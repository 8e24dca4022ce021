// File: internal/common/context_keys.go
package common

const (
	// ActorIDHeader is the header carrying the opaque actor identifier.
	// The upstream gateway authenticates the caller; this service only
	// records the identity for audit fields.
	ActorIDHeader = "X-Actor-ID"
	// ActorIDKey is the context key for storing the acting user's ID.
	ActorIDKey = "actorID"
)
