package middleware

// ContextKey is a dedicated type for request context keys to avoid collisions.
type ContextKey string

const (
	UserIDCtxKey    ContextKey = "userID"
	UserRoleCtxKey  ContextKey = "userRole"
	RequestIDCtxKey ContextKey = "requestID"
)
