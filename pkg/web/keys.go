package web

import "context"

type requestIDKey struct{}
type sessionUserKey struct{}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and a boolean indicating whether it was found.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}

// WithSessionUser adds the acting username to the context.
func WithSessionUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, sessionUserKey{}, username)
}

// GetSessionUser retrieves the acting username from the context.
// Returns the username and a boolean indicating whether it was found.
func GetSessionUser(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(sessionUserKey{}).(string)
	return username, ok
}
