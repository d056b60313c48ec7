package board

import "context"

// Command sources recorded in the history.
const (
	SourceAPI     = "api"
	SourceLua     = "lua"
	SourceStartup = "startup"
	SourceUnknown = "unknown"
)

type sourceKey struct{}

// WithSource tags ctx with the origin of the commands run under it.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the origin stored by WithSource.
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceUnknown
}
