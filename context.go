package goSession

import "context"

type managerContextKey struct{}

// WithManager attaches m to ctx so request-scoped code can reach the shared
// instance without a package-level variable.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerContextKey{}, m)
}

// FromContext returns the Manager attached by [WithManager].
func FromContext(ctx context.Context) (*Manager, bool) {
	if ctx == nil {
		return nil, false
	}

	m, ok := ctx.Value(managerContextKey{}).(*Manager)
	return m, ok && m != nil
}
