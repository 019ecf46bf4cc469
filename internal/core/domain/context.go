package domain

import "context"

type contextKey int

const (
	principalKey contextKey = iota
	requestMetaKey
)

// RequestMeta carries transport-level facts the audit trail records.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// WithPrincipal returns a context carrying the resolved principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal resolved for this request.
// The second return is false when no authentication layer ran.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// WithRequestMeta returns a context carrying transport metadata.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, meta)
}

// RequestMetaFromContext extracts transport metadata, zero value if absent.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey).(RequestMeta)
	return meta
}
