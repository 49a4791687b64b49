package requestctx

import "context"

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyIdentity
)

// Identity is the authenticated caller as carried by a verified token.
// Only the email is trusted by the directory; permission levels are
// always re-resolved from the store.
type Identity struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(keyRequestID).(string)
	return requestID
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, identity)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(keyIdentity).(Identity)
	return identity, ok
}
