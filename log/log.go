// Package log contains zap helpers shared by the replication components.
package log

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ShortString is implemented by identifiers that have a compact log form.
type ShortString interface {
	ShortString() string
}

// ZShortStringer is a zap field for a value implementing ShortString.
func ZShortStringer(name string, val ShortString) zap.Field {
	return zap.Stringer(name, shortStringAdapter{val: val})
}

type shortStringAdapter struct {
	val ShortString
}

func (a shortStringAdapter) String() string {
	return a.val.ShortString()
}

// ShortHash returns a short form of a hash string suitable for logging.
func ShortHash(h string) string {
	if len(h) <= 10 {
		return h
	}
	return h[:10]
}

// ZHash is a zap field for an entry hash.
func ZHash(name, h string) zap.Field {
	return zap.String(name, ShortHash(h))
}

// ZHashes logs up to a few hashes from the list.
func ZHashes(name string, hs []string) zap.Field {
	return zap.Array(name, hashList(hs))
}

type hashList []string

func (l hashList) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for n, h := range l {
		if n == 3 {
			enc.AppendString("...")
			break
		}
		enc.AppendString(ShortHash(h))
	}
	return nil
}

type ctxKey int

const requestIDKey ctxKey = iota

// WithNewRequestID returns a context which carries a new random request ID.
// A request ID tracks a single inbound message through all the components it
// passes.
func WithNewRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestIDKey, uuid.NewString())
}

// ExtractRequestID returns the request ID stored in the context, if any.
func ExtractRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// ZContext returns a zap field with the request ID from the context.
func ZContext(ctx context.Context) zap.Field {
	if id, ok := ExtractRequestID(ctx); ok {
		return zap.String("request_id", id)
	}
	return zap.Skip()
}
