package domain

import "context"

// Verifier resolves the identity behind the first message of a connection.
// The returned address is normalized. Failures are not retried.
type Verifier interface {
	Verify(ctx context.Context, message []byte) (string, error)
}
