package ports

import "context"

// HealthChecker reports the liveness of a backing dependency.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
