package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront/api/responses"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type readySignal interface {
	Ready() <-chan struct{}
}

// AwaitReady holds a request until startup reconciliation has finished.
// Writes accepted earlier would be overwritten when the server state is
// adopted. A request still waiting after timeout gets a retryable 503.
func AwaitReady(src readySignal, timeout time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ready := src.Ready()
			select {
			case <-ready:
				next.ServeHTTP(w, r)
				return
			default:
			}

			ctx := r.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			select {
			case <-ready:
				next.ServeHTTP(w, r)
			case <-ctx.Done():
				err := pkgerrors.New(pkgerrors.CodeDependency, "session is still syncing with the storefront api")
				responses.WriteError(r.Context(), logg, w, err)
			}
		})
	}
}
