package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"studioflow/internal/jobs"
	"studioflow/internal/logging"
	"studioflow/internal/services"
)

type actorKey struct{}

func withActor(ctx context.Context, actor jobs.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// actorFrom returns the authenticated worker. It is only valid behind identity.
func actorFrom(ctx context.Context) jobs.Actor {
	actor, _ := ctx.Value(actorKey{}).(jobs.Actor)
	return actor
}

// requestLogger logs one line per request and carries chi's request id into
// the services context so downstream logs share the correlation id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := services.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logging.WithContext(ctx, logger).Info("http request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Int("bytes", ww.BytesWritten()),
				logging.Duration("duration", time.Since(start)),
			)
		})
	}
}

// identity verifies the bearer token and resolves its subject to an active
// worker. The role comes from the store on every request.
func identity(resolver ActorResolver, secret string, now func() time.Time, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeUnauthorized(w, logger, "missing authorization")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeUnauthorized(w, logger, "invalid authorization")
				return
			}
			claims, err := VerifyToken(secret, strings.TrimSpace(parts[1]), now())
			if err != nil {
				writeUnauthorized(w, logger, err.Error())
				return
			}
			actor, err := resolver.ResolveActor(r.Context(), claims.Sub)
			if err != nil {
				if services.KindOf(err) == services.KindAuthorization {
					writeUnauthorized(w, logger, "unknown or inactive worker")
					return
				}
				writeError(w, r, logger, err)
				return
			}
			ctx := services.WithActorID(withActor(r.Context(), actor), actor.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
