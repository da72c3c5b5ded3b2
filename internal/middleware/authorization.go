// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/pkg/constants"
)

const bearerPrefix = "bearer "

// PrincipalParser resolves the principal of a bearer token.
type PrincipalParser interface {
	ParsePrincipal(ctx context.Context, token string, logger *slog.Logger) (string, error)
}

// AuthorizationMiddleware requires a valid bearer token and stores the
// authorization header and its principal in the request context.
func AuthorizationMiddleware(parser PrincipalParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authorization := r.Header.Get(constants.AuthorizationHeader)
			if len(authorization) <= len(bearerPrefix) || !strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			token := strings.TrimSpace(authorization[len(bearerPrefix):])

			principal, err := parser.ParsePrincipal(ctx, token, slog.Default())
			if err != nil {
				slog.InfoContext(ctx, "request not authorized", logging.ErrKey, err)
				writeUnauthorized(w, "invalid bearer token")
				return
			}

			ctx = context.WithValue(ctx, constants.AuthorizationContextID, authorization)
			ctx = context.WithValue(ctx, constants.PrincipalContextID, principal)
			ctx = logging.AppendCtx(ctx, slog.String("principal", principal))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the principal stored by AuthorizationMiddleware.
func PrincipalFromContext(ctx context.Context) string {
	principal, _ := ctx.Value(constants.PrincipalContextID).(string)
	return principal
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    strconv.Itoa(http.StatusUnauthorized),
		"message": message,
	})
}
