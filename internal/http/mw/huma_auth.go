package mw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// SecurityScheme is the name of the security scheme used in OpenAPI.
const SecurityScheme = "bearerAuth"

// HumaAuth returns a Huma middleware enforcing static bearer-token auth.
// It checks ctx.Operation().Security to determine whether the operation
// requires authentication; public and hidden probe routes pass through.
func HumaAuth(api huma.API, token string) func(ctx huma.Context, next func(huma.Context)) {
	expected := []byte(token)

	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op == nil || !operationRequiresAuth(op) {
			next(ctx)
			return
		}

		header := ctx.Header("Authorization")
		if header == "" {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing bearer token")
			return
		}

		scheme, credential, found := strings.Cut(header, " ")
		if !found || strings.TrimSpace(credential) == "" {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		if !strings.EqualFold(scheme, "Bearer") {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(credential)), expected) != 1 {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid bearer token")
			return
		}

		next(ctx)
	}
}

// operationRequiresAuth checks if the operation has bearerAuth in its
// security requirements.
func operationRequiresAuth(op *huma.Operation) bool {
	for _, secReq := range op.Security {
		if _, ok := secReq[SecurityScheme]; ok {
			return true
		}
	}
	return false
}
