package handler

import (
	"net/http"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// authenticated resolves the api_key header to a principal and stores it in
// the request context.
func (h *Handler) authenticated(fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := h.Auth.Authenticate(r.Context(), r.Header.Get(APIKeyHeader))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		fn(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

func (h *Handler) role(role auth.Role, fn http.HandlerFunc) http.Handler {
	return h.authenticated(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFrom(r.Context())
		if p.Role != role {
			h.fail(w, r, auth.ErrForbidden)
			return
		}
		fn(w, r)
	})
}

// customer admits customer keys only. The customer ID is the key's subject.
func (h *Handler) customer(fn http.HandlerFunc) http.Handler {
	return h.role(auth.RoleCustomer, fn)
}

func (h *Handler) staff(fn http.HandlerFunc) http.Handler {
	return h.role(auth.RoleStaff, fn)
}

// customerID returns the subject of the authenticated customer key.
func customerID(r *http.Request) string {
	p, _ := auth.PrincipalFrom(r.Context())
	return p.SubjectID
}

// RateLimitKey buckets requests by principal, falling back to the client IP
// for unauthenticated requests.
func RateLimitKey(r *http.Request) string {
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		return "principal:" + p.ID
	}
	return "ip:" + httpmiddleware.ClientIP(r)
}
