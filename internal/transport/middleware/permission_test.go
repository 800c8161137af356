package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/krwhynot/pantry-crm/internal/auth"
	"github.com/krwhynot/pantry-crm/internal/rbac"
	"github.com/krwhynot/pantry-crm/internal/transport/middleware"
)

func TestPermissionMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Permission Middleware Suite")
}

var _ = Describe("RequirePermission", func() {
	var next http.Handler

	BeforeEach(func() {
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	serve := func(gate func(http.Handler) http.Handler, user *auth.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/products/categories/3", nil)
		if user != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		gate(next).ServeHTTP(rec, req)
		return rec
	}

	Context("without an authenticated user", func() {
		It("responds unauthorized", func() {
			rec := serve(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionDelete), nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("when the route demands the delete action", func() {
		It("blocks a user who only holds write", func() {
			user := &auth.User{
				ID:          7,
				Permissions: []string{"products:read", "products:write"},
			}

			rec := serve(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionDelete), user)

			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("passes a user who holds delete", func() {
			user := &auth.User{
				ID:          7,
				Permissions: []string{"products:delete"},
			}

			rec := serve(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionDelete), user)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})

		It("passes an admin through the wildcard", func() {
			user := &auth.User{
				ID:          1,
				RoleLevel:   auth.LevelAdmin,
				Permissions: []string{auth.PermissionWildcard},
			}

			rec := serve(middleware.RequirePermission(rbac.ResourceProducts, rbac.ActionDelete), user)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})
	})

	Describe("RequireLevel", func() {
		It("blocks a user below the minimum level", func() {
			user := &auth.User{ID: 9, RoleLevel: auth.LevelSalesRep}

			rec := serve(middleware.RequireLevel(auth.LevelManager), user)

			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("passes a user at the minimum level", func() {
			user := &auth.User{ID: 9, RoleLevel: auth.LevelManager}

			rec := serve(middleware.RequireLevel(auth.LevelManager), user)

			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})
	})
})
