package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/bibliotec/catalog-service/pkg/auth"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		role auth.Role
		op   auth.Operation
		want bool
	}{
		{"reader can order", auth.RoleReader, auth.OpCreateOrder, true},
		{"reader cannot issue", auth.RoleReader, auth.OpIssueOrder, false},
		{"reader cannot manage loans", auth.RoleReader, auth.OpManageLoans, false},
		{"librarian can issue", auth.RoleLibrarian, auth.OpIssueOrder, true},
		{"admin can manage books", auth.RoleAdmin, auth.OpManageBooks, true},
		{"unknown role denied", auth.Role("guest"), auth.OpBrowseCatalog, false},
		{"unknown operation denied", auth.RoleAdmin, auth.Operation("drop-tables"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, auth.Allowed(tt.role, tt.op))
		})
	}
}

func TestRequire(t *testing.T) {
	e := echo.New()
	e.GET("/loans", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}, auth.Require(auth.OpManageLoans))

	tests := []struct {
		name         string
		role         string
		expectedCode int
	}{
		{"librarian allowed", "librarian", http.StatusOK},
		{"reader forbidden", "reader", http.StatusForbidden},
		{"missing role unauthorized", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/loans", http.NoBody)
			if tt.role != "" {
				r.Header.Set(auth.XUserRoleHeader, tt.role)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)
			require.Equal(t, tt.expectedCode, w.Code)
		})
	}
}
