package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	XUserNameHeader = "X-User-Name"
	XUserRoleHeader = "X-User-Role"
)

type Role string

const (
	RoleReader    Role = "reader"
	RoleLibrarian Role = "librarian"
	RoleAdmin     Role = "admin"
)

// Operation names a public operation of the service. The policy table
// below is the only place role gating happens; the services themselves
// are role-agnostic.
type Operation string

const (
	OpManageReaders Operation = "manage-readers"
	OpManageBooks   Operation = "manage-books"
	OpBrowseCatalog Operation = "browse-catalog"
	OpCreateOrder   Operation = "create-order"
	OpIssueOrder    Operation = "issue-order"
	OpManageLoans   Operation = "manage-loans"
	OpViewReports   Operation = "view-reports"
)

var policy = map[Operation][]Role{
	OpManageReaders: {RoleLibrarian, RoleAdmin},
	OpManageBooks:   {RoleLibrarian, RoleAdmin},
	OpBrowseCatalog: {RoleReader, RoleLibrarian, RoleAdmin},
	OpCreateOrder:   {RoleReader, RoleLibrarian, RoleAdmin},
	OpIssueOrder:    {RoleLibrarian, RoleAdmin},
	OpManageLoans:   {RoleLibrarian, RoleAdmin},
	OpViewReports:   {RoleLibrarian, RoleAdmin},
}

func Allowed(role Role, op Operation) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Require gates a route on the policy table using the X-User-Role header.
func Require(op Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := Role(c.Request().Header.Get(XUserRoleHeader))
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "user role is empty")
			}
			if !Allowed(role, op) {
				return echo.NewHTTPError(http.StatusForbidden, "operation not allowed for role")
			}
			return next(c)
		}
	}
}
