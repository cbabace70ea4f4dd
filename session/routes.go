package session

import "github.com/scothinks/bioverify/claims"

// Landing routes, one per role, plus the anonymous fallback.
const (
	RouteLogin           = "/login"
	RouteGlobalAdminHome = "/dashboard/global-admin"
	RouteTenantAdminHome = "/dashboard/tenant-admin"
	RouteAgentHome       = "/dashboard/agent"
	RouteReviewerHome    = "/dashboard/reviewer"
	RouteSelfServiceHome = "/dashboard/user"
)

// LandingRoute maps a role to its post-login destination. The mapping is
// total: an unknown or absent role lands on the login route, so navigation
// can never fail to resolve.
func LandingRoute(role claims.Role) string {
	switch role {
	case claims.RoleGlobalSuperAdmin:
		return RouteGlobalAdminHome
	case claims.RoleTenantAdmin:
		return RouteTenantAdminHome
	case claims.RoleAgent:
		return RouteAgentHome
	case claims.RoleReviewer:
		return RouteReviewerHome
	case claims.RoleSelfServiceUser:
		return RouteSelfServiceHome
	default:
		return RouteLogin
	}
}
