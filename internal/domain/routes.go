/**
 * @description
 * Route identifiers the host system attaches to intercepted requests.
 */
package domain

// RouteID names a host route. Interception matches on identifiers supplied
// by the host rather than on path substrings.
type RouteID string

const (
	RouteProfileView     RouteID = "profile.view"
	RouteProfileEdit     RouteID = "profile.edit"
	RouteConfirmPage     RouteID = "confirm.page"
	RoutePaymentGateway  RouteID = "payment.gateway"
	RouteLogin           RouteID = "auth.login"
	RouteLogout          RouteID = "auth.logout"
	RouteWalletTopUp     RouteID = "wallet.topup"
	RouteRequestKindAJAX RouteID = "request.ajax"
	RouteRequestKindCLI  RouteID = "request.cli"
	RouteRequestKindWS   RouteID = "request.websocket"
)

// confirmationExemptRoutes must stay reachable while an account is still
// unconfirmed, otherwise the user can never complete payment.
var confirmationExemptRoutes = map[RouteID]bool{
	RouteProfileView:     true,
	RouteProfileEdit:     true,
	RouteConfirmPage:     true,
	RoutePaymentGateway:  true,
	RouteLogin:           true,
	RouteLogout:          true,
	RouteWalletTopUp:     true,
	RouteRequestKindAJAX: true,
	RouteRequestKindCLI:  true,
	RouteRequestKindWS:   true,
}

// RouteExemptFromRedirect reports whether a route is reachable without
// confirmation.
func RouteExemptFromRedirect(route RouteID) bool {
	return confirmationExemptRoutes[route]
}

// NonInteractiveRoute reports whether the route represents a background
// request (batch job, API call, websocket) that must never be redirected.
func NonInteractiveRoute(route RouteID) bool {
	switch route {
	case RouteRequestKindAJAX, RouteRequestKindCLI, RouteRequestKindWS:
		return true
	}
	return false
}
