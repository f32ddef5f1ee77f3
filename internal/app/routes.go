package app

import (
	"net/url"

	"github.com/dkeye/pitchcall/internal/domain"
)

const (
	EntryRoute     = "/call"
	HomeRoute      = "/home"
	DashboardRoute = "/dashboard"
	ResultRoute    = "/analysis-result"
)

// ResolvedRoute points the routing layer at the detail view for a finished analysis.
func ResolvedRoute(room domain.RoomID, res domain.AnalysisResult) domain.Route {
	return domain.Route{
		Target:   ResultRoute + "?" + url.Values{"room": {string(room)}}.Encode(),
		ResultID: res.ID,
		Actions:  []domain.RecoveryAction{domain.ActionViewResult, domain.ActionRetry, domain.ActionDashboard},
	}
}

// FailureRoute gives every non-success outcome a message and a forward action.
func FailureRoute(reason domain.CallStateReason) domain.Route {
	switch reason {
	case domain.CallReasonIdentityMissing:
		return domain.Route{
			Target:  HomeRoute,
			Message: "Please sign in to join the call",
			Actions: []domain.RecoveryAction{domain.ActionHome},
		}
	case domain.CallReasonProvisioningFailed, domain.CallReasonConnectFailed:
		return domain.Route{
			Message: "Failed to connect to the call. Please try again.",
			Actions: []domain.RecoveryAction{domain.ActionRetry, domain.ActionDashboard},
		}
	case domain.CallReasonAnalysisTimedOut:
		return domain.Route{
			Message: "Analysis timed out. Please try again.",
			Actions: []domain.RecoveryAction{domain.ActionRetry, domain.ActionDashboard},
		}
	case domain.CallReasonAnalysisUnreachable:
		return domain.Route{
			Message: "Failed to get analysis results. Please try again.",
			Actions: []domain.RecoveryAction{domain.ActionRetry, domain.ActionDashboard},
		}
	case domain.CallReasonUnexpectedDisconnect:
		return domain.Route{
			Target:  EntryRoute,
			Message: "The call was disconnected.",
			Actions: []domain.RecoveryAction{domain.ActionRetry},
		}
	default:
		return domain.Route{
			Target:  EntryRoute,
			Actions: []domain.RecoveryAction{domain.ActionRetry, domain.ActionHome},
		}
	}
}
