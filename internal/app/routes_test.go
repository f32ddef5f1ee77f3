package app

import (
	"testing"

	"github.com/dkeye/pitchcall/internal/domain"
)

func TestResolvedRoute(t *testing.T) {
	t.Parallel()

	r := ResolvedRoute("room-user-42-20240501-1005", domain.AnalysisResult{ID: "res-1"})
	if r.Target != "/analysis-result?room=room-user-42-20240501-1005" {
		t.Fatalf("unexpected target: %q", r.Target)
	}
	if r.ResultID != "res-1" {
		t.Fatalf("unexpected result id: %q", r.ResultID)
	}
}

func TestEveryFailureHasAForwardAction(t *testing.T) {
	t.Parallel()

	reasons := []domain.CallStateReason{
		domain.CallReasonIdentityMissing,
		domain.CallReasonProvisioningFailed,
		domain.CallReasonConnectFailed,
		domain.CallReasonAnalysisTimedOut,
		domain.CallReasonAnalysisUnreachable,
		domain.CallReasonUnexpectedDisconnect,
		domain.CallReasonTornDown,
	}
	for _, reason := range reasons {
		r := FailureRoute(reason)
		if len(r.Actions) == 0 {
			t.Fatalf("%s: no recovery action", reason)
		}
	}
	if FailureRoute(domain.CallReasonAnalysisTimedOut).Message != "Analysis timed out. Please try again." {
		t.Fatalf("unexpected timeout message")
	}
	if FailureRoute(domain.CallReasonUnexpectedDisconnect).Target != EntryRoute {
		t.Fatalf("disconnect must route to the entry point")
	}
}
