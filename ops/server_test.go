package ops

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devskill-org/pownet-sim/simulate"
)

func TestNewProgressServerDisabledWhenPortNonPositive(t *testing.T) {
	if NewProgressServer(0, 3) != nil {
		t.Error("expected nil ProgressServer for port 0")
	}
	if NewProgressServer(-1, 3) != nil {
		t.Error("expected nil ProgressServer for negative port")
	}
}

func TestNilProgressServerMethodsAreNoops(t *testing.T) {
	var ps *ProgressServer
	if err := ps.Start(); err != nil {
		t.Errorf("nil Start should be a no-op, got %v", err)
	}
	if err := ps.Stop(nil); err != nil {
		t.Errorf("nil Stop should be a no-op, got %v", err)
	}
	ps.Broadcast(simulate.ProgressEvent{Window: 1}) // must not panic
}

func TestStatusHandlerReflectsLastBroadcast(t *testing.T) {
	ps := NewProgressServer(18099, 5)
	ps.Broadcast(simulate.ProgressEvent{Window: 2, Objective: 123.5, Feasible: true})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	ps.statusHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"window":2`) {
		t.Errorf("expected status body to reflect last broadcast window, got %s", body)
	}
}

func TestReadyHandlerBeforeFirstWindow(t *testing.T) {
	ps := NewProgressServer(18100, 5)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr := httptest.NewRecorder()
	ps.readyHandler(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before any window completes, got %d", rr.Code)
	}
}
