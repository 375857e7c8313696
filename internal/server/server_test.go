package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/spi2wb/internal/bench"
	"github.com/danmuck/spi2wb/internal/config"
	"github.com/danmuck/spi2wb/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, factory bench.Factory) *Server {
	t.Helper()
	runner, err := bench.NewRunner(config.Builtin(), factory)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	return New("spi2wb-test", ":0", runner, Options{})
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestHealthAndScenarios(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)

	rr := do(s, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("health status got=%d", rr.Code)
	}

	rr = do(s, http.MethodGet, "/scenarios")
	if rr.Code != http.StatusOK {
		t.Fatalf("scenarios status got=%d body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Scenarios []ScenarioInfo `json:"scenarios"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Scenarios) != len(config.Builtin().Scenarios) {
		t.Fatalf("scenarios got=%d", len(body.Scenarios))
	}
	if first := body.Scenarios[0]; first.Name != "scenario-a" || first.Steps != 2 || first.Mode == "" {
		t.Fatalf("first scenario got=%+v", first)
	}
}

func TestRunScenarioRoute(t *testing.T) {
	testlog.Start(t)
	s := newTestServer(t, nil)

	rr := do(s, http.MethodGet, "/scenarios/scenario-b/report")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("report before run got=%d", rr.Code)
	}

	rr = do(s, http.MethodPost, "/scenarios/scenario-b/run")
	if rr.Code != http.StatusOK {
		t.Fatalf("run status got=%d body=%s", rr.Code, rr.Body.String())
	}
	var rep bench.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rep.Passed() || len(rep.Observed) != 6 {
		t.Fatalf("report got=%+v", rep)
	}

	rr = do(s, http.MethodGet, "/scenarios/scenario-b/report")
	if rr.Code != http.StatusOK {
		t.Fatalf("report after run got=%d", rr.Code)
	}

	rr = do(s, http.MethodPost, "/scenarios/missing/run")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown scenario got=%d", rr.Code)
	}

	rr = do(s, http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status got=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "spi2wb_bench_scenarios_total") {
		t.Fatalf("metrics missing scenario counter")
	}
}

func TestRunRefusesWhileBusy(t *testing.T) {
	testlog.Start(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	factory := func(ctx context.Context, settings config.Settings) (*bench.Bench, io.Closer, error) {
		close(entered)
		<-release
		return bench.SimFactory(ctx, settings)
	}
	s := newTestServer(t, factory)

	done := make(chan int, 1)
	go func() {
		done <- do(s, http.MethodPost, "/scenarios/scenario-a/run").Code
	}()
	<-entered

	if rr := do(s, http.MethodPost, "/scenarios/scenario-c/run"); rr.Code != http.StatusConflict {
		t.Fatalf("concurrent run got=%d want=%d", rr.Code, http.StatusConflict)
	}
	close(release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first run got=%d", code)
	}
}

func TestRunRouteRequiresToken(t *testing.T) {
	testlog.Start(t)
	runner, err := bench.NewRunner(config.Builtin(), nil)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	s := New("spi2wb-test", ":0", runner, Options{Token: "bench-token"})

	if rr := do(s, http.MethodPost, "/scenarios/scenario-a/run"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("run without token got=%d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/scenarios/scenario-a/run", nil)
	req.Header.Set("Authorization", "Bearer bench-token")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("run with token got=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(s, http.MethodGet, "/scenarios"); rr.Code != http.StatusOK {
		t.Fatalf("listing should stay open, got=%d", rr.Code)
	}
}
