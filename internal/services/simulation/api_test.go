package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/LeonardoBeccarini/legray/internal/metrics"
	"github.com/LeonardoBeccarini/legray/internal/model/messages"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeYields struct {
	field          string
	minutes, limit int
	err            error
}

func (f *fakeYields) LatestYields(_ context.Context, fieldID string, minutes, limit int) ([]messages.YieldEvent, error) {
	f.field, f.minutes, f.limit = fieldID, minutes, limit
	if f.err != nil {
		return nil, f.err
	}
	return []messages.YieldEvent{{RunID: "r", FieldID: fieldID, Date: "2001-06-03", Yield: 2.1, CN: 1}}, nil
}

func do(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func TestAPI_Simulate(t *testing.T) {
	m := metrics.New()
	r := NewRouter(RouterConfig{Runner: NewRunner(RunnerConfig{Metrics: m, NewID: fixedID}), Metrics: m})

	rec, resp := do(t, r, http.MethodPost, "/v1/simulations?trace=true", messages.SimulationRequest{
		FieldID:      "f1",
		Soil:         "sand",
		Weather:      weather(t, "2001-06-01", 6, 20, 20, 10),
		CuttingDates: []string{"2001-06-03", "2001-06-05", "2002-01-01"},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	raw, _ := json.Marshal(resp.Data)
	var out SimulationResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.RunID != "run1" || out.PAWC != 80 || out.Window != "inclusive" {
		t.Fatalf("response = %+v", out)
	}
	if len(out.Yields) != 2 || out.Yields[1].CN != 2 || len(out.Windows) != 2 {
		t.Fatalf("yields = %+v", out.Yields)
	}
	if len(out.Unmatched) != 1 || out.Unmatched[0] != "2002-01-01" {
		t.Fatalf("unmatched = %v", out.Unmatched)
	}
	if len(out.Seasons) != 1 || out.Seasons[0].Year != 2001 || out.Seasons[0].Cuts != 2 {
		t.Fatalf("seasons = %+v", out.Seasons)
	}
	if len(out.Days) != 6 {
		t.Fatalf("trace days = %d", len(out.Days))
	}

	mrec, _ := do(t, r, http.MethodGet, "/metrics", nil, nil)
	if mrec.Code != http.StatusOK || !strings.Contains(mrec.Body.String(), `legray_runs_total{outcome="ok"} 1`) {
		t.Fatalf("metrics = %d %s", mrec.Code, mrec.Body.String())
	}
}

func TestAPI_SimulateBadRequests(t *testing.T) {
	r := NewRouter(RouterConfig{Runner: NewRunner(RunnerConfig{NewID: fixedID})})

	if rec, _ := do(t, r, http.MethodPost, "/v1/simulations", "{not json", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed JSON status = %d", rec.Code)
	}
	w := weather(t, "2001-06-01", 3, 20, 20, 1)
	w.Date[2] = "2001-06-01"
	rec, resp := do(t, r, http.MethodPost, "/v1/simulations", messages.SimulationRequest{
		FieldID: "f1", Weather: w, CuttingDates: []string{"2001-06-02"},
	}, nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(resp.Message, "not strictly ascending") {
		t.Fatalf("unordered status = %d message=%q", rec.Code, resp.Message)
	}
}

func TestAPI_JWT(t *testing.T) {
	secret := "s3cret"
	r := NewRouter(RouterConfig{Runner: NewRunner(RunnerConfig{NewID: fixedID}), JWTSecret: secret, Yields: &fakeYields{}})

	if rec, _ := do(t, r, http.MethodGet, "/v1/yields/latest", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodGet, "/v1/yields/latest", nil, map[string]string{"Authorization": "Token x"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad scheme status = %d", rec.Code)
	}

	sign := func(key string, exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agronomist",
			ExpiresAt: jwt.NewNumericDate(exp),
		}})
		s, err := tok.SignedString([]byte(key))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	if rec, _ := do(t, r, http.MethodGet, "/v1/yields/latest", nil, map[string]string{"Authorization": "Bearer " + sign("other", time.Now().Add(time.Hour))}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodGet, "/v1/yields/latest", nil, map[string]string{"Authorization": "Bearer " + sign(secret, time.Now().Add(-time.Hour))}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodGet, "/v1/yields/latest", nil, map[string]string{"Authorization": "Bearer " + sign(secret, time.Now().Add(time.Hour))}); rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", rec.Code)
	}
	if rec, _ := do(t, r, http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("health must not require a token, status = %d", rec.Code)
	}
}

func TestAPI_LatestYields(t *testing.T) {
	ys := &fakeYields{}
	r := NewRouter(RouterConfig{Runner: NewRunner(RunnerConfig{}), Yields: ys})

	rec, resp := do(t, r, http.MethodGet, "/v1/yields/latest?field_id=f9&limit=9999&minutes=abc", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ys.field != "f9" || ys.limit != 500 || ys.minutes != 0 {
		t.Fatalf("query = %+v", ys)
	}
	if list, ok := resp.Data.([]any); !ok || len(list) != 1 {
		t.Fatalf("data = %#v", resp.Data)
	}

	ys.err = errors.New("influx down")
	rec, _ = do(t, r, http.MethodGet, "/v1/yields/latest", nil, nil)
	if rec.Code != http.StatusInternalServerError || rec.Header().Get("X-Error") != "influx-query-error" {
		t.Fatalf("status = %d", rec.Code)
	}

	r = NewRouter(RouterConfig{Runner: NewRunner(RunnerConfig{})})
	if rec, _ := do(t, r, http.MethodGet, "/v1/yields/latest", nil, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no store status = %d", rec.Code)
	}
}

func TestAPI_Health(t *testing.T) {
	h := NewHealth(time.Second)
	h.Add("mqtt", func(context.Context) error { return nil })
	h.Add("influx", func(context.Context) error { return errors.New("unreachable") })
	r := NewRouter(RouterConfig{Runner: NewRunner(RunnerConfig{}), Health: h})

	rec, _ := do(t, r, http.MethodGet, "/healthz", nil, nil)
	var st HealthStatus
	_ = json.Unmarshal(rec.Body.Bytes(), &st)
	if rec.Code != http.StatusOK || st.Status != "degraded" || st.Deps["mqtt"] != "ok" || st.Deps["influx"] != "unreachable" {
		t.Fatalf("healthz = %d %+v", rec.Code, st)
	}
	if rec, _ := do(t, r, http.MethodGet, "/readyz", nil, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d", rec.Code)
	}

	h.Add("influx", func(context.Context) error { return nil })
	if rec, _ := do(t, r, http.MethodGet, "/readyz", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz after recovery = %d", rec.Code)
	}
}
