package main

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/logging"
	"github.com/Simplici0/costestimator/internal/metrics"
	"github.com/Simplici0/costestimator/internal/session"
	"github.com/Simplici0/costestimator/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWithCatalogFile(t, "")
}

func newTestServerWithCatalogFile(t *testing.T, catalogPath string) *httptest.Server {
	t.Helper()

	rules := catalog.Default()
	st := store.NewMemory()
	m := metrics.New()
	sess, err := session.New(session.Options{
		Catalog:          rules,
		Store:            st,
		Defaults:         estimate.StandardDefaults(),
		AutosaveDelay:    time.Hour,
		SearchMinChars:   2,
		SearchMaxResults: 10,
		Logger:           logging.Discard(),
		Metrics:          m,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	srv := &server{session: sess, store: st, metrics: m, logger: logging.Discard(), catalogPath: catalogPath}

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(func() {
		ts.Close()
		sess.Close()
	})
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	out, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, out
}

func decodeView(t *testing.T, body []byte) estimateView {
	t.Helper()
	var v estimateView
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode estimate view: %v\n%s", err, body)
	}
	return v
}

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	res, body := do(t, ts, http.MethodGet, "/healthz", "")
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), `"memory"`) {
		t.Fatalf("unexpected health response %d: %s", res.StatusCode, body)
	}
}

func TestPrice_ResolvesRule(t *testing.T) {
	ts := newTestServer(t)
	res, body := do(t, ts, http.MethodGet, "/price?rule=drywall_hang&quantity=320&unitPrice=1.25", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	var got priceResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	nearlyEqual(t, "materialCost", got.TotalMaterialCost, 172.50)
	nearlyEqual(t, "labor", got.Totals.LaborCost, 400)
	if len(got.Materials) != 2 {
		t.Fatalf("materials = %+v", got.Materials)
	}
}

func TestPrice_UnknownRuleIsZero(t *testing.T) {
	ts := newTestServer(t)
	res, body := do(t, ts, http.MethodGet, "/price?rule=nope&quantity=abc", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	var got priceResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Quantity != 0 || got.TotalMaterialCost != 0 || len(got.Materials) != 0 {
		t.Fatalf("expected unpriced response, got %+v", got)
	}
}

func TestCatalogSearch(t *testing.T) {
	ts := newTestServer(t)

	_, body := do(t, ts, http.MethodGet, "/catalog/search?q=p", "")
	if !strings.Contains(string(body), `"results":[]`) {
		t.Fatalf("short query should return no results: %s", body)
	}

	_, body = do(t, ts, http.MethodGet, "/catalog/search?q=paint", "")
	if !strings.Contains(string(body), "paint_interior") {
		t.Fatalf("expected paint_interior in %s", body)
	}

	res, _ := do(t, ts, http.MethodGet, "/catalog/rules/nope", "")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown rule status = %d", res.StatusCode)
	}
}

func TestEstimateFlow_PaintScenario(t *testing.T) {
	ts := newTestServer(t)

	res, body := do(t, ts, http.MethodGet, "/estimate", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	v := decodeView(t, body)
	if len(v.Estimate.Locations) != 1 || len(v.Issues) != 1 {
		t.Fatalf("expected one blank action with an issue: %+v", v)
	}

	res, body = do(t, ts, http.MethodPut, "/estimate/locations/1/actions/1",
		`{"actionId":"paint_interior","quantity":"100","unitPrice":"$2"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update action status = %d: %s", res.StatusCode, body)
	}
	v = decodeView(t, body)
	nearlyEqual(t, "grandTotal", v.Estimate.GrandTotal, 304.70)
	if got := v.Estimate.Locations[0].Actions[0].Unit; got != "Sq. Ft" {
		t.Fatalf("unit = %q", got)
	}
	if len(v.Issues) != 0 {
		t.Fatalf("unexpected issues %+v", v.Issues)
	}
	if v.Autosave.State != session.AutosaveSaving {
		t.Fatalf("autosave state = %q", v.Autosave.State)
	}

	_, body = do(t, ts, http.MethodPut, "/estimate/costs", `{"permitFees":"-50","contingencyPercent":20}`)
	v = decodeView(t, body)
	nearlyEqual(t, "permitFees", v.Estimate.PermitFees, 0)
	nearlyEqual(t, "grandTotal", v.Estimate.GrandTotal, 277*1.2)
}

const reloadedCatalog = `
categories:
  - key: painting
    name: Painting
    actions:
      - id: paint_interior
        name: Paint Interior Walls
        defaultUnit: Sq. Ft
        materials:
          - name: Paint
            unit: Gallons
            costPerUnit: 10
            quantity:
              op: ceil
              args:
                - op: div
                  args: [{op: quantity}, {op: const, value: 100}]
`

func TestCatalogReload_RepricesLiveEstimate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(reloadedCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	ts := newTestServerWithCatalogFile(t, path)

	do(t, ts, http.MethodPut, "/estimate/locations/1/actions/1",
		`{"actionId":"paint_interior","quantity":100,"unitPrice":2}`)

	res, body := do(t, ts, http.MethodPost, "/catalog/reload", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d: %s", res.StatusCode, body)
	}
	var out struct {
		Rules    int          `json:"rules"`
		Estimate estimateView `json:"estimate"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode reload: %v", err)
	}
	if out.Rules != 1 {
		t.Fatalf("rules = %d, want 1", out.Rules)
	}
	// 200 labor plus one 10.00 gallon, then 10% contingency.
	nearlyEqual(t, "grandTotal", out.Estimate.Estimate.GrandTotal, 231)

	res, _ = do(t, ts, http.MethodGet, "/catalog/rules/drywall_hang", "")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("drywall_hang after reload: status = %d, want 404", res.StatusCode)
	}

	if err := os.WriteFile(path, []byte("categories: [nope"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	res, _ = do(t, ts, http.MethodPost, "/catalog/reload", "")
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("bad catalog status = %d", res.StatusCode)
	}
	_, body = do(t, ts, http.MethodGet, "/estimate", "")
	nearlyEqual(t, "grandTotal after failed reload", decodeView(t, body).Estimate.GrandTotal, 231)
}

func TestEstimate_LocationErrors(t *testing.T) {
	ts := newTestServer(t)

	res, _ := do(t, ts, http.MethodDelete, "/estimate/locations/9", "")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing location status = %d", res.StatusCode)
	}
	res, _ = do(t, ts, http.MethodDelete, "/estimate/locations/abc", "")
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", res.StatusCode)
	}
	res, _ = do(t, ts, http.MethodPut, "/estimate/project", `{"projectName":`)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", res.StatusCode)
	}

	res, body := do(t, ts, http.MethodPost, "/estimate/locations", `{"name":"Kitchen"}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add location status = %d", res.StatusCode)
	}
	v := decodeView(t, body)
	if len(v.Estimate.Locations) != 2 || v.Estimate.Locations[1].ID != 2 {
		t.Fatalf("unexpected locations %+v", v.Estimate.Locations)
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, http.MethodPut, "/estimate/project", `{"projectName":"Smith Remodel"}`)

	res, body := do(t, ts, http.MethodGet, "/export/csv", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", res.StatusCode, body)
	}
	if got := res.Header.Get("Content-Disposition"); got != `attachment; filename="smith-remodel.csv"` {
		t.Fatalf("content disposition = %q", got)
	}
	if !bytes.HasPrefix(body, []byte("Location,Action,Quantity")) {
		t.Fatalf("unexpected csv: %s", body)
	}

	res, _ = do(t, ts, http.MethodGet, "/export/docx", "")
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown format status = %d", res.StatusCode)
	}

	do(t, ts, http.MethodDelete, "/estimate/locations/1", "")
	res, _ = do(t, ts, http.MethodGet, "/export/pdf", "")
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("empty export status = %d", res.StatusCode)
	}
}

func TestSavedEstimates(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, http.MethodPut, "/estimate/project", `{"projectName":"Smith Remodel"}`)

	res, body := do(t, ts, http.MethodPost, "/estimates", `{}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d: %s", res.StatusCode, body)
	}
	var saved struct {
		Saved store.Summary `json:"saved"`
	}
	if err := json.Unmarshal(body, &saved); err != nil {
		t.Fatalf("decode save: %v", err)
	}
	if !strings.HasPrefix(saved.Saved.ID, "estimate_") || saved.Saved.Name != "Smith Remodel" {
		t.Fatalf("unexpected summary %+v", saved.Saved)
	}

	_, body = do(t, ts, http.MethodGet, "/estimates", "")
	if !strings.Contains(string(body), saved.Saved.ID) {
		t.Fatalf("list missing saved estimate: %s", body)
	}

	do(t, ts, http.MethodPost, "/estimate/reset", "")
	res, body = do(t, ts, http.MethodPost, "/estimates/"+saved.Saved.ID+"/load", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("load status = %d", res.StatusCode)
	}
	if v := decodeView(t, body); v.Estimate.Project.Name != "Smith Remodel" || v.CurrentID != saved.Saved.ID {
		t.Fatalf("loaded view = %+v", v)
	}

	res, _ = do(t, ts, http.MethodDelete, "/estimates/"+saved.Saved.ID, "")
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", res.StatusCode)
	}
	res, body = do(t, ts, http.MethodPost, "/estimates/"+saved.Saved.ID+"/load", "")
	if res.StatusCode != http.StatusNotFound || !strings.Contains(string(body), "may have been deleted") {
		t.Fatalf("load after delete = %d %s", res.StatusCode, body)
	}
}

func TestMetricsCountsRoutes(t *testing.T) {
	ts := newTestServer(t)
	do(t, ts, http.MethodGet, "/estimate", "")

	_, body := do(t, ts, http.MethodGet, "/metrics", "")
	if !strings.Contains(string(body), `costestimator_http_requests_total{code="200",method="GET",route="/estimate/"}`) &&
		!strings.Contains(string(body), `costestimator_http_requests_total{code="200",method="GET",route="/estimate"}`) {
		t.Fatalf("request counter missing:\n%s", body)
	}
}
