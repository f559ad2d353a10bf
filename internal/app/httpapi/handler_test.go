package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/appealdesk/appealdesk/internal/app"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewHandler(app.New(app.Stores{}, nil), nil)
}

func marshal(v any) *bytes.Reader {
	data, _ := json.Marshal(v)
	return bytes.NewReader(data)
}

func doRequest(handler http.Handler, method, path string, body *bytes.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func unmarshalAppeal(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var envelope struct {
		Message string         `json:"message"`
		Appeal  map[string]any `json:"appeal"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal transition response: %v", err)
	}
	if envelope.Message == "" || envelope.Appeal == nil {
		t.Fatalf("unexpected transition response: %s", body)
	}
	return envelope.Appeal
}

func createAppeal(t *testing.T, handler http.Handler, title string) string {
	t.Helper()
	resp := doRequest(handler, http.MethodPost, "/appeals", marshal(map[string]any{
		"title":       title,
		"description": "description of " + title,
	}))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}
	if created["id"] == "" {
		t.Fatalf("expected id in response, got %v", created)
	}
	return created["id"]
}

func TestHandlerLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	id := createAppeal(t, handler, "broken login")

	resp := doRequest(handler, http.MethodPatch, "/appeals/"+id+"/in-progress", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 in-progress, got %d: %s", resp.Code, resp.Body.String())
	}
	updated := unmarshalAppeal(t, resp.Body.Bytes())
	if updated["status"] != "in-progress" {
		t.Fatalf("status = %v", updated["status"])
	}
	if updated["updatedAt"] == nil {
		t.Fatal("expected updatedAt after transition")
	}

	resp = doRequest(handler, http.MethodPatch, "/appeals/"+id+"/complete",
		marshal(map[string]any{"solution": "reset the session store"}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 complete, got %d: %s", resp.Code, resp.Body.String())
	}
	updated = unmarshalAppeal(t, resp.Body.Bytes())
	if updated["status"] != "completed" || updated["solution"] != "reset the session store" {
		t.Fatalf("completed appeal = %v", updated)
	}

	// completed appeals cannot be canceled
	resp = doRequest(handler, http.MethodPatch, "/appeals/"+id+"/cancel",
		marshal(map[string]any{"reason": "too late"}))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestHandlerCancel(t *testing.T) {
	handler := newTestHandler(t)

	id := createAppeal(t, handler, "duplicate report")
	resp := doRequest(handler, http.MethodPatch, "/appeals/"+id+"/cancel",
		marshal(map[string]any{"reason": "duplicate"}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	updated := unmarshalAppeal(t, resp.Body.Bytes())
	if updated["status"] != "canceled" || updated["reason"] != "duplicate" {
		t.Fatalf("canceled appeal = %v", updated)
	}
}

func TestHandlerList(t *testing.T) {
	handler := newTestHandler(t)

	first := createAppeal(t, handler, "first")
	createAppeal(t, handler, "second")
	createAppeal(t, handler, "third")

	resp := doRequest(handler, http.MethodPatch, "/appeals/"+first+"/in-progress", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = doRequest(handler, http.MethodGet, "/appeals", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var listing struct {
		Appeals    []map[string]any `json:"appeals"`
		Pagination map[string]any   `json:"pagination"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listing); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}
	if len(listing.Appeals) != 3 {
		t.Fatalf("appeals = %d, want 3", len(listing.Appeals))
	}
	if listing.Pagination["total"].(float64) != 3 {
		t.Fatalf("pagination = %v", listing.Pagination)
	}

	resp = doRequest(handler, http.MethodGet, "/appeals?status=in-progress", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listing); err != nil {
		t.Fatalf("unmarshal filtered listing: %v", err)
	}
	if len(listing.Appeals) != 1 || listing.Appeals[0]["id"] != first {
		t.Fatalf("filtered appeals = %v", listing.Appeals)
	}
}

func TestHandlerListValidation(t *testing.T) {
	handler := newTestHandler(t)

	for _, path := range []string{
		"/appeals?date=2025-03-10&startDate=2025-03-01&endDate=2025-03-05",
		"/appeals?startDate=2025-03-01",
		"/appeals?date=not-a-date",
		"/appeals?limit=many",
		"/appeals?status=archived",
	} {
		resp := doRequest(handler, http.MethodGet, path, nil)
		if resp.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, resp.Code)
		}
	}
}

func TestHandlerBulkCancel(t *testing.T) {
	handler := newTestHandler(t)

	// nothing in progress yet
	resp := doRequest(handler, http.MethodPatch, "/appeals/bulk-cancel",
		marshal(map[string]any{"reason": "maintenance"}))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with nothing in progress, got %d", resp.Code)
	}

	first := createAppeal(t, handler, "first")
	second := createAppeal(t, handler, "second")
	for _, id := range []string{first, second} {
		resp := doRequest(handler, http.MethodPatch, "/appeals/"+id+"/in-progress", nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.Code)
		}
	}

	resp = doRequest(handler, http.MethodPatch, "/appeals/bulk-cancel",
		marshal(map[string]any{"reason": "maintenance"}))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result["canceled"].(float64) != 2 {
		t.Fatalf("canceled = %v", result["canceled"])
	}
}

func TestHandlerErrors(t *testing.T) {
	handler := newTestHandler(t)

	resp := doRequest(handler, http.MethodPost, "/appeals",
		marshal(map[string]any{"title": "no description"}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing description: expected 400, got %d", resp.Code)
	}

	resp = doRequest(handler, http.MethodPost, "/appeals",
		marshal(map[string]any{"title": "t", "description": "d", "status": "completed"}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", resp.Code)
	}

	resp = doRequest(handler, http.MethodPatch, "/appeals/missing/in-progress", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", resp.Code)
	}

	resp = doRequest(handler, http.MethodPatch, "/appeals/missing/unknown-action", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown action: expected 404, got %d", resp.Code)
	}

	resp = doRequest(handler, http.MethodDelete, "/appeals", nil)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}

	id := createAppeal(t, handler, "method check")
	resp = doRequest(handler, http.MethodPost, "/appeals/"+id+"/in-progress", nil)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST transition: expected 405, got %d", resp.Code)
	}
}

func TestHandlerHealthz(t *testing.T) {
	handler := newTestHandler(t)

	resp := doRequest(handler, http.MethodGet, "/healthz", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
