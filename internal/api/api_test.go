package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jothamO/prism-admin/internal/engine"
	"github.com/jothamO/prism-admin/internal/models"
	"github.com/jothamO/prism-admin/internal/session"
	"github.com/jothamO/prism-admin/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	st := store.NewInMemoryStore()
	mgr := session.NewManager(st, models.DefaultPolicy())
	return NewServer(engine.New(mgr, st)).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid envelope %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, env
}

func createSession(t *testing.T, h http.Handler, entityType string) string {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/v1/sessions", fmt.Sprintf(`{"entityType":%q}`, entityType))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session status = %d: %s", rec.Code, rec.Body.String())
	}
	result, ok := env.Result.(map[string]any)
	if !ok {
		t.Fatalf("create session result = %T", env.Result)
	}
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatal("create session returned no id")
	}
	return id
}

func TestCreateSession(t *testing.T) {
	h := newTestServer(t)

	rec, env := doJSON(t, h, http.MethodPost, "/v1/sessions", `{"entityType":"business"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	result := env.Result.(map[string]any)
	if result["entity_type"] != "business" {
		t.Errorf("entity_type = %v", result["entity_type"])
	}
	if result["state"] != string(models.StateNew) {
		t.Errorf("state = %v", result["state"])
	}

	// An empty entity type defaults to individual.
	rec, env = doJSON(t, h, http.MethodPost, "/v1/sessions", `{}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.Result.(map[string]any)["entity_type"] != "individual" {
		t.Errorf("default entity_type = %v", env.Result.(map[string]any)["entity_type"])
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/sessions", `{"entityType":"alien"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid entity type status = %d", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/sessions", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d", rec.Code)
	}
}

func TestMessageRoundtrip(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h, "individual")

	rec, env := doJSON(t, h, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"text":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	responses, ok := env.Result.([]any)
	if !ok || len(responses) == 0 {
		t.Fatalf("result = %v", env.Result)
	}
	first := responses[0].(map[string]any)
	if first["sender"] != "bot" {
		t.Errorf("sender = %v", first["sender"])
	}
	if !strings.Contains(first["text"].(string), "NIN") {
		t.Errorf("greeting = %v", first["text"])
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"text":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/sessions/"+id+"/messages", `{broken`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d", rec.Code)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	h := newTestServer(t)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/v1/sessions/ghost", ""},
		{http.MethodDelete, "/v1/sessions/ghost", ""},
		{http.MethodPost, "/v1/sessions/ghost/messages", `{"text":"hi"}`},
		{http.MethodPost, "/v1/sessions/ghost/selections", `{"buttonId":"calc_vat"}`},
		{http.MethodGet, "/v1/sessions/ghost/transcript", ""},
	} {
		rec, env := doJSON(t, h, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d", tc.method, tc.path, rec.Code)
		}
		if env.Status != string(models.APIStatusError) {
			t.Errorf("%s %s envelope status = %q", tc.method, tc.path, env.Status)
		}
	}
}

func TestSelectionEndpoint(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h, "individual")

	// Register via demo so the session is in the command zone.
	doJSON(t, h, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"text":"demo"}`)

	rec, env := doJSON(t, h, http.MethodPost, "/v1/sessions/"+id+"/selections", `{"buttonId":"relief_pension"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	responses := env.Result.([]any)
	if !strings.Contains(responses[len(responses)-1].(map[string]any)["text"].(string), "pension") {
		t.Errorf("selection response = %v", env.Result)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/v1/sessions/"+id+"/selections", `{"buttonId":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty buttonId status = %d", rec.Code)
	}
}

func TestStatementUpload(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h, "business")
	doJSON(t, h, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"text":"demo"}`)

	csv := "date,description,credit,debit\n2025-01-03,transfer from customer,100000,\n"
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/statement", bytes.NewBufferString(csv))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Statement analysis") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestInvoiceUploadRejectsEmptyBody(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h, "individual")

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/invoice", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty upload status = %d", rec.Code)
	}
}

func TestTranscriptAndReset(t *testing.T) {
	h := newTestServer(t)
	id := createSession(t, h, "individual")
	doJSON(t, h, http.MethodPost, "/v1/sessions/"+id+"/messages", `{"text":"demo"}`)

	rec, env := doJSON(t, h, http.MethodGet, "/v1/sessions/"+id+"/transcript", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("transcript status = %d", rec.Code)
	}
	if len(env.Result.([]any)) != 2 {
		t.Errorf("transcript length = %d, want user + bot", len(env.Result.([]any)))
	}

	rec, env = doJSON(t, h, http.MethodDelete, "/v1/sessions/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	if env.Message != "Session reset" {
		t.Errorf("reset message = %q", env.Message)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/v1/sessions/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if env.Result.(map[string]any)["state"] != string(models.StateNew) {
		t.Errorf("post-reset state = %v", env.Result.(map[string]any)["state"])
	}
}
