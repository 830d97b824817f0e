package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/prefkeep/internal/form"
	"github.com/kalambet/prefkeep/internal/prefs"
)

const testToken = "test-token"

func newTestController(t *testing.T) (*form.Controller, *prefs.Shared) {
	t.Helper()
	store := prefs.NewShared(prefs.NewMemoryBackend(), time.Hour)
	t.Cleanup(func() { store.Close() })
	return form.NewController(store), store
}

func newTestHandler(t *testing.T) (http.Handler, *prefs.Shared) {
	t.Helper()
	c, store := newTestController(t)
	return NewAppHandler(AppDeps{Controller: c, Token: testToken}), store
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, form.View) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var v form.View
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		json.Unmarshal(rr.Body.Bytes(), &v)
	}
	return rr, v
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status=ok", body)
	}
}

func TestEntry_RequiresToken(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, auth := range []string{"", "Bearer wrong", "Basic " + testToken} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/entry", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: status = %d, want 401", auth, rr.Code)
		}
	}
}

func TestEntry_SaveLoadDelete(t *testing.T) {
	h, store := newTestHandler(t)

	rr, v := do(t, h, http.MethodPost, "/entry", `{"name":" Ana ","email":"ana@x.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if v.Notice != form.MsgSaved {
		t.Errorf("notice = %q, want %q", v.Notice, form.MsgSaved)
	}
	if got := store.GetString(form.KeyName, ""); got != "Ana" {
		t.Errorf("stored name = %q, want Ana", got)
	}

	_, v = do(t, h, http.MethodGet, "/entry", "")
	want := "Data Tersimpan:\n\nNama: Ana\nEmail: ana@x.com"
	if v.Result != want {
		t.Errorf("result = %q, want %q", v.Result, want)
	}

	_, v = do(t, h, http.MethodDelete, "/entry", "")
	if v.Result != form.MsgDeleted || v.Notice != form.MsgDeletedNotice {
		t.Errorf("delete view = %+v", v)
	}

	_, v = do(t, h, http.MethodGet, "/entry", "")
	if v.Result != form.MsgNoData {
		t.Errorf("result after delete = %q, want %q", v.Result, form.MsgNoData)
	}
}

func TestEntry_SaveValidation(t *testing.T) {
	h, store := newTestHandler(t)

	rr, v := do(t, h, http.MethodPost, "/entry", `{"name":"   ","email":"ana@x.com"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	if v.Notice != form.MsgEmptyInput {
		t.Errorf("notice = %q, want %q", v.Notice, form.MsgEmptyInput)
	}
	if store.Pending() != 0 {
		t.Errorf("pending = %d, want no writes", store.Pending())
	}
}

func TestEntry_SaveBadBody(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, body := range []string{"{not json", ""} {
		rr, _ := do(t, h, http.MethodPost, "/entry", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestEntry_StartOnlyShowsCompleteEntry(t *testing.T) {
	h, store := newTestHandler(t)

	var e prefs.Edit
	e.Put(form.KeyName, "Ana")
	store.Apply(e)

	_, v := do(t, h, http.MethodGet, "/entry/start", "")
	if v.Result != "" {
		t.Errorf("result = %q, want empty for partial entry", v.Result)
	}

	e = prefs.Edit{}
	e.Put(form.KeyEmail, "ana@x.com")
	store.Apply(e)

	_, v = do(t, h, http.MethodGet, "/entry/start", "")
	if v.Result != form.Summary(form.Entry{Name: "Ana", Email: "ana@x.com"}) {
		t.Errorf("result = %q", v.Result)
	}
	if v.Notice != "" {
		t.Errorf("notice = %q, want none", v.Notice)
	}
}

func TestNamedActions(t *testing.T) {
	h, _ := newTestHandler(t)

	rr, v := do(t, h, http.MethodPost, "/actions/simpan", `{"name":"Ana","email":"ana@x.com"}`)
	if rr.Code != http.StatusOK || v.Notice != form.MsgSaved {
		t.Fatalf("simpan: status = %d, view = %+v", rr.Code, v)
	}

	_, v = do(t, h, http.MethodPost, "/actions/muat", "")
	if v.Notice != form.MsgLoaded {
		t.Errorf("muat notice = %q", v.Notice)
	}

	rr, v = do(t, h, http.MethodPost, "/actions/save", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("save without body: status = %d, want 422", rr.Code)
	}

	rr, _ = do(t, h, http.MethodPost, "/actions/clear", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown action: status = %d, want 404", rr.Code)
	}

	_, v = do(t, h, http.MethodGet, "/view", "")
	if v.Result == "" {
		t.Error("view lost the loaded result")
	}
}
