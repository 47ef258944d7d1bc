package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/todolist/pkg/logger"
	"github.com/ghuser/todolist/pkg/session"
	"github.com/ghuser/todolist/services/todo/application/api"
	"github.com/ghuser/todolist/services/todo/application/handlers"
	appsvcs "github.com/ghuser/todolist/services/todo/application/services"
	"github.com/ghuser/todolist/services/todo/infrastructure/persistence/memory"
)

type testServer struct {
	router http.Handler
	store  *memory.TodoStore
}

func newTestServer(t *testing.T, opts appsvcs.Options) *testServer {
	t.Helper()
	store := memory.NewTodoStore()
	svcs := &appsvcs.Services{
		Todo: appsvcs.NewTodoService(store, nil, nil, nil, logger.Discard(), opts),
	}
	sessions := session.NewCookieStore([]byte(strings.Repeat("a", 32)), []byte(strings.Repeat("b", 32)), false)

	r := chi.NewRouter()
	api.Mount(r, svcs, sessions, logger.Discard())
	return &testServer{router: r, store: store}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) postForm(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return s.do(t, req)
}

func (s *testServer) getPage(t *testing.T, cookies ...*http.Cookie) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := s.do(t, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /: expected 200, got %d", rr.Code)
	}
	return rr.Body.String()
}

func (s *testServer) postJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) handlers.ListResponse {
	t.Helper()
	var resp handlers.ListResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v (body %s)", err, rr.Body.String())
	}
	return resp
}

// --- HTML page ---

func TestPage_AddToggleDelete(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{EnableDelete: true})

	rr := srv.postForm(t, "/todos", url.Values{"name": {"Buy milk"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rr.Code, rr.Header().Get("Location"))
	}

	html := srv.getPage(t)
	if !strings.Contains(html, "Buy milk") || strings.Contains(html, "<s>Buy milk</s>") {
		t.Fatalf("expected open todo on page:\n%s", html)
	}

	list := decodeList(t, srv.do(t, httptest.NewRequest(http.MethodGet, "/api/todos", http.NoBody)))
	id := list.Todos[0].ID

	srv.postForm(t, "/todos/"+id.String()+"/toggle", url.Values{"done": {"false"}})
	if html := srv.getPage(t); !strings.Contains(html, "<s>Buy milk</s>") {
		t.Fatalf("expected struck-through todo after toggle:\n%s", html)
	}

	srv.postForm(t, "/todos/"+id.String()+"/delete", nil)
	if html := srv.getPage(t); strings.Contains(html, "Buy milk") {
		t.Fatalf("expected todo gone after delete:\n%s", html)
	}
}

func TestPage_DraftRetainedOnFailureClearedOnSuccess(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{})

	srv.store.FailWith(errors.New("connection reset"))
	rr := srv.postForm(t, "/todos", url.Values{"name": {"Buy milk"}})
	cookies := rr.Result().Cookies()
	if html := srv.getPage(t, cookies...); !strings.Contains(html, `value="Buy milk"`) {
		t.Fatalf("expected draft retained after failed add:\n%s", html)
	}

	srv.store.FailWith(nil)
	rr = srv.postForm(t, "/todos", url.Values{"name": {"Buy milk"}}, cookies...)
	if html := srv.getPage(t, rr.Result().Cookies()...); strings.Contains(html, `value="Buy milk"`) {
		t.Fatalf("expected draft cleared after successful add:\n%s", html)
	}
}

func TestPage_BlankAddIsNoop(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{})

	rr := srv.postForm(t, "/todos", url.Values{"name": {"   "}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	if srv.store.Calls() != 0 {
		t.Fatalf("expected no store calls, got %d", srv.store.Calls())
	}
}

func TestPage_FetchFailureStillRenders(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{})
	srv.store.FailWith(errors.New("connection reset"))

	if html := srv.getPage(t); !strings.Contains(html, "Nothing to do.") {
		t.Fatalf("expected empty page on fetch failure:\n%s", html)
	}
}

func TestPage_DeleteHiddenAndRejectedWhenDisabled(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{EnableDelete: false})
	srv.postForm(t, "/todos", url.Values{"name": {"Buy milk"}})

	if html := srv.getPage(t); strings.Contains(html, "/delete") {
		t.Fatalf("expected no delete control:\n%s", html)
	}
	rr := srv.postForm(t, "/todos/"+uuid.NewString()+"/delete", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestPage_BadToggleInput(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{})

	if rr := srv.postForm(t, "/todos/not-a-uuid/toggle", url.Values{"done": {"false"}}); rr.Code != http.StatusNotFound {
		t.Errorf("bad id: expected 404, got %d", rr.Code)
	}
	if rr := srv.postForm(t, "/todos/"+uuid.NewString()+"/toggle", url.Values{"done": {"maybe"}}); rr.Code != http.StatusBadRequest {
		t.Errorf("bad done: expected 400, got %d", rr.Code)
	}
}

func TestStatic(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{})
	rr := srv.do(t, httptest.NewRequest(http.MethodGet, "/static/app.css", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// --- JSON API ---

func TestAPI_BuyMilkScenario(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{EnableDelete: true})

	rr := srv.postJSON(t, http.MethodPost, "/api/todos", map[string]string{"name": "Buy milk"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created handlers.CreateTodoResponse
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Todo.Name != "Buy milk" || created.Todo.Done || len(created.Todos) != 1 {
		t.Fatalf("unexpected create response: %+v", created)
	}
	id := created.Todo.ID.String()

	rr = srv.postJSON(t, http.MethodPost, "/api/todos/"+id+"/toggle", map[string]bool{"done": false})
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if list := decodeList(t, rr); !list.Todos[0].Done {
		t.Fatalf("expected done=true after toggle: %+v", list)
	}

	rr = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/todos/"+id, http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rr.Code)
	}

	rr = srv.postJSON(t, http.MethodDelete, "/api/todos/"+id, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if list := decodeList(t, rr); len(list.Todos) != 0 {
		t.Fatalf("expected empty list after delete: %+v", list)
	}
}

func TestAPI_ErrorStatuses(t *testing.T) {
	missing := uuid.NewString()
	tests := []struct {
		name       string
		opts       appsvcs.Options
		fail       bool
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"blank name", appsvcs.Options{}, false, http.MethodPost, "/api/todos", map[string]string{"name": "  "}, http.StatusUnprocessableEntity},
		{"missing done", appsvcs.Options{}, false, http.MethodPost, "/api/todos/" + missing + "/toggle", map[string]any{}, http.StatusUnprocessableEntity},
		{"toggle unknown id", appsvcs.Options{}, false, http.MethodPost, "/api/todos/" + missing + "/toggle", map[string]bool{"done": true}, http.StatusNotFound},
		{"get unknown id", appsvcs.Options{}, false, http.MethodGet, "/api/todos/" + missing, nil, http.StatusNotFound},
		{"invalid id", appsvcs.Options{}, false, http.MethodGet, "/api/todos/not-a-uuid", nil, http.StatusBadRequest},
		{"delete disabled", appsvcs.Options{EnableDelete: false}, false, http.MethodDelete, "/api/todos/" + missing, nil, http.StatusMethodNotAllowed},
		{"delete unknown id", appsvcs.Options{EnableDelete: true}, false, http.MethodDelete, "/api/todos/" + missing, nil, http.StatusNotFound},
		{"store failure on list", appsvcs.Options{}, true, http.MethodGet, "/api/todos", nil, http.StatusBadGateway},
		{"store failure on add", appsvcs.Options{}, true, http.MethodPost, "/api/todos", map[string]string{"name": "Buy milk"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.opts)
			if tt.fail {
				srv.store.FailWith(errors.New("connection reset"))
			}
			rr := srv.postJSON(t, tt.method, tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestAPI_NameLengthCountsCharacters(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantStatus int
	}{
		{"255 multi-byte characters", strings.Repeat("é", 255), http.StatusCreated},
		{"256 multi-byte characters", strings.Repeat("é", 256), http.StatusUnprocessableEntity},
		{"255 characters with padding", "  " + strings.Repeat("x", 255) + "  ", http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, appsvcs.Options{})
			rr := srv.postJSON(t, http.MethodPost, "/api/todos", map[string]string{"name": tt.input})
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantStatus == http.StatusUnprocessableEntity && srv.store.Calls() != 0 {
				t.Fatalf("expected no store call, got %d", srv.store.Calls())
			}
		})
	}
}

func TestAPI_ListOrder(t *testing.T) {
	srv := newTestServer(t, appsvcs.Options{})
	for _, n := range []string{"first", "second"} {
		srv.postJSON(t, http.MethodPost, "/api/todos", map[string]string{"name": n})
	}
	list := decodeList(t, srv.do(t, httptest.NewRequest(http.MethodGet, "/api/todos", http.NoBody)))
	if len(list.Todos) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(list.Todos))
	}
	if list.Todos[0].CreatedAt.After(list.Todos[1].CreatedAt) {
		t.Fatalf("expected ascending created_at: %+v", list.Todos)
	}
}
