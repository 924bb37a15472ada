package web_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quicktasks/internal/identity"
	"quicktasks/internal/service"
	"quicktasks/internal/testutil"
	"quicktasks/internal/web"
)

type fixture struct {
	store    *testutil.FakeStore
	accounts *testutil.FakeAccounts
	logs     *bytes.Buffer
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := identity.NewTokens([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	store := testutil.NewFakeStore()
	accounts := testutil.NewFakeAccounts()
	gateway := identity.NewLocal(identity.Options{
		Accounts:         accounts,
		Tokens:           tokens,
		Sessions:         identity.NopSessions{},
		AllowEmailSignup: true,
	})
	logs := &bytes.Buffer{}
	srv := web.New(gateway, store, web.Options{
		AllowedOrigins: []string{"http://app.example.com"},
		Logger:         log.New(logs, "", 0),
	})
	return &fixture{store: store, accounts: accounts, logs: logs, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// login creates a password account for uid and returns its session token.
func (f *fixture) login(t *testing.T, uid string) string {
	t.Helper()
	f.accounts.AddPasswordAccount(uid, uid+"@example.com", "secret1")
	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": uid + "@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body)
	}
	var sess identity.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess.Token
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestRegisterAndMe(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "Ada@Example.com", "password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body)
	}
	var sess identity.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.User.Email != "ada@example.com" || sess.Token == "" {
		t.Errorf("unexpected session %+v", sess)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != web.SessionCookie || cookies[0].Value != sess.Token {
		t.Errorf("expected session cookie, got %+v", cookies)
	}

	rec = f.do(t, http.MethodGet, "/auth/me", sess.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var u identity.User
	json.Unmarshal(rec.Body.Bytes(), &u)
	if u.UID != sess.User.UID || u.Provider != "password" {
		t.Errorf("unexpected user %+v", u)
	}

	rec = f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ada@example.com", "password": "secret1",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "This email is already registered. Please try logging in instead." {
		t.Errorf("unexpected error %q", got)
	}
}

func TestLogin_Errors(t *testing.T) {
	f := newFixture(t)
	f.accounts.AddPasswordAccount("u1", "ada@example.com", "secret1")

	tests := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"wrong password", map[string]string{"email": "ada@example.com", "password": "nope"}, http.StatusUnauthorized, "Incorrect password. Please try again."},
		{"unknown user", map[string]string{"email": "bob@example.com", "password": "secret1"}, http.StatusUnauthorized, "No account found with this email. Please register first."},
		{"bad json", "not an object", http.StatusBadRequest, "invalid json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/auth/login", "", tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			if got := errorBody(t, rec); got != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, got)
			}
		})
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/auth/logout", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expired session cookie, got %+v", cookies)
	}
}

func TestAPI_RequiresSession(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/auth/me", "/api/tasks", "/api/tasks/stream"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
		if got := errorBody(t, rec); got != "not logged in" {
			t.Errorf("%s: unexpected error %q", path, got)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/tasks", "forged.token.value", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestPages_RedirectAnonymous(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/tasks"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Errorf("%s: expected redirect to /login, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}

	token := f.login(t, "u1")
	rec := f.do(t, http.MethodGet, "/", token, nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/tasks" {
		t.Errorf("expected redirect to /tasks, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = f.do(t, http.MethodGet, "/login", token, nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/tasks" {
		t.Errorf("expected /login to redirect a signed-in user, got %d", rec.Code)
	}
}

func TestTasksPage_UsesCookie(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")
	f.store.AddTask("u1", "a1b2c3d4", "Buy milk", service.PriorityLow, service.StatusTodo)
	f.store.AddTask("u2", "zzzz9999", "Foreign", service.PriorityLow, service.StatusTodo)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.AddCookie(&http.Cookie{Name: web.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Buy milk") {
		t.Errorf("expected own task in page, got %q", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "Foreign") {
		t.Errorf("page leaked another user's task: %q", rec.Body.String())
	}
}

func TestListTasks_Filter(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")
	f.store.AddTask("u1", "a1b2c3d4", "Buy milk", service.PriorityLow, service.StatusTodo)
	f.store.AddTask("u1", "e5f6a7b8", "Write report", service.PriorityHigh, service.StatusInProgress)

	rec := f.do(t, http.MethodGet, "/api/tasks?filter=high", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tasks []service.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Write report" {
		t.Errorf("unexpected tasks %+v", tasks)
	}

	rec = f.do(t, http.MethodGet, "/api/tasks?filter=urgent", token, nil)
	if rec.Code != http.StatusBadRequest || errorBody(t, rec) != "invalid filter: urgent" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}
}

func TestListTasks_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")
	f.store.Unavailable = true

	rec := f.do(t, http.MethodGet, "/api/tasks", token, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if got := errorBody(t, rec); got != "Failed to fetch tasks" {
		t.Errorf("unexpected error %q", got)
	}
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")

	rec := f.do(t, http.MethodPost, "/api/tasks", token, map[string]string{
		"title": "  Buy milk  ", "priority": "high", "status": "completed",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body)
	}
	var task service.Task
	json.Unmarshal(rec.Body.Bytes(), &task)
	if task.Title != "Buy milk" || task.UserID != "u1" {
		t.Errorf("unexpected task %+v", task)
	}
	if task.Status != service.StatusTodo {
		t.Errorf("expected new tasks to start as todo, got %s", task.Status)
	}

	rec = f.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "   "})
	if rec.Code != http.StatusBadRequest || errorBody(t, rec) != "Title is required" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}

	f.store.CreateErr = errors.New("quota exceeded")
	rec = f.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "Another"})
	if rec.Code != http.StatusBadGateway || errorBody(t, rec) != "quota exceeded" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}
}

func TestCreateTask_ReloadFailsIsLogged(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")
	f.store.GetErr = errors.New("connection reset")

	rec := f.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "Buy milk"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["id"] == "" {
		t.Fatalf("expected the new id in %s", rec.Body)
	}
	want := "created task " + body["id"] + " but could not load it"
	if !strings.Contains(f.logs.String(), want) {
		t.Errorf("expected log %q, got %q", want, f.logs.String())
	}
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")
	f.store.AddTask("u1", "a1b2c3d4", "Buy milk", service.PriorityLow, service.StatusTodo)

	rec := f.do(t, http.MethodPatch, "/api/tasks/a1b2c3d4", token, map[string]string{"title": "Buy oat milk"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body)
	}
	if got, _ := f.store.Task("a1b2c3d4"); got.Title != "Buy oat milk" || got.Status != service.StatusTodo {
		t.Errorf("unexpected stored task %+v", got)
	}

	rec = f.do(t, http.MethodPatch, "/api/tasks/a1b2c3d4", token, map[string]string{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body)
	}
	var task service.Task
	json.Unmarshal(rec.Body.Bytes(), &task)
	if task.Status != service.StatusCompleted {
		t.Errorf("expected completed, got %s", task.Status)
	}

	rec = f.do(t, http.MethodPatch, "/api/tasks/a1b2c3d4", token, map[string]string{"status": "done"})
	if rec.Code != http.StatusBadRequest || errorBody(t, rec) != "invalid status: done" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodPatch, "/api/tasks/a1b2c3d4", token, map[string]string{})
	if rec.Code != http.StatusBadRequest || errorBody(t, rec) != "nothing to change" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}
}

func TestUpdateAndDelete_OtherOwnerIsNotFound(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")
	f.store.AddTask("u2", "zzzz9999", "Foreign", service.PriorityLow, service.StatusTodo)

	rec := f.do(t, http.MethodPatch, "/api/tasks/zzzz9999", token, map[string]string{"title": "Mine now"})
	if rec.Code != http.StatusNotFound || errorBody(t, rec) != "task not found: zzzz9999" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}
	rec = f.do(t, http.MethodDelete, "/api/tasks/zzzz9999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/api/tasks/missing1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a missing task, got %d", rec.Code)
	}
	if f.store.Writes() != 0 {
		t.Errorf("expected no writes, got %d", f.store.Writes())
	}
	if got, _ := f.store.Task("zzzz9999"); got.Title != "Foreign" {
		t.Errorf("foreign task changed: %+v", got)
	}
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")
	f.store.AddTask("u1", "a1b2c3d4", "Buy milk", service.PriorityLow, service.StatusTodo)

	f.store.DeleteErr = errors.New("permission denied")
	rec := f.do(t, http.MethodDelete, "/api/tasks/a1b2c3d4", token, nil)
	if rec.Code != http.StatusBadGateway || errorBody(t, rec) != "permission denied" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}

	f.store.DeleteErr = nil
	rec = f.do(t, http.MethodDelete, "/api/tasks/a1b2c3d4", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body)
	}
	if _, ok := f.store.Task("a1b2c3d4"); ok {
		t.Error("expected task to be deleted")
	}
}

func TestCORS_Preflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.example.com" {
		t.Errorf("expected allowed origin, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials allowed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS headers for an unknown origin, got %q", got)
	}
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStream_SnapshotsAndError(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")
	f.store.AddTask("u1", "a1b2c3d4", "Buy milk", service.PriorityLow, service.StatusTodo)
	f.store.AddTask("u2", "zzzz9999", "Foreign", service.PriorityLow, service.StatusTodo)

	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/tasks/stream", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	r := bufio.NewReader(resp.Body)

	ev := readEvent(t, r)
	var tasks []service.Task
	if err := json.Unmarshal([]byte(ev.data), &tasks); err != nil {
		t.Fatalf("decode snapshot %q: %v", ev.data, err)
	}
	if ev.name != "snapshot" || len(tasks) != 1 || tasks[0].ID != "a1b2c3d4" {
		t.Fatalf("unexpected first event %+v", ev)
	}

	rec := f.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "Write report"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	ev = readEvent(t, r)
	tasks = nil
	json.Unmarshal([]byte(ev.data), &tasks)
	if ev.name != "snapshot" || len(tasks) != 2 || tasks[1].Title != "Write report" {
		t.Fatalf("unexpected second event %+v", ev)
	}

	f.store.FailSubscriptions(errors.New("permission denied"))
	ev = readEvent(t, r)
	if ev.name != "error" || ev.data != `{"error":"Failed to fetch tasks"}` {
		t.Errorf("unexpected error event %+v", ev)
	}
	if _, err := r.ReadString('\n'); err != io.EOF {
		t.Errorf("expected the stream to end, got %v", err)
	}
}

func TestStream_InvalidFilter(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "u1")

	rec := f.do(t, http.MethodGet, "/api/tasks/stream?filter=soon", token, nil)
	if rec.Code != http.StatusBadRequest || errorBody(t, rec) != "invalid filter: soon" {
		t.Errorf("unexpected response %d %s", rec.Code, rec.Body)
	}
}
