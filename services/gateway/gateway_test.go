package apigw

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/course"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type staticTokens string

func (t staticTokens) Token() string { return string(t) }

type expiryRecorder struct{ calls int }

func (r *expiryRecorder) HandleAuthExpired() { r.calls++ }

func newTestGateway(srvURL, token string, expired AuthExpiredHandler) *HTTPGateway {
	conf := &core.Config{
		Client: core.ClientConfig{
			APIBaseURL:     srvURL,
			RequestTimeout: 5 * time.Second,
		},
	}
	return NewHTTPGateway(conf, staticTokens(token), expired, nopLogger{})
}

func Test_HTTPGateway_GetCourse(t *testing.T) {
	want := course.Course{ID: "crs-1", Title: "Swahili for Beginners", Status: course.StatusDraft}

	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL, "tok-123", nil)
	got, err := gw.GetCourse(context.Background(), "crs-1")
	if err != nil {
		t.Fatalf("GetCourse() error = %v", err)
	}
	if got.ID != want.ID || got.Title != want.Title {
		t.Errorf("GetCourse() = %+v, want %+v", got, want)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want the bearer token", gotAuth)
	}
	if gotPath != "/courses/crs-1" {
		t.Errorf("path = %q, want /courses/crs-1", gotPath)
	}
}

func Test_HTTPGateway_classification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantMessage string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantMessage: core.MsgSessionExpired},
		{name: "forbidden", status: http.StatusForbidden, wantMessage: core.MsgPermissionDenied},
		{name: "not found", status: http.StatusNotFound, wantMessage: core.MsgGenericError},
		{name: "bad request", status: http.StatusBadRequest, wantMessage: core.MsgGenericError},
		{name: "server error", status: http.StatusInternalServerError, wantMessage: core.MsgServiceUnavailable},
		{name: "bad gateway", status: http.StatusBadGateway, wantMessage: core.MsgServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// whatever the backend says must never surface
				http.Error(w, `{"error":"super secret internal details"}`, tt.status)
			}))
			defer srv.Close()

			gw := newTestGateway(srv.URL, "", nil)
			_, err := gw.GetCourse(context.Background(), "crs-1")

			apiErr, ok := err.(*core.APIError)
			if !ok {
				t.Fatalf("error = %v, want *core.APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func Test_HTTPGateway_networkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	gw := newTestGateway(srv.URL, "", nil)
	_, err := gw.GetCourse(context.Background(), "crs-1")

	if !core.IsUnavailable(err) {
		t.Fatalf("error = %v, want unavailable", err)
	}
}

func Test_HTTPGateway_contextCancelPassesThrough(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := gw.GetCourse(ctx, "crs-1")
	// an abandoned call is not a classified failure
	if err != context.Canceled {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func Test_HTTPGateway_authExpiredHandler(t *testing.T) {
	rec := &expiryRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL, "stale-token", rec)
	if _, err := gw.GetCourse(context.Background(), "crs-1"); !core.IsAuthExpired(err) {
		t.Fatalf("error = %v, want auth expired", err)
	}
	if rec.calls != 1 {
		t.Errorf("HandleAuthExpired calls = %d, want 1", rec.calls)
	}

	// every rejected call reports; the session de-duplicates, not us
	_, _ = gw.GetCourse(context.Background(), "crs-1")
	if rec.calls != 2 {
		t.Errorf("HandleAuthExpired calls = %d, want 2", rec.calls)
	}
}

func Test_HTTPGateway_UpdateCourse_sendsMinimalBody(t *testing.T) {
	var gotBody []byte
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(course.Course{ID: "crs-1"})
	}))
	defer srv.Close()

	title := "Swahili A1"
	gw := newTestGateway(srv.URL, "", nil)
	if _, err := gw.UpdateCourse(context.Background(), "crs-1", course.UpdateRequest{Title: &title}); err != nil {
		t.Fatalf("UpdateCourse() error = %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if want := `{"title":"Swahili A1"}`; string(gotBody) != want {
		t.Errorf("body = %s, want %s", gotBody, want)
	}
}

func Test_HTTPGateway_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data map[string]string
		_ = json.NewDecoder(r.Body).Decode(&data)
		if data["username"] != "tembo" || data["password"] != "maji1234" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL, "", nil)
	token, err := gw.Login(context.Background(), "tembo", "maji1234")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q, want tok-123", token)
	}

	if _, err = gw.Login(context.Background(), "tembo", "wrong"); err == nil {
		t.Error("Login() with bad credentials error = nil")
	}
}
