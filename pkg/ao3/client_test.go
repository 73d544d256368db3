package ao3

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/thalida/ao3-sync/pkg/logger"
)

const loginFormHTML = `<html><body><form action="/users/login">
<input type="hidden" name="authenticity_token" value="tok123" />
</form></body></html>`

// newTestArchive serves a minimal archive: a login form, a login POST
// endpoint, and whatever extra handlers the test registers.
func newTestArchive(t *testing.T, rejectLogin bool, extra map[string]http.HandlerFunc) (*httptest.Server, *int) {
	t.Helper()

	logins := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/users/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, loginFormHTML)
			return
		}

		logins++
		if err := r.ParseForm(); err != nil {
			t.Errorf("Failed to parse login form: %v", err)
		}
		if got := r.PostFormValue("authenticity_token"); got != "tok123" {
			t.Errorf("Expected authenticity token tok123, got %q", got)
		}
		if rejectLogin {
			fmt.Fprint(w, `<html><body><div class="flash error auth_error">wrong password</div></body></html>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "_otwarchive_session", Value: "session123"})
		w.Header().Set("Location", "/users/reader")
		w.WriteHeader(http.StatusFound)
	})
	for path, handler := range extra {
		mux.HandleFunc(path, handler)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &logins
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(ClientOptions{
		Username:     "reader",
		Password:     "hunter2",
		RequestDelay: time.Millisecond,
		BaseURL:      server.URL,
		Logger:       logger.NewTestLogger(),
	})
}

func TestClientLogin(t *testing.T) {
	server, logins := newTestArchive(t, false, nil)
	client := newTestClient(server)

	if client.IsAuthenticated() {
		t.Fatal("Expected new client to be unauthenticated")
	}
	if err := client.Login(); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !client.IsAuthenticated() {
		t.Error("Expected client to be authenticated")
	}

	// A second login is a no-op
	if err := client.Login(); err != nil {
		t.Fatalf("Repeated login failed: %v", err)
	}
	if *logins != 1 {
		t.Errorf("Expected exactly 1 login POST, got %d", *logins)
	}
}

func TestClientLoginRejected(t *testing.T) {
	server, _ := newTestArchive(t, true, nil)
	client := newTestClient(server)

	err := client.Login()
	if err == nil {
		t.Fatal("Expected login to fail")
	}
	if !IsLogin(err) {
		t.Errorf("Expected a login error, got %v", err)
	}
	if client.IsAuthenticated() {
		t.Error("Expected client to stay unauthenticated")
	}
}

func TestClientLoginMissingCredentials(t *testing.T) {
	server, logins := newTestArchive(t, false, nil)
	client := newTestClient(server)
	client.SetAccount("reader", "")

	err := client.Login()
	if !IsLogin(err) {
		t.Fatalf("Expected a login error, got %v", err)
	}
	if *logins != 0 {
		t.Errorf("Expected no network login attempt, got %d", *logins)
	}
}

func TestClientFetch(t *testing.T) {
	server, _ := newTestArchive(t, false, map[string]http.HandlerFunc{
		"/bookmarks": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") != "2" {
				t.Errorf("Expected page=2, got %q", r.URL.Query().Get("page"))
			}
			fmt.Fprint(w, "<html>bookmarks</html>")
		},
	})
	client := newTestClient(server)

	body, err := client.Fetch("/bookmarks", url.Values{"page": {"2"}})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != "<html>bookmarks</html>" {
		t.Errorf("Unexpected body: %q", body)
	}

	// Fetch logs in on first use
	if !client.IsAuthenticated() {
		t.Error("Expected fetch to establish the session")
	}
}

func TestClientFetchStatusTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
		label  string
	}{
		{"too many requests", http.StatusTooManyRequests, IsRateLimit, "rate-limit"},
		{"service unavailable", http.StatusServiceUnavailable, IsRateLimit, "rate-limit"},
		{"gateway timeout", http.StatusGatewayTimeout, IsRateLimit, "rate-limit"},
		{"not found", http.StatusNotFound, func(err error) bool {
			return IsErrorType(err, ErrorTypeFailedRequest)
		}, "failed-request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newTestArchive(t, false, map[string]http.HandlerFunc{
				"/works/412": func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				},
			})
			client := newTestClient(server)

			_, err := client.Fetch("/works/412", nil)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !tt.check(err) {
				t.Errorf("Expected a %s error for status %d, got %v", tt.label, tt.status, err)
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *Error, got %T", err)
			}
			if apiErr.Code != tt.status {
				t.Errorf("Expected code %d, got %d", tt.status, apiErr.Code)
			}
		})
	}
}

func TestClientFetchAbsoluteURL(t *testing.T) {
	server, _ := newTestArchive(t, false, map[string]http.HandlerFunc{
		"/downloads/412/work.epub": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "epub bytes")
		},
	})
	client := newTestClient(server)

	// Absolute URLs bypass the configured base URL
	body, err := client.Fetch(server.URL+"/downloads/412/work.epub", nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != "epub bytes" {
		t.Errorf("Unexpected body: %q", body)
	}
}

func TestClientSetAccountResetsSession(t *testing.T) {
	server, _ := newTestArchive(t, false, nil)
	client := newTestClient(server)

	if err := client.Login(); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	client.SetAccount("other", "pass")
	if client.IsAuthenticated() {
		t.Error("Expected SetAccount to reset the authenticated state")
	}
	if client.Username() != "other" {
		t.Errorf("Expected username other, got %q", client.Username())
	}
}
