package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, "Welcome to frontpage")
		case "/teapot":
			w.WriteHeader(http.StatusTeapot)
			fmt.Fprint(w, "Welcome to the teapot")
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			fmt.Fprint(w, "Welcome late")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	checker := New(50 * time.Millisecond)
	ctx := context.Background()

	tests := []struct {
		name string
		svc  Service
		up   bool
	}{
		{"keyword_found", Service{URL: srv.URL + "/ok", Keyword: "Welcome to"}, true},
		{"keyword_missing", Service{URL: srv.URL + "/ok", Keyword: "Goodbye"}, false},
		{"keyword_non_2xx", Service{URL: srv.URL + "/teapot", Keyword: "Welcome to"}, false},
		{"keyword_timeout", Service{URL: srv.URL + "/slow", Keyword: "Welcome"}, false},
		{"keyword_wins_over_status", Service{URL: srv.URL + "/ok", Keyword: "Goodbye", StatusCode: 200}, false},
		{"status_match", Service{URL: srv.URL + "/teapot", StatusCode: http.StatusTeapot}, true},
		{"status_mismatch", Service{URL: srv.URL + "/missing", StatusCode: http.StatusOK}, false},
		{"reachable", Service{URL: srv.URL + "/missing"}, true},
		{"unreachable", Service{URL: "http://127.0.0.1:1/", StatusCode: 200}, false},
		{"bad_url", Service{URL: "::not a url", Keyword: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.svc.Name = tt.name
			assert.Equal(t, tt.up, checker.Check(ctx, tt.svc))
		})
	}
}

func TestMode(t *testing.T) {
	assert.Equal(t, "keyword", Service{Keyword: "a", StatusCode: 200}.Mode())
	assert.Equal(t, "status_code", Service{StatusCode: 200}.Mode())
	assert.Equal(t, "reachable", Service{}.Mode())
}
