package verification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newServer(t *testing.T, status int, body string, check func(*http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSendsContract(t *testing.T) {
	srv := newServer(t, http.StatusOK, `[{"email":"a@example.com","status":"valid"}]`, func(r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if req["checkDeliverability"] != true || req["allowInternationalized"] != false {
			t.Errorf("unexpected flags: %v", req)
		}
		emails, _ := req["emails"].([]any)
		if len(emails) != 1 || emails[0] != "a@example.com" {
			t.Errorf("emails = %v", req["emails"])
		}
	})

	resp, err := NewClient(srv.URL, "key", time.Second).Check(context.Background(), []string{"a@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Verdicts) != 1 || resp.Verdicts[0].Status != "valid" {
		t.Errorf("verdicts = %+v", resp.Verdicts)
	}
}

func TestClientNon2xx(t *testing.T) {
	srv := newServer(t, http.StatusBadGateway, "upstream down", nil)

	_, err := NewClient(srv.URL, "", time.Second).Check(context.Background(), []string{"a@example.com"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", 20*time.Millisecond).Check(context.Background(), []string{"a@example.com"}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestServiceVerifyMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Status
	}{
		{"valid", http.StatusOK, `[{"status":"valid"}]`, StatusVerified},
		{"disposable", http.StatusOK, `[{"status":"disposable"}]`, StatusInvalid},
		{"empty list", http.StatusOK, `[]`, StatusFailed},
		{"not json", http.StatusOK, `oops`, StatusFailed},
		{"server error", http.StatusInternalServerError, `boom`, StatusFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.status, tc.body, nil)
			svc := New(NewClient(srv.URL, "", time.Second), nil)

			out := svc.Verify(context.Background(), "a@example.com")
			if out.Status != tc.want {
				t.Fatalf("status = %s, want %s", out.Status, tc.want)
			}
			if tc.want == StatusFailed && out.Error == "" {
				t.Error("failed outcome should carry an error marker")
			}
			if tc.want != StatusFailed && len(out.Verdicts) == 0 {
				t.Error("answered outcome should carry raw verdicts")
			}
			if out.Email != "a@example.com" || out.CheckedAt.IsZero() {
				t.Errorf("unexpected outcome metadata: %+v", out)
			}
		})
	}
}

func TestServiceWithoutChecker(t *testing.T) {
	out := New(nil, nil).Verify(context.Background(), "a@example.com")
	if out.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
}
