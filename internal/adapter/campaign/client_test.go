package campaign

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewHTTPClientValidatesURL(t *testing.T) {
	if _, err := NewHTTPClient("://bad-url", testLogger()); err == nil {
		t.Fatal("expected error for invalid url")
	}
	if _, err := NewHTTPClient("/relative", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestFetchReturnsCampaign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/api/campaigns/42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"title":"Spring serum","reward_points":5000}`))
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL+"/v1", testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	campaign, err := client.Fetch(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if campaign.ID != 42 || campaign.RewardPoints != 5000 || campaign.Title != "Spring serum" {
		t.Fatalf("unexpected campaign: %+v", campaign)
	}
}

func TestFetchRejectsInvalidPayloads(t *testing.T) {
	bodies := []string{`{"id":1}`, `{"id":1,"reward_points":0}`, `not json`}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client, err := NewHTTPClient(srv.URL, testLogger())
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if _, err := client.Fetch(context.Background(), 1); err == nil {
			t.Fatalf("expected error for body %q", body)
		}
		srv.Close()
	}
}

func TestFetchHandlesSpecialStatuses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		header     http.Header
		wantErr    error
	}{
		{name: "not found", statusCode: http.StatusNotFound, wantErr: ErrCampaignNotFound},
		{name: "too many requests", statusCode: http.StatusTooManyRequests, header: http.Header{"Retry-After": []string{"5"}}, wantErr: TooManyRequestsError{RetryAfter: 5 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for key, values := range tt.header {
					for _, v := range values {
						w.Header().Add(key, v)
					}
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer srv.Close()

			client, err := NewHTTPClient(srv.URL, testLogger())
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			_, err = client.Fetch(context.Background(), 1)
			if tt.statusCode == http.StatusTooManyRequests {
				var tm TooManyRequestsError
				if !errors.As(err, &tm) {
					t.Fatalf("expected TooManyRequestsError, got %v", err)
				}
				if tm.RetryAfter != 5*time.Second {
					t.Fatalf("expected retry after 5s, got %v", tm.RetryAfter)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFetchLogsErrorResponses(t *testing.T) {
	called := make(chan struct{}, 1)
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.LevelKey && a.Value.Any() == slog.LevelError {
			select {
			case called <- struct{}{}:
			default:
			}
		}
		return a
	}})
	logger := slog.New(handler)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, logger)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	if _, err := client.Fetch(context.Background(), 123); err == nil {
		t.Fatal("expected error from server")
	}

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected error log to be written")
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := NewHTTPClient(srv.URL, testLogger())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	srv.Close()

	if _, err := client.Fetch(context.Background(), 1); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Now()
	httpTime := now.Add(2 * time.Second).UTC().Format(http.TimeFormat)

	cases := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "empty", header: "", want: 5 * time.Second},
		{name: "seconds", header: "7", want: 7 * time.Second},
		{name: "http date", header: httpTime, want: 2 * time.Second},
		{name: "fallback", header: "bad", want: 5 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseRetryAfter(tc.header)
			if tc.header == httpTime {
				if got <= 0 || got > 3*time.Second {
					t.Fatalf("unexpected retry duration %v", got)
				}
			} else if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
