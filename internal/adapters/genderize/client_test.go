package genderize_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"review_proxy/internal/adapters/genderize"
	"review_proxy/internal/domain"
)

func TestGuessGender(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "anna":
			_, _ = io.WriteString(w, `{"count":100,"name":"anna","gender":"female","probability":0.98}`)
		case "zzz":
			_, _ = io.WriteString(w, `{"count":0,"name":"zzz","gender":null,"probability":0}`)
		case "slow":
			time.Sleep(200 * time.Millisecond)
			_, _ = io.WriteString(w, `{"gender":"male"}`)
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer ts.Close()

	c := genderize.New(ts.URL, 50*time.Millisecond)
	ctx := context.Background()

	if g, err := c.GuessGender(ctx, "anna"); err != nil || g != "female" {
		t.Fatalf("anna: %q %v", g, err)
	}
	if _, err := c.GuessGender(ctx, "zzz"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("zzz: expected ErrNotFound, got %v", err)
	}
	if _, err := c.GuessGender(ctx, "slow"); err == nil {
		t.Fatalf("slow: expected timeout error")
	}
	if _, err := c.GuessGender(ctx, "limited"); err == nil {
		t.Fatalf("limited: expected status error")
	}
}
