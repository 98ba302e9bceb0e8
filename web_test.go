/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Seednode/lineup/games/lineup"
)

func testServer(t *testing.T, prefix string) *httptest.Server {
	t.Helper()

	roster, err := lineup.LoadRoster("")
	if err != nil {
		t.Fatalf("loading roster: %v", err)
	}

	cfg := &Config{port: 8080, prefix: prefix}
	errs := make(chan error, 64)

	mux, err := newRouter(cfg, roster, errs)
	if err != nil {
		t.Fatalf("building router: %v", err)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	client := &http.Client{CheckRedirect: noRedirect}

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", url, err)
	}

	return resp, string(body)
}

func TestHealthAndVersion(t *testing.T) {
	srv := testServer(t, "")

	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "Ok\n" {
		t.Fatalf("healthz returned %d %q", resp.StatusCode, body)
	}

	resp, body = get(t, srv.URL+"/version")
	if resp.StatusCode != http.StatusOK || body != "lineup v"+releaseVersion+"\n" {
		t.Fatalf("version returned %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestNewRoundRedirect(t *testing.T) {
	srv := testServer(t, "/games")

	resp, _ := get(t, srv.URL+"/games/lineup")
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}

	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/games/lineup/") || len(loc) != len("/games/lineup/")+8 {
		t.Fatalf("unexpected redirect target %q", loc)
	}
}

func TestRoundPage(t *testing.T) {
	srv := testServer(t, "")

	resp, body := get(t, srv.URL+"/lineup/abcdefgh")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Security-Policy"), "img-src") {
		t.Fatalf("expected game CSP, got %q", resp.Header.Get("Content-Security-Policy"))
	}
	// roster images may live on hosts that never send CORP
	if coep := resp.Header.Get("Cross-Origin-Embedder-Policy"); coep != "credentialless" {
		t.Fatalf("expected credentialless COEP, got %q", coep)
	}

	for _, id := range []string{`id="images"`, `id="charges"`, `id="chargeSlots"`} {
		if !strings.Contains(body, id) {
			t.Fatalf("page missing %s", id)
		}
	}

	if n := strings.Count(body, `class="person"`); n != lineup.SelectionSize {
		t.Fatalf("expected %d people, got %d", lineup.SelectionSize, n)
	}

	charges := strings.Count(body, `class="charge"`)
	slots := strings.Count(body, `class="chargeSlot"`)
	if charges == 0 || charges != slots {
		t.Fatalf("expected one slot per charge, got %d charges and %d slots", charges, slots)
	}

	// same round ID, same board
	_, again := get(t, srv.URL+"/lineup/abcdefgh")
	if again != body {
		t.Fatalf("round changed between page loads")
	}
}

func TestLeaderboardPage(t *testing.T) {
	srv := testServer(t, "")

	resp, body := get(t, srv.URL+"/leaderboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if coep := resp.Header.Get("Cross-Origin-Embedder-Policy"); coep != "credentialless" {
		t.Fatalf("expected credentialless COEP, got %q", coep)
	}
	if !strings.Contains(body, "Devon Park") {
		t.Fatalf("leaderboard missing top entry:\n%s", body)
	}
	if strings.Index(body, "Devon Park") > strings.Index(body, "Casey Whitfield") {
		t.Fatalf("leaderboard out of order")
	}
}

func TestAssets(t *testing.T) {
	srv := testServer(t, "")

	resp, body := get(t, srv.URL+"/assets/lineup/app.js")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "checkAnswers") {
		t.Fatalf("app.js not served: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/javascript") {
		t.Fatalf("unexpected content type %q", ct)
	}

	resp, _ = get(t, srv.URL+"/assets/lineup/mugshots/avery.svg")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("mugshot not served: %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, _ = get(t, srv.URL+"/assets/lineup/index.html")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("templates should not be served, got %d", resp.StatusCode)
	}

	resp, _ = get(t, srv.URL+"/favicons/favicon.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("favicon not served: %d", resp.StatusCode)
	}
}

func TestManifestUnderPrefix(t *testing.T) {
	srv := testServer(t, "/games")

	resp, body := get(t, srv.URL+"/games/favicons/site.webmanifest")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manifest not served: %d", resp.StatusCode)
	}
	if strings.Contains(body, `"/favicons/`) {
		t.Fatalf("manifest icons ignore the prefix:\n%s", body)
	}

	resp, _ = get(t, srv.URL+"/games/favicons/favicon.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("manifest icon not served under prefix: %d", resp.StatusCode)
	}
}

func TestQRCode(t *testing.T) {
	srv := testServer(t, "")

	resp, body := get(t, srv.URL+"/lineup/abcdefgh/qr")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("expected png, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.HasPrefix(body, "\x89PNG") {
		t.Fatalf("body is not a png")
	}
}
