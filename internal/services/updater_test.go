package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"testing"

	"github.com/desertthunder/acegen/internal/shared"
	tu "github.com/desertthunder/acegen/internal/testing"
)

func releaseClient(status int, body string) *http.Client {
	return &http.Client{Transport: tu.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{},
		}, nil
	})}
}

func TestUpdaterCheck(t *testing.T) {
	t.Run("Detects New Version", func(t *testing.T) {
		client := releaseClient(http.StatusOK, `{"tag_name": "v1.2.0", "assets": []}`)
		updater := NewUpdater(client, shared.NewLogger(io.Discard))

		release, update, err := updater.Check(context.Background(), "v1.1.0")
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !update {
			t.Error("expected update to be available")
		}
		if release.TagName != "v1.2.0" {
			t.Errorf("TagName = %s, want v1.2.0", release.TagName)
		}
	})

	t.Run("Same Version", func(t *testing.T) {
		client := releaseClient(http.StatusOK, `{"tag_name": "v1.1.0", "assets": []}`)
		updater := NewUpdater(client, shared.NewLogger(io.Discard))

		_, update, err := updater.Check(context.Background(), "v1.1.0")
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if update {
			t.Error("expected no update for the current version")
		}
	})

	t.Run("Release Request Failure", func(t *testing.T) {
		client := releaseClient(http.StatusForbidden, `{"message": "rate limited"}`)
		updater := NewUpdater(client, shared.NewLogger(io.Discard))

		_, _, err := updater.Check(context.Background(), "v1.1.0")
		if err == nil || !strings.Contains(err.Error(), "failed to get latest release info") {
			t.Errorf("Check error = %v, want release info failure", err)
		}
	})
}

func TestDownloadURLFor(t *testing.T) {
	t.Run("Matches Platform Asset", func(t *testing.T) {
		name := fmt.Sprintf("acegen_%s_%s", runtime.GOOS, runtime.GOARCH)
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		assets := []Asset{
			{Name: "acegen_plan9_mips", BrowserDownloadURL: "http://example.com/other"},
			{Name: name, BrowserDownloadURL: "http://example.com/binary"},
		}

		url, err := downloadURLFor(assets)
		if err != nil {
			t.Fatalf("downloadURLFor failed: %v", err)
		}
		if url != "http://example.com/binary" {
			t.Errorf("url = %s, want http://example.com/binary", url)
		}
	})

	t.Run("No Matching Asset", func(t *testing.T) {
		_, err := downloadURLFor([]Asset{{Name: "acegen_plan9_mips"}})
		if err == nil || !strings.Contains(err.Error(), "no release asset matches") {
			t.Errorf("downloadURLFor error = %v, want no-match failure", err)
		}
	})
}
