package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/fynelabs/selfupdate"
)

// releaseURL points at the latest published release of this program.
const releaseURL = "https://api.github.com/repos/desertthunder/acegen/releases/latest"

// Updater checks for and installs new releases of the running binary.
type Updater struct {
	httpClient *http.Client
	logger     *log.Logger
}

// NewUpdater creates an update handler.
func NewUpdater(httpClient *http.Client, logger *log.Logger) *Updater {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Updater{httpClient: httpClient, logger: logger}
}

// Release represents a github release.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset represents a github release asset.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Check returns the latest release and whether it differs from
// currentVersion.
func (u *Updater) Check(ctx context.Context, currentVersion string) (*Release, bool, error) {
	release, err := u.latestRelease(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get latest release info: %w", err)
	}
	return release, release.TagName != currentVersion, nil
}

// Apply downloads the release binary for this platform and replaces the
// current executable with it.
func (u *Updater) Apply(ctx context.Context, release *Release) error {
	downloadURL, err := downloadURLFor(release.Assets)
	if err != nil {
		return err
	}
	u.logger.Infof("found binary at %s", downloadURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	u.logger.Info("downloading update")
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download update: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update download returned status %d", resp.StatusCode)
	}

	u.logger.Info("installing update")
	if err := selfupdate.Apply(resp.Body, selfupdate.Options{}); err != nil {
		return fmt.Errorf("failed to update executable: %w", err)
	}

	return nil
}

// latestRelease fetches release metadata from github.
func (u *Updater) latestRelease(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release request returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("failed to decode release response: %w", err)
	}

	return &release, nil
}

// downloadURLFor picks the asset built for this platform.
func downloadURLFor(assets []Asset) (string, error) {
	requiredName := fmt.Sprintf("acegen_%s_%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		requiredName += ".exe"
	}
	for _, asset := range assets {
		if asset.Name == requiredName {
			return asset.BrowserDownloadURL, nil
		}
	}
	return "", fmt.Errorf("no release asset matches binary name %s", requiredName)
}
