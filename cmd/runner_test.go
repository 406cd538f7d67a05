package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/acegen/internal/services"
	"github.com/desertthunder/acegen/internal/shared"
	tu "github.com/desertthunder/acegen/internal/testing"
	"github.com/urfave/cli/v3"
)

type fakeNotifier struct {
	subject string
	body    string
	err     error
	calls   int
}

func (f *fakeNotifier) SendEmail(_ context.Context, subject, body string) error {
	f.calls++
	f.subject = subject
	f.body = body
	return f.err
}

type fakeEngine struct {
	version *services.EngineVersion
	err     error
}

func (f *fakeEngine) Version(context.Context) (*services.EngineVersion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.version, nil
}

func (f *fakeEngine) SearchAll(context.Context) ([]services.SearchResult, error) {
	return nil, nil
}

func (f *fakeEngine) WaitUntilAvailable(context.Context) error {
	return f.err
}

func (f *fakeEngine) Addr() string {
	return "127.0.0.1:6878"
}

func (f *fakeEngine) StreamURL(infohash string) string {
	return "http://127.0.0.1:6878/ace/getstream?infohash=" + infohash
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	configPath := filepath.Join(dir, "acegen.toml")
	content := fmt.Sprintf(`[engine]
addr = "127.0.0.1:6878"

[[destinations]]
name = "main"
output_path = %q
header = "#EXTM3U\n"
entry_template = "#EXTINF:-1,{{.Name}}\n"
`, filepath.Join(dir, "main.m3u8"))
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			engine := &fakeEngine{}
			notifier := &fakeNotifier{}
			httpClient := &http.Client{}
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			stdin := strings.NewReader("")

			runner := NewRunner(RunnerOpts{
				Engine:     engine,
				Notifier:   notifier,
				HTTPClient: httpClient,
				Logger:     logger,
				Output:     output,
				Stdin:      stdin,
			})

			if runner.engine != engine {
				t.Error("expected engine to be set")
			}
			if runner.notifier != notifier {
				t.Error("expected notifier to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.stdin != stdin {
				t.Error("expected stdin to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Logger: nil,
			})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Output: nil,
			})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				HTTPClient: nil,
			})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil stdin uses os.Stdin", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Stdin: nil,
			})

			if runner.stdin != os.Stdin {
				t.Error("expected stdin to default to os.Stdin")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})

	t.Run("destinationByName", func(t *testing.T) {
		config := &shared.Config{Destinations: []shared.Destination{
			{Name: "main", OutputPath: "main.m3u8"},
			{Name: "tv", OutputPath: "tv.m3u8"},
		}}

		t.Run("defaults to the first destination", func(t *testing.T) {
			dest, err := destinationByName(config, "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if dest.Name != "main" {
				t.Errorf("expected main, got %s", dest.Name)
			}
		})

		t.Run("finds a destination by name", func(t *testing.T) {
			dest, err := destinationByName(config, "tv")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if dest.Name != "tv" {
				t.Errorf("expected tv, got %s", dest.Name)
			}
		})

		t.Run("rejects an unknown name", func(t *testing.T) {
			_, err := destinationByName(config, "nope")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("falls back to defaults when the file is missing", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			config, err := runner.loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Engine.Addr != "127.0.0.1:6878" {
				t.Errorf("expected default engine addr, got %s", config.Engine.Addr)
			}
		})

		t.Run("loads an existing file", func(t *testing.T) {
			configPath := writeTestConfig(t, t.TempDir())
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			config, err := runner.loadConfig(configPath)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(config.Destinations) != 1 || config.Destinations[0].Name != "main" {
				t.Errorf("expected one destination named main, got %+v", config.Destinations)
			}
		})

		t.Run("rejects an invalid file", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "acegen.toml")
			if err := os.WriteFile(configPath, []byte("[engine]\naddr = \"\"\n"), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			if _, err := runner.loadConfig(configPath); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("resolveConfig", func(t *testing.T) {
		t.Run("creates the file from the template", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "acegen.toml")
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			config, err := runner.resolveConfig(configPath)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, configPath)
			if len(config.Destinations) == 0 {
				t.Error("expected template destinations")
			}
		})
	})

	t.Run("superviseRun", func(t *testing.T) {
		t.Run("returns nil on clean stop", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.superviseRun(context.Background(), &shared.Config{}, func(context.Context) error {
				return nil
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("treats cancellation as a clean stop", func(t *testing.T) {
			notifier := &fakeNotifier{}
			runner := NewRunner(RunnerOpts{Notifier: notifier, Output: &bytes.Buffer{}})
			config := &shared.Config{Crash: shared.CrashConfig{Notify: true}}

			err := runner.superviseRun(context.Background(), config, func(context.Context) error {
				return fmt.Errorf("cycle aborted: %w", context.Canceled)
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if notifier.calls != 0 {
				t.Errorf("expected no notification, got %d", notifier.calls)
			}
		})

		t.Run("returns the run error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			boom := errors.New("boom")

			err := runner.superviseRun(context.Background(), &shared.Config{}, func(context.Context) error {
				return boom
			})
			if !errors.Is(err, boom) {
				t.Errorf("expected boom, got %v", err)
			}
		})

		t.Run("recovers panics into errors", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.superviseRun(context.Background(), &shared.Config{}, func(context.Context) error {
				panic("kaboom")
			})
			if err == nil {
				t.Fatal("expected error from panic")
			}
			if !strings.Contains(err.Error(), "panic: kaboom") {
				t.Errorf("expected panic message, got %v", err)
			}
		})

		t.Run("sends crash notification", func(t *testing.T) {
			notifier := &fakeNotifier{}
			runner := NewRunner(RunnerOpts{Notifier: notifier, Output: &bytes.Buffer{}})
			config := &shared.Config{Crash: shared.CrashConfig{Notify: true}}
			boom := errors.New("boom")

			err := runner.superviseRun(context.Background(), config, func(context.Context) error {
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			if notifier.calls != 1 {
				t.Fatalf("expected one notification, got %d", notifier.calls)
			}
			want := "acegen has crashed on " + shared.HostTag()
			if notifier.subject != want {
				t.Errorf("expected subject %q, got %q", want, notifier.subject)
			}
			if notifier.body != "boom" {
				t.Errorf("expected body %q, got %q", "boom", notifier.body)
			}
		})

		t.Run("notification failure keeps the original error", func(t *testing.T) {
			notifier := &fakeNotifier{err: errors.New("smtp down")}
			runner := NewRunner(RunnerOpts{Notifier: notifier, Output: &bytes.Buffer{}})
			config := &shared.Config{Crash: shared.CrashConfig{Notify: true}}
			boom := errors.New("boom")

			err := runner.superviseRun(context.Background(), config, func(context.Context) error {
				return boom
			})
			if !errors.Is(err, boom) {
				t.Errorf("expected boom, got %v", err)
			}
		})

		t.Run("pauses for acknowledgment when configured", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Stdin: strings.NewReader("\n")})
			config := &shared.Config{Crash: shared.CrashConfig{Pause: true}}

			err := runner.superviseRun(context.Background(), config, func(context.Context) error {
				return errors.New("boom")
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(output.String(), "Press <Enter> to exit...") {
				t.Errorf("expected pause prompt, got %q", output.String())
			}
		})
	})

	t.Run("Status", func(t *testing.T) {
		t.Run("reports a reachable engine", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{
				Engine: &fakeEngine{version: &services.EngineVersion{Code: 3016600, Platform: "linux", Version: "3.1.66"}},
				Output: output,
			})
			app := &cli.Command{Commands: runner.register()}

			configPath := filepath.Join(t.TempDir(), "missing.toml")
			if err := app.Run(context.Background(), []string{"acegen", "status", "--config", configPath}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "✓ Engine is running at 127.0.0.1:6878") {
				t.Errorf("expected engine status line, got %q", result)
			}
			if !strings.Contains(result, "3.1.66") {
				t.Errorf("expected engine version, got %q", result)
			}
		})

		t.Run("surfaces an unreachable engine", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Engine: &fakeEngine{err: errors.New("connection refused")},
				Output: &bytes.Buffer{},
			})
			app := &cli.Command{Commands: runner.register()}

			configPath := filepath.Join(t.TempDir(), "missing.toml")
			err := app.Run(context.Background(), []string{"acegen", "status", "--config", configPath})
			if !errors.Is(err, shared.ErrEngineUnavailable) {
				t.Errorf("expected ErrEngineUnavailable, got %v", err)
			}
		})
	})
}
