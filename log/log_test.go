package log

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("MURMUR_LOG_PATH", "/tmp/murmur-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/murmur-env-log" {
		t.Errorf("got %q, want /tmp/murmur-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("MURMUR_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("expected non-empty default directory")
	}
}

func TestInitCreatesDiagnosticsFile(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(tmp, "diagnostics_log.txt")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("diagnostics_log.txt not created: %v", err)
	}
}

func TestRecordingStopped(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	RecordingStopped("/tmp/rec.wav", 2.5)
	Close()

	data, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	if !strings.Contains(line, "recording_stopped") {
		t.Errorf("diagnostics log missing event, got: %q", line)
	}
	if !strings.Contains(line, "/tmp/rec.wav") {
		t.Errorf("diagnostics log missing path, got: %q", line)
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	// Must not panic or create files with no directory configured.
	Info("ignored")
	Errorf("ignored %d", 1)
	Converted("/tmp/x.wav", "passthrough", 0.1)
}

func TestConcurrentLoggingDuringLifecycle(t *testing.T) {
	setupLogDir(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				Info("tick")
				Warnf("tick %d", n)
				RecordingStopped("/tmp/rec.wav", 1.0)
			}
		}()
	}
	for n := 0; n < 10; n++ {
		if err := Init(); err != nil {
			t.Error(err)
		}
		Close()
	}
	wg.Wait()
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
