package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	// diagLog is nil until Init succeeds; every helper is a no-op
	// before that. Stored atomically so logging and Init/Close can
	// overlap.
	diagLog  atomic.Pointer[zerolog.Logger]
	diagFile *os.File
	logMu    sync.Mutex
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: MURMUR_LOG_PATH environment variable
	envPath := os.Getenv("MURMUR_LOG_PATH")
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	f, err := os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	diagFile = f

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	l := zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()
	diagLog.Store(&l)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	diagLog.Store(nil)
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
}

func Info(msg string) {
	if l := diagLog.Load(); l != nil {
		l.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if l := diagLog.Load(); l != nil {
		l.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if l := diagLog.Load(); l != nil {
		l.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if l := diagLog.Load(); l != nil {
		l.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if l := diagLog.Load(); l != nil {
		l.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if l := diagLog.Load(); l != nil {
		l.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func RecordingStarted(path string) {
	l := diagLog.Load()
	if l == nil {
		return
	}
	l.Info().
		Str("path", path).
		Msg("recording_started")
}

func RecordingStopped(path string, seconds float64) {
	l := diagLog.Load()
	if l == nil {
		return
	}
	l.Info().
		Str("path", path).
		Float64("audio_s", seconds).
		Msg("recording_stopped")
}

func Converted(path, method string, ms float64) {
	l := diagLog.Load()
	if l == nil {
		return
	}
	l.Info().
		Str("path", path).
		Str("method", method).
		Float64("total_ms", ms).
		Msg("audio_converted")
}

func DeviceScan(count int, ms float64) {
	l := diagLog.Load()
	if l == nil {
		return
	}
	l.Info().
		Int("devices", count).
		Float64("scan_ms", ms).
		Msg("device_scan")
}
