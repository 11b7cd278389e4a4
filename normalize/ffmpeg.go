package normalize

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// convertFFmpeg shells out to ffmpeg through temp files; stdin piping
// does not work for containers that need seeking.
func convertFFmpeg(data []byte) ([]byte, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found in PATH", ErrToolMissing)
	}

	tmpDir, err := os.MkdirTemp("", "murmur-convert-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "input")
	outPath := filepath.Join(tmpDir, "output.wav")
	if err := os.WriteFile(inPath, data, 0600); err != nil {
		return nil, err
	}

	cmd := exec.Command(ffmpeg,
		"-i", inPath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y", outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrToolFailed, err, lastLine(&stderr))
	}
	return os.ReadFile(outPath)
}

// FFmpegAvailable reports whether the ffmpeg fallback can run at all.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

func lastLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
