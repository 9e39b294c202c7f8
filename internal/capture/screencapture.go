package capture

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ScreenCapture grabs a region of the target application's front window on
// macOS. Window bounds come from System Events via osascript; pixels come
// from the screencapture utility. A capture fails when the window is not
// visible, which the monitor treats as a skipped cycle.
type ScreenCapture struct {
	processName       string
	screencapturePath string
	osascriptPath     string
	tempDir           string
}

func NewScreenCapture(processName string) (*ScreenCapture, error) {
	screencapturePath, err := exec.LookPath("screencapture")
	if err != nil {
		return nil, fmt.Errorf("screencapture not found in PATH: %w", err)
	}

	osascriptPath, err := exec.LookPath("osascript")
	if err != nil {
		return nil, fmt.Errorf("osascript not found in PATH: %w", err)
	}

	tempDir := filepath.Join(os.TempDir(), "awslbot-frames")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &ScreenCapture{
		processName:       processName,
		screencapturePath: screencapturePath,
		osascriptPath:     osascriptPath,
		tempDir:           tempDir,
	}, nil
}

func (sc *ScreenCapture) Capture(ctx context.Context, region Region) ([]byte, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	wx, wy, ww, wh, err := sc.windowBounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to locate %s window: %w", sc.processName, err)
	}

	// Ratio rect -> absolute screen rect.
	left := wx + ww*region.Left
	top := wy + wh*region.Top
	width := ww * region.Width
	height := wh * region.Height

	tempFile := filepath.Join(sc.tempDir, fmt.Sprintf("frame_%d.png", os.Getpid()))
	defer os.Remove(tempFile)

	rect := fmt.Sprintf("%.0f,%.0f,%.0f,%.0f", left, top, width, height)
	cmd := exec.CommandContext(ctx, sc.screencapturePath, "-x", "-R", rect, tempFile)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Printf("screencapture stderr: %s", stderr.String())
		return nil, fmt.Errorf("failed to capture region %s: %w", rect, err)
	}

	data, err := os.ReadFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read captured frame: %w", err)
	}

	return data, nil
}

// windowBounds returns the front window's position and size in screen points.
func (sc *ScreenCapture) windowBounds(ctx context.Context) (x, y, w, h float64, err error) {
	script := fmt.Sprintf(`
	tell application "System Events"
		tell process "%s"
			set win to window 1
			set {wx, wy} to position of win
			set {ww, wh} to size of win
			return (wx as text) & "," & (wy as text) & "," & (ww as text) & "," & (wh as text)
		end tell
	end tell
	`, sc.processName)

	cmd := exec.CommandContext(ctx, sc.osascriptPath, "-e", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("osascript failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	parts := strings.Split(strings.TrimSpace(stdout.String()), ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("unexpected window bounds output: %q", stdout.String())
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("failed to parse window bounds %q: %w", p, err)
		}
		vals[i] = v
	}

	return vals[0], vals[1], vals[2], vals[3], nil
}

// ListWindows returns the names of the target process's open windows, one
// per chat. Window names can contain commas, so the script joins them with
// linefeeds before returning.
func (sc *ScreenCapture) ListWindows(ctx context.Context) ([]string, error) {
	script := fmt.Sprintf(`
	set AppleScript's text item delimiters to linefeed
	tell application "System Events"
		tell process "%s"
			return (name of every window) as text
		end tell
	end tell
	`, sc.processName)

	cmd := exec.CommandContext(ctx, sc.osascriptPath, "-e", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("osascript failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	var names []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}

	return names, nil
}

func (sc *ScreenCapture) Cleanup() error {
	return os.RemoveAll(sc.tempDir)
}
