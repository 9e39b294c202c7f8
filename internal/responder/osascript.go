package responder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// OsascriptInjector pastes into the target application's input field on
// macOS: the content goes onto the system clipboard, then AppleScript sends
// Cmd-V and Return to the process. The app must be frontmost for the
// keystrokes to land, so every send activates it first.
type OsascriptInjector struct {
	processName   string
	osascriptPath string
	tempDir       string
}

func NewOsascriptInjector(processName string) (*OsascriptInjector, error) {
	osascriptPath, err := exec.LookPath("osascript")
	if err != nil {
		return nil, fmt.Errorf("osascript not found in PATH: %w", err)
	}

	tempDir := filepath.Join(os.TempDir(), "awslbot-assets")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &OsascriptInjector{
		processName:   processName,
		osascriptPath: osascriptPath,
		tempDir:       tempDir,
	}, nil
}

func (inj *OsascriptInjector) Send(ctx context.Context, asset *Asset) error {
	ext := ".jpg"
	if strings.Contains(asset.ContentType, "png") {
		ext = ".png"
	}

	tempFile := filepath.Join(inj.tempDir, fmt.Sprintf("asset_%d%s", time.Now().UnixNano(), ext))
	if err := os.WriteFile(tempFile, asset.Data, 0644); err != nil {
		return fmt.Errorf("failed to write asset file: %w", err)
	}
	defer os.Remove(tempFile)

	copyScript := fmt.Sprintf(`
	set theFile to POSIX file "%s"
	try
		set the clipboard to (read theFile as JPEG picture)
	on error
		set the clipboard to (read theFile as «class PNGf»)
	end try
	`, tempFile)

	if err := inj.runScript(ctx, copyScript); err != nil {
		return fmt.Errorf("failed to copy image to clipboard: %w", err)
	}

	if err := inj.activate(ctx); err != nil {
		return err
	}

	return inj.paste(ctx, 0.5)
}

func (inj *OsascriptInjector) SendText(ctx context.Context, text string) error {
	copyScript := fmt.Sprintf(`set the clipboard to %q`, text)
	if err := inj.runScript(ctx, copyScript); err != nil {
		return fmt.Errorf("failed to copy text to clipboard: %w", err)
	}

	if err := inj.activate(ctx); err != nil {
		return err
	}

	return inj.paste(ctx, 0.3)
}

func (inj *OsascriptInjector) activate(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "open", "-a", inj.processName)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to activate %s: %w", inj.processName, err)
	}
	time.Sleep(300 * time.Millisecond)
	return nil
}

// paste sends Cmd-V then Return; pasteDelay gives the app time to render
// the pasted content before submitting (images need longer than text).
func (inj *OsascriptInjector) paste(ctx context.Context, pasteDelay float64) error {
	script := fmt.Sprintf(`
	tell application "System Events"
		tell process "%s"
			keystroke "v" using command down
			delay %.1f
			key code 36
		end tell
	end tell
	`, inj.processName, pasteDelay)

	if err := inj.runScript(ctx, script); err != nil {
		return fmt.Errorf("failed to paste into %s: %w", inj.processName, err)
	}

	return nil
}

func (inj *OsascriptInjector) runScript(ctx context.Context, script string) error {
	cmd := exec.CommandContext(ctx, inj.osascriptPath, "-e", script)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("osascript failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	return nil
}

func (inj *OsascriptInjector) Cleanup() error {
	return os.RemoveAll(inj.tempDir)
}
