package things

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Opener hands a URL to whatever application handles its scheme.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, url string) error

// Open calls f(ctx, url).
func (f OpenerFunc) Open(ctx context.Context, url string) error {
	return f(ctx, url)
}

// SystemOpener opens URLs with the operating system's default handler.
type SystemOpener struct{}

// Ensure SystemOpener implements Opener.
var _ Opener = SystemOpener{}

// Open runs open (macOS), rundll32 (Windows) or xdg-open (others).
func (SystemOpener) Open(ctx context.Context, url string) error {
	name, args := openCommand(runtime.GOOS, url)

	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("execute %s: %w: %s", name, err, string(out))
	}
	return nil
}

func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
