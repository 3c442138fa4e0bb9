package app

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestReporter_Lines(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Step("Fetching tasks from GitHub...")
	r.Success("Found 2 notifications")
	r.Warn("1 tasks could not be added")
	r.Error(errors.New("boom"))
	r.Done()

	lines := strings.Split(strings.TrimRight(ansi.Strip(buf.String()), "\n"), "\n")
	assert.Equal(t, []string{
		"🔄 Fetching tasks from GitHub...",
		"✓ Found 2 notifications",
		"⚠️  1 tasks could not be added",
		"❌ Error: boom",
		"",
		"✅ Done!",
	}, lines)
}
