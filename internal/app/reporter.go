package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nhle/task-consolidator/internal/theme"
)

// Reporter writes human-readable progress lines. It is kept apart from the
// formatted task output so stdout stays pipeable.
type Reporter struct {
	w io.Writer
}

// NewReporter creates a reporter writing to w (usually stderr).
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Step announces an operation that is about to start.
func (r *Reporter) Step(msg string) {
	fmt.Fprintln(r.w, theme.StepStyle.Render("🔄 "+msg))
}

// Success reports a completed operation.
func (r *Reporter) Success(msg string) {
	fmt.Fprintln(r.w, theme.SuccessStyle.Render("✓ ")+msg)
}

// Warn reports a non-fatal problem.
func (r *Reporter) Warn(msg string) {
	fmt.Fprintln(r.w, theme.WarnStyle.Render("⚠️  "+msg))
}

// Done prints the closing banner.
func (r *Reporter) Done() {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, theme.DoneStyle.Render("✅ Done!"))
}

// Error prints a fatal error line.
func (r *Reporter) Error(err error) {
	fmt.Fprintln(r.w, theme.ErrorStyle.Render("❌ Error:"), err.Error())
}

// Hint prints secondary text such as a remediation path.
func (r *Reporter) Hint(msg string) {
	fmt.Fprintln(r.w, theme.HintStyle.Render(msg))
}

// count renders n in the emphasis style.
func count(n int) string {
	return theme.EmphasisStyle.Render(strconv.Itoa(n))
}
