package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mvp-joe/ldraw-import/internal/registry"
	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter draws progress bars for part resolution and indexing.
type CLIProgressReporter struct {
	quiet      bool
	w          io.Writer
	resolveBar *progressbar.ProgressBar
	indexBar   *progressbar.ProgressBar
	startTime  time.Time
}

var _ registry.ProgressReporter = (*CLIProgressReporter)(nil)

// NewCLIProgressReporter creates a new CLI progress reporter writing to w.
func NewCLIProgressReporter(w io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet:     quiet,
		w:         w,
		startTime: time.Now(),
	}
}

func (c *CLIProgressReporter) OnResolveStart(total int) {
	if c.quiet {
		return
	}
	c.startTime = time.Now()
	c.resolveBar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("Resolving parts"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("parts/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.w)
		}),
	)
}

// OnPartResolved is safe for concurrent use; the bar serializes updates.
func (c *CLIProgressReporter) OnPartResolved(partID string, found bool) {
	if c.quiet || c.resolveBar == nil {
		return
	}
	c.resolveBar.Add(1)
}

func (c *CLIProgressReporter) OnResolveComplete(summary registry.Summary) {
	if c.quiet {
		return
	}
	if c.resolveBar != nil {
		c.resolveBar.Finish()
		c.resolveBar = nil
	}
	fmt.Fprintf(c.w, "✓ Resolved %s unique parts in %.1fs (%s found, %s missing)\n",
		formatNumber(summary.Unique), time.Since(c.startTime).Seconds(),
		formatNumber(summary.Found), formatNumber(summary.Missing))
}

// OnIndexStart shows a spinner; the asset count is unknown until the walk ends.
func (c *CLIProgressReporter) OnIndexStart() {
	if c.quiet {
		return
	}
	c.startTime = time.Now()
	c.indexBar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription("Indexing library"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("assets/s"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
	)
}

func (c *CLIProgressReporter) OnAssetIndexed(partID string) {
	if c.quiet || c.indexBar == nil {
		return
	}
	c.indexBar.Add(1)
}

func (c *CLIProgressReporter) OnIndexComplete(count int) {
	if c.quiet {
		return
	}
	if c.indexBar != nil {
		c.indexBar.Finish()
		c.indexBar = nil
		fmt.Fprintln(c.w)
	}
	fmt.Fprintf(c.w, "✓ Indexed %s assets in %.1fs\n", formatNumber(count), time.Since(c.startTime).Seconds())
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, ch := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}
	return string(out)
}
