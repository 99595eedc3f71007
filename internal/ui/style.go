package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintBanner renders the colored critpath banner to w.
func PrintBanner(w io.Writer) {
	frame := color.New(color.FgCyan)
	path := color.New(color.Bold, color.FgRed)
	slack := color.New(color.FgYellow, color.Faint)
	brand := color.New(color.Bold, color.FgMagenta)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +--------------------------+")
	path.Fprintln(w, "   |  o==o==o==o==o==o==o==o  |")
	slack.Fprintln(w, "   |      \\--o--o--/          |")
	brand.Fprintln(w, "   |  C  R  I  T  P  A  T  H  |")
	frame.Fprintln(w, "   +--------------------------+")
	fmt.Fprintln(w)
}

// chainColors is a palette of distinct bold colors for differentiating
// driving chains.
var chainColors = []func(a ...interface{}) string{
	BoldRed,
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiGreen).SprintFunc(),
}

// ChainLabel returns a colored "#n" label for the 1-based chain index n.
func ChainLabel(n int) string {
	c := chainColors[(n-1+len(chainColors))%len(chainColors)]
	return Dim("[") + c(fmt.Sprintf("#%d", n)) + Dim("]")
}

// Criticality names a task's classification for display.
type Criticality string

const (
	Critical     Criticality = "critical"
	NearCritical Criticality = "near"
	Normal       Criticality = "normal"
)

// CriticalityIcon returns a colored icon for compact table display.
func CriticalityIcon(c Criticality) string {
	switch c {
	case Critical:
		return BoldRed("⚡")
	case NearCritical:
		return Yellow("◐")
	default:
		return Dim("◌")
	}
}

// FloatText formats a float value in days. Infinite values render as a dash.
func FloatText(f float64, finite bool) string {
	if !finite {
		return Dim("-")
	}
	switch {
	case f <= 0:
		return Red(fmt.Sprintf("%gd", f))
	default:
		return fmt.Sprintf("%gd", f)
	}
}
