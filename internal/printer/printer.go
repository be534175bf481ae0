// Package printer provides colored terminal output helpers for the
// easel CLI, including decision-table and journal-event rendering.
package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/dyluth/easel/pkg/deck"
	"github.com/dyluth/easel/pkg/journal"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	// Color definitions
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)

	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}

// DecisionTable renders a plan's per-slide decisions as an aligned
// table. Degraded decisions are highlighted in yellow.
func DecisionTable(plan *deck.PresentationPlan) {
	fmt.Printf("%-4s %-28s %-20s %-16s %-16s %-10s %-6s %s\n",
		"#", "TITLE", "SERVICE", "VARIANT", "LAYOUT", "ZONE", "CONF", "STATE")

	for i := range plan.Decisions {
		d := &plan.Decisions[i]
		title := truncate(plan.Slides[i].Title, 28)
		zone := fmt.Sprintf("%dx%d", d.Zone.Width, d.Zone.Height)

		line := fmt.Sprintf("%-4d %-28s %-20s %-16s %-16s %-10s %-6.2f ",
			d.SlideIndex, title, d.ServiceID, d.Variant, d.LayoutID, zone, d.Confidence)

		if d.Degraded {
			fmt.Print(line)
			yellow.Println("degraded")
		} else {
			fmt.Print(line)
			green.Println("ok")
		}
	}
}

// EventLine renders a single journal event as one log-style line.
func EventLine(event *journal.Event) {
	slide := "plan"
	if event.SlideIndex >= 0 {
		slide = fmt.Sprintf("slide %d", event.SlideIndex)
	}

	detail := ""
	if event.ServiceID != "" {
		detail += " service=" + event.ServiceID
	}
	if event.Variant != "" {
		detail += " variant=" + event.Variant
	}
	if event.LayoutID != "" {
		detail += " layout=" + event.LayoutID
	}
	if event.Confidence > 0 {
		detail += fmt.Sprintf(" confidence=%.2f", event.Confidence)
	}
	if event.Reason != "" {
		detail += " reason=" + event.Reason
	}

	if event.Degraded {
		yellow.Printf("%-22s %-9s%s\n", event.Type, slide, detail)
		return
	}
	fmt.Printf("%-22s %-9s%s\n", event.Type, slide, detail)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
