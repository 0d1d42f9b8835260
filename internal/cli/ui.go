package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/recompose/pkg/assemble"
	"github.com/matzehuels/recompose/pkg/container"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/resolve"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Domain Output
// =============================================================================

// renderContainers renders a template as a table. The cached flag marks
// templates served from the document cache.
func renderContainers(tpl container.Template, cached bool) string {
	rows := make([][]string, 0, len(tpl.Containers))
	for _, c := range tpl.Containers {
		rows = append(rows, []string{c.Name, c.ID, formatRect(c.Bounds), formatRect(c.Normalized)})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Name", "ID", "Bounds", "Normalized").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})

	status := styleComputed.Render(iconFresh)
	if cached {
		status = styleCached.Render(iconCached)
	}
	summary := StyleDim.Render(fmt.Sprintf("  canvas %dx%d · %d containers · ", tpl.CanvasW, tpl.CanvasH, len(tpl.Containers))) + status
	return t.Render() + "\n" + summary
}

func formatRect(r design.Rect) string {
	return fmt.Sprintf("%s,%s %sx%s", num(r.X), num(r.Y), num(r.W), num(r.H))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// printResolve prints a resolution result with a status icon.
func printResolve(name string, res resolve.Result) {
	switch {
	case res.Status == resolve.StatusResolved:
		printSuccess("%s %s %s", name, StyleDim.Render(iconArrow), res.Node.Name)
	case res.Status.Warning():
		printWarning("%s: %s", name, res.Message)
	default:
		printError("%s: %s", name, res.Message)
	}
	printDetail("status %s · %d layers", res.Status, res.Count)
}

// printPayload prints a one-line summary of a slot payload.
func printPayload(key string, p design.Payload) {
	line := fmt.Sprintf("%s  %s", StyleValue.Render(key), StyleNumber.Render(string(p.Status)))
	if p.Status == design.StatusIdle || p.Status == design.StatusError {
		if p.Error != "" {
			line += "  " + StyleWarning.Render(p.Error)
		}
		fmt.Println(line)
		return
	}
	line += StyleDim.Render(fmt.Sprintf("  %d layers · scale %s", len(p.Layers), num(round3(p.ScaleFactor))))
	if p.RequiresGeneration != nil && *p.RequiresGeneration {
		line += StyleDim.Render(" · generative")
	}
	fmt.Println(line)
}

func round3(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	return f
}

// printAssembly prints export statistics and any audit violations.
func printAssembly(w io.Writer, stats assemble.Stats, report assemble.Report) {
	fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf("  %d slots · %d layers · %d skipped · %d dropped",
		stats.Slots, stats.Layers, stats.Skipped, stats.Dropped)))
	printViolations(w, report)
}

func printViolations(w io.Writer, report assemble.Report) {
	for _, v := range report.Violations {
		fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf("%s %s: %s", v.Kind, v.Container, v.Message)))
	}
}
