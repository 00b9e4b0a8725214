package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"h265-compressor/config"
	"h265-compressor/encoder"
)

// formatSpeed renders media seconds encoded per wall second
func formatSpeed(media, wall time.Duration) string {
	if media <= 0 || wall <= 0 {
		return "—"
	}
	return fmt.Sprintf("%.2fx", media.Seconds()/wall.Seconds())
}

// estimateETA extrapolates remaining wall time from the share done so far
func estimateETA(percent int, wall time.Duration) (time.Duration, bool) {
	if percent <= 0 || percent >= 100 || wall <= 0 {
		return 0, false
	}
	remaining := time.Duration(float64(wall) * float64(100-percent) / float64(percent))
	return remaining, true
}

// formatETADisplay handles unavailable ETA gracefully
func formatETADisplay(eta time.Duration, available bool) string {
	if !available || eta < 0 {
		return "—"
	}
	return formatDuration(eta)
}

// formatPercentage handles runs where no percentage can be derived
func formatPercentage(pct int, known bool) string {
	if !known {
		return "..."
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("%d%%", pct)
}

// getPercentageStyle returns appropriate style based on progress
func getPercentageStyle(pct int) lipgloss.Style {
	if pct < 33 {
		return percentLowStyle
	} else if pct < 66 {
		return percentMidStyle
	}
	return percentHighStyle
}

// formatSizeDisplay handles early encoding when size is unavailable
func formatSizeDisplay(size int64) string {
	if size <= 0 {
		return "—"
	}
	return formatBytes(size)
}

func formatCPU(pct float64) string {
	if pct <= 0 {
		return "—"
	}
	return fmt.Sprintf("%.0f%%", pct)
}

// outcomeMessage is the text shown for a finished run
func outcomeMessage(o encoder.Outcome) string {
	switch o.Status {
	case encoder.StatusSuccess:
		return "Compression completed ✓"
	case encoder.StatusCancelled:
		return "Encoding cancelled."
	}
	switch o.Reason {
	case encoder.ReasonToolNotFound:
		return "ffmpeg executable not found."
	case encoder.ReasonExitStatus:
		return fmt.Sprintf("ffmpeg exited with code %d.", o.ExitCode)
	}
	if o.Err != nil {
		return fmt.Sprintf("ffmpeg could not run: %v", o.Err)
	}
	return "ffmpeg failed."
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	// Title
	title := titleStyle.Render(" ⚡ H.265 Compressor ")
	b.WriteString(title + "\n")

	var help string
	switch m.State {
	case StateForm:
		b.WriteString(m.renderFormView())
		help = "  [Tab] Next field  •  [Enter] Start  •  [Esc] Quit"

	case StateStarting:
		b.WriteString("\n  " + m.Spinner.View() + statValueStyle.Render(" Probing input...") + "\n")
		help = "  [Ctrl+C] Quit"

	case StateEncoding:
		b.WriteString(m.renderEncodingView())
		help = "  [C] Cancel  •  [L] Toggle logs  •  [Q] Quit"
		if m.quitting || (m.sup != nil && m.sup.Cancelled()) {
			help = "  Cancelling..."
		}

	case StateDone:
		b.WriteString(m.renderDoneView())
		help = "  [Enter] New encode  •  [L] Toggle logs  •  [Q] Quit"

	case StateError:
		b.WriteString(m.renderErrorView())
		help = "  [Enter] New encode  •  [L] Toggle logs  •  [Q] Quit"

	case StateCancelled:
		b.WriteString(m.renderCancelledView())
		help = "  [Enter] New encode  •  [L] Toggle logs  •  [Q] Quit"
	}

	// Help footer
	b.WriteString("\n" + helpStyle.Render(help) + "\n")

	return b.String()
}

func (m Model) renderFormView() string {
	var b strings.Builder
	b.WriteString("\n")

	for i, label := range fieldLabels {
		style := formLabelStyle
		if i == m.form.focus {
			style = formFocusLabelStyle
		}
		line := "  " + style.Render(label) + m.form.inputs[i].View()
		if i == fieldCRF {
			line += formHintStyle.Render(fmt.Sprintf("  %d-%d, lower is better", config.MinCRF, config.MaxCRF))
		}
		b.WriteString(line + "\n")
	}

	profile := fmt.Sprintf("  Profile %s: %s  •  codec %s", m.Config.ProfileName, config.ProfileDescription(m.Config.ProfileName), m.Config.Codec)
	b.WriteString("\n" + formHintStyle.Render(profile) + "\n")

	if m.form.err != "" {
		b.WriteString("\n" + errorStyle.Render("  ✗ "+m.form.err) + "\n")
	}
	return b.String()
}

func (m Model) renderEncodingView() string {
	var b strings.Builder

	if m.sup == nil {
		return "\n" + statValueStyle.Render("  Starting encoder...") + "\n"
	}

	known := m.sup.Duration() > 0

	// Progress section
	b.WriteString("\n")

	percentage := float64(m.percent) / 100
	if percentage > 1 {
		percentage = 1
	}
	if percentage < 0 {
		percentage = 0
	}

	var bar string
	if known {
		bar = m.Progress.ViewAs(percentage)
	} else {
		// No duration: show activity only
		bar = m.Spinner.View() + statUnitStyle.Render(" duration unknown, progress unavailable")
	}

	pctStr := formatPercentage(m.percent, known && m.haveProgress)
	pctStyled := getPercentageStyle(m.percent).Render(pctStr)

	b.WriteString("  " + bar + "  " + pctStyled + "\n")

	// Stats section
	elapsed := time.Since(m.StartTime).Round(time.Second)
	b.WriteString(statsBoxStyle.Render(m.buildStatsGrid(elapsed)))
	b.WriteString("\n")

	// Files section
	b.WriteString(fileBoxStyle.Render(m.buildFilesSection()))

	// Log viewport if enabled
	if m.ShowLogs {
		b.WriteString("\n")
		logHeader := sectionHeaderStyle.Render("  Encoder Output")
		b.WriteString(logHeader + "\n")
		b.WriteString(logBoxStyle.Render(m.LogViewport.View()))
	}

	return b.String()
}

func (m Model) buildStatsGrid(elapsed time.Duration) string {
	var lines []string

	// Row 1: media position and ETA
	mediaVal := "—"
	if m.haveProgress {
		mediaVal = formatDuration(m.mediaTime)
	}
	mediaTotal := "/ —"
	if d := m.sup.Duration(); d > 0 {
		mediaTotal = "/ " + formatDuration(d)
	}
	eta, etaOK := estimateETA(m.percent, elapsed)

	line1 := lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Media"),
		statValueStyle.Render(mediaVal),
		statUnitStyle.Render(" "+mediaTotal),
		lipgloss.NewStyle().Width(6).Render(""),
		statLabelStyle.Render("ETA"),
		statValueStyle.Render(formatETADisplay(eta, etaOK)),
	)
	lines = append(lines, line1)

	// Row 2: speed and elapsed
	line2 := lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Speed"),
		statValueStyle.Render(formatSpeed(m.mediaTime, elapsed)),
		lipgloss.NewStyle().Width(12).Render(""),
		statLabelStyle.Render("Elapsed"),
		statValueStyle.Render(formatDuration(elapsed)),
	)
	lines = append(lines, line2)

	// Row 3: ffmpeg resource use
	line3 := lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("CPU"),
		statValueStyle.Render(formatCPU(m.usage.CPUPercent)),
		lipgloss.NewStyle().Width(12).Render(""),
		statLabelStyle.Render("Memory"),
		statValueStyle.Render(formatSizeDisplay(int64(m.usage.RSS))),
	)
	lines = append(lines, line3)

	// Row 4: output size and CRF
	line4 := lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Size"),
		statValueStyle.Render(formatSizeDisplay(m.outputSize)),
		lipgloss.NewStyle().Width(12).Render(""),
		statLabelStyle.Render("CRF"),
		statValueStyle.Render(fmt.Sprintf("%d", m.request.Quality)),
	)
	lines = append(lines, line4)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) buildFilesSection() string {
	// Truncate paths if too long
	maxPathLen := m.Width - 16
	if maxPathLen < 20 {
		maxPathLen = 60
	}

	inputDisplay := truncatePath(m.request.Input, maxPathLen)
	outputDisplay := truncatePath(m.request.Output, maxPathLen)

	line1 := fileLabelStyle.Render("Input") + filePathStyle.Render(inputDisplay)
	line2 := fileLabelStyle.Render("Output") + filePathStyle.Render(outputDisplay)

	if m.sup != nil {
		line2 += "\n" + fileLabelStyle.Render("Run") + filePathStyle.Render(m.sup.ID)
	}
	return line1 + "\n" + line2
}

func truncatePath(path string, maxLen int) string {
	r := []rune(path)
	if len(r) <= maxLen {
		return path
	}
	// Show beginning and end
	if maxLen < 20 {
		if maxLen <= 3 {
			return string(r[:maxLen])
		}
		return string(r[:maxLen-3]) + "..."
	}
	half := (maxLen - 5) / 2
	return string(r[:half]) + " ... " + string(r[len(r)-half:])
}

func (m Model) renderDoneView() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(successStyle.Render("  ✓ "+outcomeMessage(*m.Outcome)) + "\n")

	var lines []string
	lines = append(lines,
		statLabelStyle.Render("Output")+filePathStyle.Render(m.request.Output))
	lines = append(lines,
		statLabelStyle.Render("Time")+statValueStyle.Render(formatDuration(m.Outcome.Elapsed)))
	lines = append(lines,
		statLabelStyle.Render("Size")+statValueStyle.Render(formatSizeDisplay(m.outputSize)))

	// Size comparison against the input
	if ratio, ok := sizeRatio(m.request.Input, m.outputSize); ok {
		style := successStyle
		if ratio >= 100 {
			style = warningStyle
		}
		lines = append(lines, style.Render(fmt.Sprintf("  %.1f%% of original", ratio)))
	}

	b.WriteString(statsBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	return b.String()
}

func (m Model) renderErrorView() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(errorStyle.Render("  ✗ Encoding Failed") + "\n\n")

	errBox := errBoxStyle.Render(outcomeMessage(*m.Outcome))
	b.WriteString(errBox + "\n")

	if m.Outcome.Reason == encoder.ReasonExitStatus {
		b.WriteString(filePathStyle.Render("  A partial output may remain at "+m.request.Output) + "\n")
	}

	// Show logs if available
	if m.ShowLogs && m.LogViewport.TotalLineCount() > 0 {
		b.WriteString("\n")
		logHeader := sectionHeaderStyle.Render("  Encoder Output")
		b.WriteString(logHeader + "\n")
		b.WriteString(logBoxStyle.Render(m.LogViewport.View()))
	}

	return b.String()
}

func (m Model) renderCancelledView() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(warningStyle.Render("  ⊘ "+outcomeMessage(*m.Outcome)) + "\n\n")
	b.WriteString(fileLabelStyle.Render("Input") + filePathStyle.Render(m.request.Input) + "\n")
	b.WriteString(fileLabelStyle.Render("Output") + filePathStyle.Render(m.request.Output) + "\n")

	if m.ShowLogs && m.LogViewport.TotalLineCount() > 0 {
		b.WriteString("\n")
		b.WriteString(sectionHeaderStyle.Render("  Encoder Output") + "\n")
		b.WriteString(logBoxStyle.Render(m.LogViewport.View()))
	}
	return b.String()
}

// sizeRatio is output size as a percentage of the input file's size.
func sizeRatio(input string, outputSize int64) (float64, bool) {
	if outputSize <= 0 {
		return 0, false
	}
	info, err := os.Stat(input)
	if err != nil || info.Size() <= 0 {
		return 0, false
	}
	return float64(outputSize) / float64(info.Size()) * 100, true
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "—"
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
