package tui

import (
	"fmt"
	"strings"
)

const maxLogLines = 12

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("📰 Curator Pipeline Demo"))
	b.WriteString("\n\n")

	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if m.Job != nil {
		b.WriteString(BoxStyle.Render(m.formatCounters()))
		b.WriteString("\n\n")

		if len(m.Job.Logs) > 0 {
			b.WriteString(InfoStyle.Render("📝 Job Log:"))
			b.WriteString("\n")
			logs := m.Job.Logs
			if len(logs) > maxLogLines {
				logs = logs[len(logs)-maxLogLines:]
			}
			for _, entry := range logs {
				line := fmt.Sprintf("   [%s] %s", entry.Timestamp.Format("15:04:05"), entry.Message)
				if entry.Level == "error" {
					b.WriteString(ErrorStyle.Render(line))
				} else {
					b.WriteString(InfoStyle.Render(line))
				}
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(m.helpText())
	return b.String()
}

func (m Model) stateText() string {
	switch m.State {
	case StateIdle:
		return HighlightStyle.Render("👋 Ready to start!") + "\n\n" +
			InfoStyle.Render("Press 'r' to run a curation pass")
	case StateStarting:
		return StatusStyle.Render("⏳ Starting curation run...")
	case StateRunning:
		return StatusStyle.Render(fmt.Sprintf("🔄 Running (job %s)...", m.JobID))
	case StateCancelling:
		return StatusStyle.Render("🛑 Cancellation requested, waiting for the job to stop...")
	case StateDone:
		status := "unknown"
		if m.Job != nil {
			status = string(m.Job.Status)
		}
		return HighlightStyle.Render(fmt.Sprintf("✅ Job finished: %s", strings.ToUpper(status)))
	case StateError:
		return ErrorStyle.Render(fmt.Sprintf("❌ Error: %v", m.Err))
	default:
		return ""
	}
}

func (m Model) formatCounters() string {
	c := m.Job.Counters
	var b strings.Builder
	b.WriteString(HighlightStyle.Render("Progress"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Found:      %d\n", c.TotalFound))
	b.WriteString(fmt.Sprintf("Processed:  %d\n", c.Processed))
	b.WriteString(fmt.Sprintf("Curated:    %s\n", StatusStyle.Render(fmt.Sprintf("%d", c.Curated))))
	b.WriteString(fmt.Sprintf("Duplicates: %d\n", c.Duplicates))
	b.WriteString(fmt.Sprintf("Low score:  %d\n", c.LowScore))
	if c.Errors > 0 {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Errors:     %d", c.Errors)))
		b.WriteString("\n")
	}
	if m.Job.DurationMS > 0 {
		b.WriteString(fmt.Sprintf("\nDuration: %.1fs", float64(m.Job.DurationMS)/1000))
	}
	return b.String()
}

func (m Model) helpText() string {
	switch m.State {
	case StateRunning:
		return InfoStyle.Render("Press 'c' to cancel | Press 'q' or Ctrl+C to quit")
	case StateDone, StateError:
		return InfoStyle.Render("Press 'r' to run again | Press 'q' or Ctrl+C to quit")
	default:
		return InfoStyle.Render("Press 'r' to run | Press 'q' or Ctrl+C to quit")
	}
}
