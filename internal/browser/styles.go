package browser

import "github.com/charmbracelet/lipgloss"

var (
	colorText    = lipgloss.Color("#F8F8F2")
	colorMuted   = lipgloss.Color("#6272A4")
	colorPrimary = lipgloss.Color("#BD93F9")
	colorInfo    = lipgloss.Color("#8BE9FD")
	colorSuccess = lipgloss.Color("#50FA7B")
	colorDanger  = lipgloss.Color("#FF5555")
	colorBgChip  = lipgloss.Color("#44475A")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	chipStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorBgChip).
			Padding(0, 1)

	activeChipStyle = chipStyle.
			Foreground(lipgloss.Color("#282A36")).
			Background(colorPrimary).
			Bold(true)

	focusedChipStyle = chipStyle.
				Underline(true)

	clearChipStyle = chipStyle.
			Foreground(colorDanger)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	cardIDStyle = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true)

	cardTagStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	endStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)
)
