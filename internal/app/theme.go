package app

import "github.com/charmbracelet/lipgloss"

const (
	bubblePaddingVertical   = 0
	bubblePaddingHorizontal = 1
)

var (
	headerStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activityStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("70")).Bold(true)
	reconnectingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("179")).Bold(true)
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	previewStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("117")).Bold(true).Underline(true)

	userBubbleStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	agentBubbleStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	systemNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	toolHeaderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	toolBodyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	resultStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("108"))
	sandboxStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	chatMetaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)

	toastInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)
