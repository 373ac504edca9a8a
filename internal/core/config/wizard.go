package config

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guiyumin/vkit/internal/core/i18n"
)

const asciiArt = `
 ██╗   ██╗██╗  ██╗██╗████████╗
 ██║   ██║██║ ██╔╝██║╚══██╔══╝
 ██║   ██║█████╔╝ ██║   ██║
 ╚██╗ ██╔╝██╔═██╗ ██║   ██║
  ╚████╔╝ ██║  ██╗██║   ██║
   ╚═══╝  ╚═╝  ╚═╝╚═╝   ╚═╝
`

var (
	logoStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	stepStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("248"))
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	unselectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	inputStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	inputCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Width(14)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	containerStyle   = lipgloss.NewStyle().Padding(2, 4)
)

type option struct {
	label, value string
}

const (
	stepLanguage = iota
	stepProvider
	stepSpeechLang
	stepOutput
	stepConfirm
	stepCount
)

// speechLanguages are offered in the wizard; any code Google accepts can be
// set with `vkit config set tts.lang`.
var speechLanguages = []option{
	{"English", "en"},
	{"中文 (普通话)", "zh-CN"},
	{"日本語", "ja"},
	{"한국어", "ko"},
	{"Español", "es"},
	{"Français", "fr"},
	{"Deutsch", "de"},
}

// SpeechLanguages returns the language codes offered by the wizard
func SpeechLanguages() []string {
	codes := make([]string, len(speechLanguages))
	for i, o := range speechLanguages {
		codes[i] = o.value
	}
	return codes
}

type model struct {
	step        int
	cursor      int
	config      *Config
	confirmed   bool
	cancelled   bool
	inputBuffer string
	width       int
	height      int
}

func initialModel(cfg *Config) model {
	m := model{config: cfg}
	m.loadStep()
	return m
}

func (m *model) t() *i18n.Translations {
	return i18n.GetTranslations(m.config.Language)
}

func (m *model) title() (string, string) {
	c := m.t().Config
	switch m.step {
	case stepLanguage:
		return c.Language, c.LanguageDesc
	case stepProvider:
		return c.Provider, c.ProviderDesc
	case stepSpeechLang:
		return c.SpeechLang, c.SpeechLangDesc
	case stepOutput:
		return c.Output, c.OutputDesc
	case stepConfirm:
		return c.Confirm, c.ConfirmDesc
	}
	return "", ""
}

func (m *model) options() []option {
	c := m.t().Config
	switch m.step {
	case stepLanguage:
		opts := make([]option, len(i18n.SupportedLanguages))
		for i, lang := range i18n.SupportedLanguages {
			opts[i] = option{lang.Name, lang.Code}
		}
		return opts
	case stepProvider:
		return []option{
			{"Google Translate " + c.Recommended, "google"},
			{"OpenAI " + c.NeedsKey, "openai"},
		}
	case stepSpeechLang:
		return speechLanguages
	case stepConfirm:
		return []option{
			{c.YesSave, "yes"},
			{c.NoCancel, "no"},
		}
	}
	return nil
}

func (m *model) isInputStep() bool {
	return m.step == stepOutput
}

func (m *model) current() *string {
	switch m.step {
	case stepLanguage:
		return &m.config.Language
	case stepProvider:
		return &m.config.TTS.Provider
	case stepSpeechLang:
		return &m.config.TTS.Lang
	case stepOutput:
		return &m.config.TTS.Output
	}
	return nil
}

// loadStep positions the cursor (or input buffer) on the stored value
func (m *model) loadStep() {
	m.cursor = 0
	field := m.current()
	if field == nil {
		return
	}
	if m.isInputStep() {
		m.inputBuffer = *field
		return
	}
	for i, opt := range m.options() {
		if opt.value == *field {
			m.cursor = i
			break
		}
	}
}

func (m *model) saveStep() {
	field := m.current()
	if field == nil {
		return
	}
	if m.isInputStep() {
		if v := strings.TrimSpace(m.inputBuffer); v != "" {
			*field = v
		}
		return
	}
	if opts := m.options(); m.cursor < len(opts) {
		*field = opts[m.cursor].value
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit

		case "left":
			if m.step > 0 && !m.isInputStep() {
				m.saveStep()
				m.step--
				m.loadStep()
			}
			return m, nil

		case "right", "enter":
			m.saveStep()
			if m.step == stepConfirm {
				m.confirmed = m.cursor == 0
				m.cancelled = !m.confirmed
				return m, tea.Quit
			}
			m.step++
			m.loadStep()
			return m, nil

		case "up", "k":
			if n := len(m.options()); n > 0 && !m.isInputStep() {
				m.cursor = (m.cursor - 1 + n) % n
			}
			return m, nil

		case "down", "j":
			if n := len(m.options()); n > 0 && !m.isInputStep() {
				m.cursor = (m.cursor + 1) % n
			}
			return m, nil

		case "backspace":
			if m.isInputStep() && len(m.inputBuffer) > 0 {
				r := []rune(m.inputBuffer)
				m.inputBuffer = string(r[:len(r)-1])
			}
			return m, nil

		default:
			if m.isInputStep() && msg.Type == tea.KeyRunes {
				m.inputBuffer += string(msg.Runes)
			}
			return m, nil
		}
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	t := m.t()

	b.WriteString(logoStyle.Render(asciiArt))
	b.WriteString("\n\n")

	b.WriteString(stepStyle.Render(fmt.Sprintf(t.Config.StepOf, m.step+1, stepCount)))
	b.WriteString("\n\n")

	title, desc := m.title()
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(stepStyle.Render(desc))
	b.WriteString("\n\n")

	if m.step == stepConfirm {
		b.WriteString(m.renderReview())
		b.WriteString("\n")
	}

	if m.isInputStep() {
		b.WriteString(inputCursorStyle.Render("> "))
		b.WriteString(inputStyle.Render(m.inputBuffer))
		b.WriteString(inputCursorStyle.Render("█"))
		b.WriteString("\n")
	} else {
		for i, opt := range m.options() {
			cursor := "  "
			style := unselectedStyle
			if i == m.cursor {
				cursor = cursorStyle.Render("> ")
				style = selectedStyle
			}
			b.WriteString(cursor)
			b.WriteString(style.Render(opt.label))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	help := fmt.Sprintf("← %s • → %s • ↑↓ %s • enter %s • esc %s",
		t.Help.Back, t.Help.Next, t.Help.Select, t.Help.Confirm, t.Help.Quit)
	b.WriteString(helpStyle.Render(help))

	content := containerStyle.Render(b.String())
	if m.width > 0 && m.height > 0 {
		content = lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, content)
	}
	return content
}

func (m model) renderReview() string {
	var b strings.Builder
	r := m.t().ConfigReview

	lines := []struct {
		label string
		value string
	}{
		{r.Language, languageName(m.config.Language)},
		{r.Provider, m.config.TTS.Provider},
		{r.SpeechLang, m.config.TTS.Lang},
		{r.Output, m.config.TTS.Output},
	}

	for _, line := range lines {
		b.WriteString(labelStyle.Render(line.label + ":"))
		b.WriteString(valueStyle.Render(line.value))
		b.WriteString("\n")
	}
	return b.String()
}

// RunInitWizard runs an interactive TUI wizard, starting from the existing
// config (or defaults).
func RunInitWizard() (*Config, error) {
	cfg := LoadOrDefault()

	p := tea.NewProgram(initialModel(cfg), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	result := finalModel.(model)
	if result.cancelled || !result.confirmed {
		return nil, fmt.Errorf("configuration cancelled")
	}
	return result.config, nil
}

func languageName(code string) string {
	for _, lang := range i18n.SupportedLanguages {
		if lang.Code == code {
			return lang.Name
		}
	}
	return code
}
