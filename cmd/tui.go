package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/blacktop/go-termimg"
	"github.com/blacktop/sceneforge/internal/encode"
	"github.com/blacktop/sceneforge/internal/session"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	refStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	selectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Background(lipgloss.Color("236"))
	badgeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("141")).Padding(0, 1)
	focusBorder  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("205"))
	normalBorder = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
)

type model struct {
	ctx        context.Context
	app        *app
	conf       *config
	prompt     textarea.Model
	refInput   textinput.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap
	focus      focus
	selected   int
	exporting  bool
	notice     string
	savedCount int
	previews   map[string]string
	width      int
	height     int
}

func newModel(ctx context.Context, a *app, c *config) model {
	ta := textarea.New()
	ta.Placeholder = "Describe the scene in detail... (e.g. a futuristic samurai standing on a neon rooftop in the rain)"
	ta.ShowLineNumbers = false
	ta.SetValue(c.Prompt)
	ta.Focus()

	ti := textinput.New()
	ti.Placeholder = "path/to/character.png"
	ti.Prompt = "> "
	ti.SetValue(c.ReferenceFile)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		ctx:      ctx,
		app:      a,
		conf:     c,
		prompt:   ta,
		refInput: ti,
		spinner:  s,
		help:     help.New(),
		keys:     defaultKeyMap(),
		previews: make(map[string]string),
	}
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) busy() bool {
	return m.app.ctrl.State().Status == session.Loading || m.exporting
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		leftWidth := m.leftWidth()
		m.prompt.SetWidth(leftWidth - 4)
		m.prompt.SetHeight(6)
		m.refInput.Width = leftWidth - 6
		m.help.Width = m.width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Generate):
			return m.startGeneration()
		case key.Matches(msg, m.keys.ClearRef):
			m.app.ctrl.ClearReference()
			m.refInput.Reset()
			m.notice = ""
			return m, nil
		case key.Matches(msg, m.keys.SaveOne):
			m.saveSelected()
			return m, nil
		case key.Matches(msg, m.keys.SaveAll):
			return m.startExport()
		case key.Matches(msg, m.keys.Dismiss):
			m.app.ctrl.Dismiss()
			m.notice = ""
			return m, nil
		case key.Matches(msg, m.keys.NextFocus):
			return m, m.cycleFocus()
		}

		switch m.focus {
		case focusReference:
			if key.Matches(msg, m.keys.Attach) {
				m.attachReference()
				return m, nil
			}
			var cmd tea.Cmd
			m.refInput, cmd = m.refInput.Update(msg)
			return m, cmd
		case focusHistory:
			n := len(m.app.ctrl.State().History)
			switch {
			case key.Matches(msg, m.keys.Up) && m.selected > 0:
				m.selected--
			case key.Matches(msg, m.keys.Down) && m.selected < n-1:
				m.selected++
			}
			return m, nil
		default:
			var cmd tea.Cmd
			m.prompt, cmd = m.prompt.Update(msg)
			m.app.ctrl.SetPrompt(m.prompt.Value())
			return m, cmd
		}

	case generatedMsg:
		if _, err := m.app.ctrl.Complete(msg.req, msg.res); err == nil {
			m.selected = 0
		}
		return m, nil

	case exportedMsg:
		m.exporting = false
		m.savedCount += len(msg.paths)
		if msg.err != nil {
			m.notice = fmt.Sprintf("Saved %d of %d images: %v", len(msg.paths), msg.total, msg.err)
		} else {
			m.notice = fmt.Sprintf("Saved %d images to %s", len(msg.paths), m.outputDir())
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focus == focusPrompt {
		m.prompt, cmd = m.prompt.Update(msg)
	}
	return m, cmd
}

// startGeneration validates the session and runs the request off the update
// loop. While Loading the trigger does nothing.
func (m model) startGeneration() (tea.Model, tea.Cmd) {
	if m.app.ctrl.State().Status == session.Loading {
		return m, nil
	}
	m.app.ctrl.SetPrompt(m.prompt.Value())
	req, err := m.app.ctrl.Prepare()
	if err != nil {
		logger.Debug("Generation rejected", "err", err)
		return m, nil
	}
	m.notice = ""
	ctrl, ctx := m.app.ctrl, m.ctx
	run := func() tea.Msg {
		return generatedMsg{req: req, res: ctrl.Run(ctx, req)}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m model) startExport() (tea.Model, tea.Cmd) {
	if m.exporting {
		return m, nil
	}
	history := m.app.ctrl.State().History
	if len(history) == 0 {
		return m, nil
	}
	m.exporting = true
	m.notice = ""
	exporter, ctx := m.app.exporter, m.ctx
	run := func() tea.Msg {
		paths, err := exporter.All(ctx, history)
		return exportedMsg{paths: paths, total: len(history), err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m *model) saveSelected() {
	if m.exporting {
		return
	}
	history := m.app.ctrl.State().History
	if m.selected >= len(history) {
		return
	}
	path, err := m.app.exporter.One(history[m.selected])
	if err != nil {
		logger.Error("Error saving image", "err", err)
		m.notice = err.Error()
		return
	}
	m.savedCount++
	m.notice = "Image saved: " + path
}

func (m *model) attachReference() {
	path := strings.TrimSpace(m.refInput.Value())
	if path == "" {
		return
	}
	if err := m.app.ctrl.AttachFile(path); err != nil {
		logger.Debug("Reference rejected", "path", path, "err", err)
		return
	}
	m.notice = "Reference attached"
}

func (m *model) cycleFocus() tea.Cmd {
	m.focus = (m.focus + 1) % 3
	m.prompt.Blur()
	m.refInput.Blur()
	switch m.focus {
	case focusPrompt:
		return m.prompt.Focus()
	case focusReference:
		return m.refInput.Focus()
	}
	return nil
}

func (m model) outputDir() string {
	if m.conf.OutputFolder == "" {
		return "."
	}
	return m.conf.OutputFolder
}

func (m model) leftWidth() int {
	return max(int(float64(m.width)*0.45), 30)
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	leftWidth := m.leftWidth()
	rightWidth := m.width - leftWidth

	left := lipgloss.NewStyle().Width(leftWidth).Render(m.inputView(leftWidth))
	right := lipgloss.NewStyle().Width(rightWidth).Render(m.historyView(rightWidth))

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("sceneforge")+dimStyle.Render("  consistent characters in any scene"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		m.help.View(m.keys),
	)
}

func (m model) border(f focus) lipgloss.Style {
	if m.focus == f {
		return focusBorder
	}
	return normalBorder
}

func (m model) inputView(width int) string {
	st := m.app.ctrl.State()
	var b strings.Builder

	b.WriteString(labelStyle.Render("SCENE DESCRIPTION") + "\n")
	b.WriteString(m.border(focusPrompt).Render(m.prompt.View()) + "\n")

	b.WriteString(labelStyle.Render("CHARACTER REFERENCE"))
	if st.Reference != "" {
		b.WriteString(" " + badgeStyle.Render("ATTACHED"))
	}
	b.WriteString("\n")
	b.WriteString(m.border(focusReference).Width(width-2).Render(m.refInput.View()) + "\n")
	if st.Reference != "" {
		b.WriteString(refStyle.Render(describeReference(st.Reference)) + "\n")
	}

	b.WriteString("\n")
	switch {
	case st.Status == session.Loading:
		b.WriteString(fmt.Sprintf("%s Generating...", m.spinner.View()))
	case m.exporting:
		b.WriteString(fmt.Sprintf("%s Saving images...", m.spinner.View()))
	default:
		b.WriteString(dimStyle.Render("[ ctrl+g ] GENERATE IMAGE"))
	}
	b.WriteString("\n")
	if st.Err != "" {
		b.WriteString(errorStyle.Width(width-2).Render(st.Err) + "\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Width(width-2).Render(m.notice) + "\n")
	}
	return b.String()
}

func describeReference(dataURL string) string {
	data, mediaType, err := encode.Decode(dataURL)
	if err != nil {
		return "reference attached"
	}
	return fmt.Sprintf("%s, %.1f KB", mediaType, float64(len(data))/1024)
}

func (m model) historyView(width int) string {
	history := m.app.ctrl.State().History
	if len(history) == 0 {
		return lipgloss.Place(width, 10, lipgloss.Center, lipgloss.Center,
			dimStyle.Render("Generated images will be listed here"))
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render(fmt.Sprintf("GENERATION HISTORY (%d)", len(history))) + "\n")
	for i, img := range history {
		line := fmt.Sprintf("%2d. %s  %s", i+1, img.Timestamp.Format("15:04:05"), truncate(img.Prompt, width-24))
		if img.HasReference {
			line += " " + badgeStyle.Render("REF")
		}
		if i == m.selected && m.focus == focusHistory {
			line = selectStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	sel := history[min(m.selected, len(history)-1)]
	b.WriteString("\n" + m.preview(sel, width-2, max(m.height-len(history)-12, 8)))
	return b.String()
}

// preview renders img inline, caching the result per image and size.
func (m model) preview(img session.Image, width, height int) string {
	cacheKey := fmt.Sprintf("%s@%dx%d", img.ID, width, height)
	if out, ok := m.previews[cacheKey]; ok {
		return out
	}
	out, err := renderImage(img.URL, width, height)
	if err != nil {
		logger.Debug("Preview unavailable", "id", img.ID, "err", err)
		out = dimStyle.Render("(preview unavailable in this terminal)")
	}
	m.previews[cacheKey] = out
	return out
}

func renderImage(dataURL string, width, height int) (string, error) {
	data, _, err := encode.Decode(dataURL)
	if err != nil {
		return "", err
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("error decoding image: %w", err)
	}
	return termimg.New(decoded).Width(width).Height(height).Render()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
