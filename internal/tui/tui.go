// Package tui is the interactive prompt-building menu.
package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/rajatsrma/promptcraft/internal/browser"
	"github.com/rajatsrma/promptcraft/internal/prompt"
	"github.com/rajatsrma/promptcraft/internal/session"
	"github.com/rajatsrma/promptcraft/internal/template"
)

// ViewState represents which screen is active.
type ViewState int

const (
	ViewMenu ViewState = iota
	ViewEdit
	ViewSave
	ViewTemplates
	ViewPreview
)

// menuAction identifies a menu entry.
type menuAction int

const (
	actionPersona menuAction = iota
	actionTask
	actionContext
	actionSchemas
	actionExamples
	actionConstraints
	actionTemplate
	actionSave
	actionGenerate
	actionExit
)

type menuItem struct {
	action menuAction
	label  string
}

var menuItems = []menuItem{
	{actionPersona, "👤 Define Persona"},
	{actionTask, "📋 Specify the Task"},
	{actionContext, "🔍 Provide Context"},
	{actionSchemas, "📐 Define Schemas"},
	{actionExamples, "💡 Add Examples"},
	{actionConstraints, "⚠️  Set Constraints"},
	{actionTemplate, "🧩 Apply Template"},
	{actionSave, "💾 Save Session As..."},
	{actionGenerate, "✨ Generate and Copy Prompt ✨"},
	{actionExit, "🚪 Exit"},
}

// field describes an editable section.
type field struct {
	title  string
	hint   string
	label  string
	append bool
}

var fields = map[menuAction]field{
	actionPersona:     {"👤 Define Persona", "Describe the role or character that will be responding to the task.", "Persona", false},
	actionTask:        {"📋 Specify the Task", "Describe what you want the AI to accomplish.", "Task", false},
	actionContext:     {"🔍 Provide Context", "Provide background information, technical details, or relevant context. Reference files with @path, @path:10-20 or @path#name.", "Context", false},
	actionSchemas:     {"📐 Define Schemas", "Add database schemas, data structures, or API definitions.", "Schema", true},
	actionExamples:    {"💡 Add Examples", "Provide examples of inputs, outputs, or code snippets.", "Example", true},
	actionConstraints: {"⚠️  Set Constraints", "Define limitations, requirements, or specific guidelines.", "Constraints", false},
}

const (
	statusPreviewLen = 50
	promptPreviewLen = 500
)

// Config holds what the menu needs from the CLI layer. Nil managers
// disable the matching menu entries.
type Config struct {
	Data      prompt.Data
	Sessions  *session.Manager
	Templates *template.Manager
	Browser   *browser.Browser
	// Copy places text on the clipboard. Defaults to the system clipboard.
	Copy func(string) error
}

// Model is the top-level Bubble Tea model.
type Model struct {
	state  ViewState
	config Config
	data   prompt.Data
	width  int
	height int

	cursor   int
	editing  menuAction
	editor   textarea.Model
	name     textinput.Model
	tpls     []template.Template
	tplIndex int

	status    string
	statusErr bool
	generated string
	rendered  string
	copied    bool
	renderer  *glamour.TermRenderer
	quitting  bool
}

// New creates a menu model starting from cfg.Data.
func New(cfg Config) Model {
	if cfg.Copy == nil {
		cfg.Copy = clipboard.WriteAll
	}

	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetWidth(76)
	ta.SetHeight(8)

	ti := textinput.New()
	ti.Placeholder = "session name"
	ti.CharLimit = 120

	return Model{
		state:  ViewMenu,
		config: cfg,
		data:   cfg.Data,
		editor: ta,
		name:   ti,
		width:  80,
	}
}

// Data returns the prompt as edited so far.
func (m Model) Data() prompt.Data {
	return m.data
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetWidth(max(20, msg.Width-4))
		m.renderer = nil
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.state {
	case ViewMenu:
		return m.updateMenu(msg)
	case ViewEdit:
		return m.updateEdit(msg)
	case ViewSave:
		return m.updateSave(msg)
	case ViewTemplates:
		return m.updateTemplates(msg)
	case ViewPreview:
		if _, ok := msg.(tea.KeyMsg); ok {
			m.state = ViewMenu
		}
	}
	return m, nil
}

func (m Model) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		return m.choose(menuItems[m.cursor].action)
	}
	return m, nil
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) choose(action menuAction) (tea.Model, tea.Cmd) {
	m.setStatus("", false)

	switch action {
	case actionExit:
		m.quitting = true
		return m, tea.Quit

	case actionTemplate:
		if m.config.Templates == nil {
			m.setStatus("Templates are not available.", true)
			return m, nil
		}
		tpls, err := m.config.Templates.List()
		if len(tpls) == 0 {
			m.setStatus(fmt.Sprintf("No templates found: %v", err), true)
			return m, nil
		}
		m.tpls = tpls
		m.tplIndex = 0
		m.state = ViewTemplates
		return m, nil

	case actionSave:
		if m.data.IsEmpty() {
			m.setStatus("No data to save. Please fill out at least one section.", true)
			return m, nil
		}
		m.name.Reset()
		m.state = ViewSave
		return m, m.name.Focus()

	case actionGenerate:
		m.generate()
		return m, nil
	}

	f := fields[action]
	m.editing = action
	m.editor.Reset()
	if !f.append {
		m.editor.SetValue(m.fieldValue(action))
	}
	m.state = ViewEdit
	return m, m.editor.Focus()
}

func (m Model) fieldValue(action menuAction) string {
	switch action {
	case actionPersona:
		return m.data.Persona
	case actionTask:
		return m.data.Task
	case actionContext:
		return m.data.Context
	case actionConstraints:
		return m.data.Constraints
	}
	return ""
}

func (m Model) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.editor.Blur()
			m.state = ViewMenu
			return m, nil
		case "ctrl+s":
			m.commitEdit()
			m.editor.Blur()
			m.state = ViewMenu
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *Model) commitEdit() {
	f := fields[m.editing]
	value := m.editor.Value()

	if f.append {
		if strings.TrimSpace(value) != "" {
			if m.editing == actionSchemas {
				m.data.Schemas = append(m.data.Schemas, value)
			} else {
				m.data.Examples = append(m.data.Examples, value)
			}
			m.setStatus(fmt.Sprintf("✓ %s added: %s", f.label, prompt.Preview(value, statusPreviewLen)), false)
			return
		}
		m.setStatus(fmt.Sprintf("Total %ss: %d", strings.ToLower(f.label), m.count(m.editing)), false)
		return
	}

	switch m.editing {
	case actionPersona:
		m.data.Persona = value
	case actionTask:
		m.data.Task = value
	case actionContext:
		m.data.Context = value
	case actionConstraints:
		m.data.Constraints = value
	}
	m.setStatus(fmt.Sprintf("✓ %s updated: %s", f.label, prompt.Preview(value, statusPreviewLen)), false)
}

func (m Model) count(action menuAction) int {
	if action == actionSchemas {
		return len(m.data.Schemas)
	}
	return len(m.data.Examples)
}

func (m Model) updateSave(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.name.Blur()
			m.state = ViewMenu
			return m, nil
		case "enter":
			m.name.Blur()
			m.state = ViewMenu
			m.saveSession(m.name.Value())
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.name, cmd = m.name.Update(msg)
	return m, cmd
}

// sessionName trims the entered name and replaces spaces with underscores.
func sessionName(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")
}

func (m *Model) saveSession(raw string) {
	name := sessionName(raw)
	if name == "" {
		m.setStatus("Session name cannot be empty.", true)
		return
	}
	if m.config.Sessions == nil {
		m.setStatus("Sessions are not available.", true)
		return
	}
	s, err := m.config.Sessions.Create(name, m.data, nil, "")
	if err != nil {
		m.setStatus(fmt.Sprintf("Error saving session: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("✓ Session saved as '%s' (%s)", s.Name, s.ID[:8]), false)
}

func (m Model) updateTemplates(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.tplIndex > 0 {
			m.tplIndex--
		}
	case "down", "j":
		if m.tplIndex < len(m.tpls)-1 {
			m.tplIndex++
		}
	case "esc":
		m.state = ViewMenu
	case "enter":
		t := m.tpls[m.tplIndex]
		applied := template.Apply(t)
		applied.Schemas = m.data.Schemas
		applied.Examples = m.data.Examples
		m.data = applied
		m.state = ViewMenu
		m.setStatus(fmt.Sprintf("✓ Template '%s' applied", t.Name), false)
	}
	return m, nil
}

// generate builds the prompt, expands file references and copies it. When
// the clipboard fails the full prompt is shown instead of a preview.
func (m *Model) generate() {
	if m.data.IsEmpty() {
		m.setStatus("No data to generate prompt. Please fill out at least one section.", true)
		return
	}
	text := prompt.ExpandReferences(prompt.Generate(m.data), m.config.Browser)
	m.generated = text
	m.state = ViewPreview

	if err := m.config.Copy(text); err != nil {
		m.copied = false
		m.rendered = m.renderMarkdown(text)
		m.setStatus(fmt.Sprintf("Error copying to clipboard: %v", err), true)
		return
	}
	m.copied = true
	m.rendered = m.renderMarkdown(prompt.Preview(text, promptPreviewLen))
	m.setStatus(fmt.Sprintf("✓ Prompt copied to clipboard! (~%d tokens)", prompt.EstimateTokens(text)), false)
}

func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(20, m.width-4)),
		)
		if err != nil {
			return content
		}
		m.renderer = r
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) View() string {
	if m.quitting {
		return "👋 Goodbye!\n"
	}

	var s string
	switch m.state {
	case ViewMenu:
		s = m.menuView()
	case ViewEdit:
		s = m.editView()
	case ViewSave:
		s = "\n" + titleStyle.Render("  💾 Save Session") + "\n\n  " + m.name.View() + "\n\n" +
			helpStyle.Render("  Enter save • Esc cancel") + "\n"
	case ViewTemplates:
		s = m.templatesView()
	case ViewPreview:
		s = m.previewView()
	}
	return s
}

func (m Model) statusLine() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return "\n" + errorStyle.Render("  "+m.status) + "\n"
	}
	return "\n" + successStyle.Render("  "+m.status) + "\n"
}

func (m Model) menuView() string {
	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render("  🚀 Welcome to PromptCraft!") + "\n")
	b.WriteString(subtitleStyle.Render("  Build your prompt by selecting from the options below:") + "\n\n")

	for i, item := range menuItems {
		cursor := "  "
		style := listItemStyle
		if i == m.cursor {
			cursor = "▸ "
			style = selectedStyle
		}
		b.WriteString("  " + cursor + style.Render(item.label) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("  schemas: %d • examples: %d", len(m.data.Schemas), len(m.data.Examples))) + "\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n" + helpStyle.Render("  ↑/↓ navigate • Enter select • q quit") + "\n")
	return b.String()
}

func (m Model) editView() string {
	f := fields[m.editing]
	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render("  "+f.title) + "\n")
	b.WriteString(subtitleStyle.Render("  "+f.hint) + "\n\n")
	b.WriteString(m.editor.View() + "\n\n")
	if f.append {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  Total %ss: %d", strings.ToLower(f.label), m.count(m.editing))) + "\n")
	}
	b.WriteString(helpStyle.Render("  Ctrl+S save • Esc cancel") + "\n")
	return b.String()
}

func (m Model) templatesView() string {
	var b strings.Builder
	b.WriteString("\n" + titleStyle.Render("  🧩 Apply Template") + "\n\n")
	for i, t := range m.tpls {
		cursor := "  "
		style := listItemStyle
		if i == m.tplIndex {
			cursor = "▸ "
			style = selectedStyle
		}
		b.WriteString("  " + cursor + style.Render(t.Name) + dimStyle.Render("  "+t.Description) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("  ↑/↓ navigate • Enter apply • Esc back") + "\n")
	return b.String()
}

func (m Model) previewView() string {
	title := "📋 Generated Prompt"
	if m.copied {
		title = "📋 Generated Prompt Preview"
	}

	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteString("\n" + titleStyle.Render("  "+title) + "\n")
	b.WriteString(previewStyle.Render(m.rendered) + "\n")
	b.WriteString(helpStyle.Render("  Press any key to return to the menu") + "\n")
	return b.String()
}

// Run starts the menu and returns the prompt data when it exits.
func Run(cfg Config) (prompt.Data, error) {
	p := tea.NewProgram(New(cfg))
	final, err := p.Run()
	if err != nil {
		return cfg.Data, err
	}
	if fm, ok := final.(Model); ok {
		return fm.Data(), nil
	}
	return cfg.Data, nil
}
