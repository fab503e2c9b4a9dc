// ABOUTME: Top-level Bubble Tea EditorModel: a terminal editor over an editor.Session.
// ABOUTME: Edits go through Session.Apply; images and submission run as background commands.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/editor"
)

const helpText = "ctrl+o image · ctrl+t title · ctrl+u subtitle · ctrl+g tags · ctrl+s submit · esc quit"

// EditorModel is the Bubble Tea model for editing one post.
type EditorModel struct {
	ctx       context.Context
	sess      *editor.Session
	submitter *blog.Submitter
	form      blog.Form

	prompt    PromptModel
	statusBar StatusBarModel

	inserting  int
	submitting bool

	// submitQueued defers a submit requested while an image was inserting.
	submitQueued bool

	notice     string
	noticeKind NoticeKind

	outcome *blog.Outcome
	width   int
	height  int
}

// NewEditorModel creates an EditorModel for sess. The terminal surface always
// has focus, so insertions use the tracked cursor.
func NewEditorModel(ctx context.Context, sess *editor.Session, submitter *blog.Submitter, form blog.Form) EditorModel {
	sess.Apply(func(st *editor.State) { st.Focused = true })
	return EditorModel{
		ctx:       ctx,
		sess:      sess,
		submitter: submitter,
		form:      form,
		prompt:    NewPromptModel(),
		statusBar: NewStatusBarModel(sess.ResourceID),
	}
}

// Outcome returns the submission result once the post was saved.
func (m EditorModel) Outcome() (blog.Outcome, bool) {
	if m.outcome == nil {
		return blog.Outcome{}, false
	}
	return *m.outcome, true
}

// Form returns the current non-content fields.
func (m EditorModel) Form() blog.Form {
	return m.form
}

// Init implements tea.Model.
func (m EditorModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ImageInsertedMsg:
		return m.handleImageInserted(msg)

	case SubmitResultMsg:
		return m.handleSubmitResult(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

func (m EditorModel) handleImageInserted(msg ImageInsertedMsg) (tea.Model, tea.Cmd) {
	if m.inserting > 0 {
		m.inserting--
	}
	if msg.Err != nil {
		m.setNotice(NoticeError, fmt.Sprintf("Could not insert %s: %v", msg.Name, msg.Err))
	} else {
		m.setNotice(NoticeInfo, "Inserted "+msg.Name)
	}
	if m.submitQueued && m.inserting == 0 {
		m.submitQueued = false
		return m.submit()
	}
	return m, nil
}

func (m EditorModel) handleSubmitResult(msg SubmitResultMsg) (tea.Model, tea.Cmd) {
	m.submitting = false
	if msg.Err != nil {
		m.setNotice(NoticeError, blog.UserMessage(msg.Err))
		return m, nil
	}
	out := msg.Outcome
	m.outcome = &out
	text := out.Message
	if text == "" {
		text = "Post saved."
	}
	m.setNotice(NoticeSuccess, text)
	return m, tea.Quit
}

func (m EditorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt.IsActive() {
		switch msg.Type {
		case tea.KeyEnter:
			kind, value := m.prompt.Close()
			return m.applyPrompt(kind, strings.TrimSpace(value))
		case tea.KeyEsc:
			m.prompt.Close()
			return m, nil
		}
		m.prompt = m.prompt.Update(msg)
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+s":
		return m.submit()
	}

	// The text is frozen while an image or the post is in flight so the
	// captured insertion point stays valid.
	if m.busy() {
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeyEnter || msg.Type == tea.KeyBackspace {
			m.setNotice(NoticeBusy, "Wait for the image to finish inserting.")
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+o":
		m.prompt.Open(PromptImage, "")
		return m, nil
	case "ctrl+t":
		m.prompt.Open(PromptTitle, m.form.Title)
		return m, nil
	case "ctrl+u":
		m.prompt.Open(PromptSubtitle, m.form.Subtitle)
		return m, nil
	case "ctrl+g":
		m.prompt.Open(PromptTags, strings.Join(m.form.Tags, ", "))
		return m, nil
	}

	var edit func(*editor.State)
	switch msg.Type {
	case tea.KeyRunes:
		s := string(msg.Runes)
		edit = func(st *editor.State) { insertText(st, s) }
	case tea.KeySpace:
		edit = func(st *editor.State) { insertText(st, " ") }
	case tea.KeyEnter:
		edit = func(st *editor.State) { insertText(st, "\n") }
	case tea.KeyTab:
		edit = func(st *editor.State) { insertText(st, "\t") }
	case tea.KeyBackspace:
		edit = deleteBackward
	case tea.KeyDelete:
		edit = deleteForward
	case tea.KeyLeft:
		edit = moveLeft
	case tea.KeyRight:
		edit = moveRight
	case tea.KeyUp:
		edit = moveUp
	case tea.KeyDown:
		edit = moveDown
	case tea.KeyHome, tea.KeyCtrlA:
		edit = moveHome
	case tea.KeyEnd, tea.KeyCtrlE:
		edit = moveEnd
	default:
		return m, nil
	}
	m.sess.Apply(edit)
	m.notice = ""
	return m, nil
}

func (m EditorModel) applyPrompt(kind PromptKind, value string) (tea.Model, tea.Cmd) {
	switch kind {
	case PromptImage:
		if value == "" {
			return m, nil
		}
		sel := m.sess.State().Selection()
		m.inserting++
		m.setNotice(NoticeBusy, "Inserting image…")
		return m, InsertImageCmd(m.ctx, m.sess, value, sel)
	case PromptTitle:
		m.form.Title = value
	case PromptSubtitle:
		m.form.Subtitle = value
	case PromptTags:
		m.form.Tags = blog.ParseTags(value)
	}
	return m, nil
}

func (m EditorModel) submit() (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	if m.submitter == nil {
		m.setNotice(NoticeError, "Submitting is not configured.")
		return m, nil
	}
	if m.inserting > 0 {
		m.submitQueued = true
		m.setNotice(NoticeBusy, "Submitting once the image is inserted…")
		return m, nil
	}
	m.submitting = true
	m.setNotice(NoticeBusy, "Submitting…")
	return m, SubmitCmd(m.ctx, m.submitter, m.sess, m.form)
}

func (m EditorModel) busy() bool {
	return m.inserting > 0 || m.submitting
}

func (m *EditorModel) setNotice(kind NoticeKind, text string) {
	m.noticeKind = kind
	m.notice = text
}

// View implements tea.Model.
func (m EditorModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 40 || m.height < 10 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 40x10.", m.width, m.height)
	}

	st := m.sess.State()
	m.statusBar.SetWidth(m.width)
	m.statusBar.SetCounts(m.sess.PendingCount(), len(st.Text))
	m.statusBar.SetInserting(m.inserting > 0 || m.sess.Inserting())

	header := lipgloss.JoinVertical(lipgloss.Left,
		LabelStyle.Render("Title")+ValueStyle.Render(orDash(m.form.Title)),
		LabelStyle.Render("Subtitle")+ValueStyle.Render(orDash(m.form.Subtitle)),
		LabelStyle.Render("Tags")+ValueStyle.Render(orDash(strings.Join(m.form.Tags, ", "))),
	)

	// Header (3), borders (2), notice, help, status bar, prompt when open.
	reserved := 8
	if m.prompt.IsActive() {
		reserved += 4
	}
	textHeight := m.height - reserved
	if textHeight < 1 {
		textHeight = 1
	}

	body := BorderStyle.Width(m.width - 2).Render(renderText(st, textHeight))

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
	if m.prompt.IsActive() {
		b.WriteString(m.prompt.View())
		b.WriteString("\n")
	}
	b.WriteString(StyleForNotice(m.noticeKind).Render(m.notice))
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(helpText))
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

// renderText draws the text with a block cursor, showing at most height
// lines around the cursor line.
func renderText(st editor.State, height int) string {
	cursor := " "
	rest := st.Text[st.End:]
	if r := []rune(rest); len(r) > 0 && r[0] != '\n' {
		cursor = string(r[0])
		rest = rest[len(cursor):]
	}
	full := st.Text[:st.End] + CursorStyle.Render(cursor) + rest

	lines := strings.Split(full, "\n")
	cursorLine := strings.Count(st.Text[:st.End], "\n")
	first := 0
	if cursorLine >= height {
		first = cursorLine - height + 1
	}
	last := first + height
	if last > len(lines) {
		last = len(lines)
	}
	return strings.Join(lines[first:last], "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
