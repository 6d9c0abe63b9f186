// Package term is a line-oriented terminal front end: a View that prints
// what the runtime renders, and a Driver that turns input lines into intents.
package term

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

type styles struct {
	header  lipgloss.Style
	sender  lipgloss.Style
	dim     lipgloss.Style
	notice  lipgloss.Style
	rec     lipgloss.Style
	section lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		sender:  r.NewStyle().Bold(true),
		dim:     r.NewStyle().Faint(true),
		notice:  r.NewStyle().Foreground(lipgloss.Color("9")),
		rec:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		section: r.NewStyle().Underline(true),
	}
}

// View implements core.View and core.ConversationList on one writer.
type View struct {
	mu sync.Mutex
	w  io.Writer
	st styles

	typing    string
	searching bool
	recording bool
}

func NewView(w io.Writer) *View {
	return &View{w: w, st: newStyles(lipgloss.NewRenderer(w))}
}

func (v *View) println(s string) {
	fmt.Fprintln(v.w, s)
}

func (v *View) ShowMessages(msgs []domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.st.dim.Render("──────────"))
	for _, m := range msgs {
		v.println(v.formatMessage(m))
	}
}

func (v *View) AppendMessage(m domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.formatMessage(m))
}

func (v *View) formatMessage(m domain.Message) string {
	ts := ""
	if !m.CreatedAt.IsZero() {
		ts = v.st.dim.Render(m.CreatedAt.Local().Format("15:04")) + " "
	}
	body := m.Content
	if m.Type == domain.MessageVoice {
		body = "🎤 voice message"
		if ref, ok := m.File(); ok {
			body += " " + v.st.dim.Render(ref.URL)
		}
	}
	return ts + v.st.sender.Render(m.SenderUsername+":") + " " + body
}

func (v *View) SetHeader(c domain.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	info := "direct"
	if c.IsGroup {
		info = fmt.Sprintf("group, %d participants", c.ParticipantCount)
	}
	v.println(v.st.header.Render("# "+c.Name) + " " + v.st.dim.Render("("+info+")"))
}

func (v *View) ShowTyping(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if text == v.typing {
		return
	}
	v.typing = text
	v.println(v.st.dim.Render(text))
}

func (v *View) ClearTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = ""
}

func (v *View) ShowNotice(n core.Notice) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.st.notice.Render("! " + n.Text))
}

func (v *View) ShowSearchResults(res domain.SearchResults) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.searching = true
	v.println(v.st.section.Render("Search results"))
	if res.Empty() {
		v.println("  no results found")
		return
	}
	for _, u := range res.Users {
		v.println(fmt.Sprintf("  @%s %s", u.Username, v.st.dim.Render(fmt.Sprintf("(/chat %d)", u.ID))))
	}
	for _, m := range res.Messages {
		v.println(fmt.Sprintf("  [%d] %s: %s", m.ConversationID, m.SenderUsername, domain.Preview(m.Type, m.Content)))
	}
}

func (v *View) ClearSearchResults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.searching {
		v.searching = false
		v.println(v.st.dim.Render("search cleared"))
	}
}

func (v *View) ShowRecording(elapsed time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recording = true
	v.println(v.st.rec.Render("● REC " + FormatElapsed(elapsed)))
}

func (v *View) HideRecording() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.recording {
		v.recording = false
		v.println(v.st.dim.Render("■ recording stopped"))
	}
}

func (v *View) UpdatePresence(p domain.Presence) {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := "offline"
	if p.IsOnline {
		state = "online"
	}
	v.println(v.st.dim.Render(fmt.Sprintf("* user %d is %s", p.UserID, state)))
}

func (v *View) SetConversations(convs []domain.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.st.section.Render("Conversations"))
	for _, c := range convs {
		v.println(fmt.Sprintf("  [%d] %s", c.ID, c.Name))
	}
}

func (v *View) UpdatePreview(id domain.ConversationID, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.st.dim.Render(fmt.Sprintf("  [%d] %s", id, strings.ReplaceAll(text, "\n", " "))))
}

// FormatElapsed renders a recording duration as m:ss.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
