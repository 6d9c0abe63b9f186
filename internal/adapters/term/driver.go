package term

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/domain"
)

// Intents are the user actions the driver can issue.
type Intents interface {
	SelectConversation(id domain.ConversationID)
	StartChat(uid domain.UserID)
	InputChanged()
	SendText(content string)
	Search(q string)
	ToggleVoice()
	StopVoice()
	CancelVoice()
	Teardown()
}

const help = `commands:
  /join <conversation id>   switch conversation
  /chat <user id>           start a direct chat
  /search [query]           search users and messages, empty clears
  /voice                    start or stop a voice message
  /stop                     stop and send the voice message
  /cancel                   discard the voice message
  /quit                     leave and exit
  anything else is sent as a message`

// Driver reads one intent per input line.
type Driver struct {
	in  io.Reader
	out io.Writer
	ctl Intents
}

func NewDriver(in io.Reader, out io.Writer, ctl Intents) *Driver {
	return &Driver{in: in, out: out, ctl: ctl}
}

// Run reads until EOF or /quit. It reports whether the user asked to quit.
func (d *Driver) Run() (quit bool, err error) {
	sc := bufio.NewScanner(d.in)
	for sc.Scan() {
		if d.handle(sc.Text()) {
			return true, nil
		}
	}
	return false, sc.Err()
}

func (d *Driver) handle(line string) (quit bool) {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		d.ctl.InputChanged()
		d.ctl.SendText(line)
		return false
	}

	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/join":
		if id, ok := d.id(arg); ok {
			d.ctl.SelectConversation(domain.ConversationID(id))
		}
	case "/chat":
		if id, ok := d.id(arg); ok {
			d.ctl.StartChat(domain.UserID(id))
		}
	case "/search":
		d.ctl.Search(arg)
	case "/voice":
		d.ctl.ToggleVoice()
	case "/stop":
		d.ctl.StopVoice()
	case "/cancel":
		d.ctl.CancelVoice()
	case "/quit":
		d.ctl.Teardown()
		return true
	case "/help":
		fmt.Fprintln(d.out, help)
	default:
		log.Debug().Str("module", "term").Str("command", cmd).Msg("unknown command")
		fmt.Fprintf(d.out, "unknown command %s, try /help\n", cmd)
	}
	return false
}

func (d *Driver) id(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(d.out, "invalid id %q\n", arg)
		return 0, false
	}
	return id, true
}
