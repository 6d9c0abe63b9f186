package app

import (
	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

type SwitchState int

const (
	NoActiveConversation SwitchState = iota
	Switching
	Active
)

func (s SwitchState) String() string {
	switch s {
	case Switching:
		return "switching"
	case Active:
		return "active"
	default:
		return "none"
	}
}

// Session is the explicitly owned session context. It is confined to the
// session loop. ConversationSession is the only writer of the active
// conversation; the channel events are the only writer of the channel state.
type Session struct {
	localUser domain.User
	active    domain.ConversationID
	state     SwitchState
	switchSeq uint64
	channel   core.ChannelState
}

func NewSession(local domain.User) *Session {
	return &Session{localUser: local}
}

func (s *Session) LocalUser() domain.User { return s.localUser }

// Active returns the active conversation, if any.
func (s *Session) Active() (domain.ConversationID, bool) {
	return s.active, s.active != 0
}

func (s *Session) IsActive(id domain.ConversationID) bool {
	return id != 0 && s.active == id
}

func (s *Session) State() SwitchState { return s.state }

func (s *Session) Channel() core.ChannelState { return s.channel }

// currentSwitch is the sequence number of the latest history request.
func (s *Session) currentSwitch() uint64 { return s.switchSeq }

func (s *Session) beginSwitch(id domain.ConversationID) uint64 {
	s.active = id
	s.state = Switching
	s.switchSeq++
	return s.switchSeq
}

func (s *Session) markActive() {
	if s.active != 0 {
		s.state = Active
	}
}

func (s *Session) clearActive() {
	s.active = 0
	s.state = NoActiveConversation
	s.switchSeq++
}

func (s *Session) setChannel(st core.ChannelState) { s.channel = st }
