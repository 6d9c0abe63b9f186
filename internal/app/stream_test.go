package app_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/parley/internal/app"
	"github.com/dkeye/parley/internal/app/apptest"
	"github.com/dkeye/parley/internal/domain"
)

func TestDuplicatePushIsRenderedOnce(t *testing.T) {
	h := apptest.NewHarness(t)
	h.Open(1)

	m := msg(30, 1, "hello")
	h.Handle(app.MessageReceived{Message: m}, app.MessageReceived{Message: m})

	assert.Equal(t, []domain.MessageID{30}, h.View.MessageIDs())
	assert.Len(t, h.RT.Stream.Messages(), 1)
}

func TestMessagesKeepArrivalOrder(t *testing.T) {
	h := apptest.NewHarness(t)
	h.Open(1)

	h.Handle(
		app.MessageReceived{Message: msg(40, 1, "late id first")},
		app.MessageReceived{Message: msg(35, 1, "earlier id second")},
	)
	assert.Equal(t, []domain.MessageID{40, 35}, h.View.MessageIDs())
}

func TestPushForInactiveConversationOnlyUpdatesPreview(t *testing.T) {
	h := apptest.NewHarness(t)
	h.Open(1)

	h.Handle(app.MessageReceived{Message: msg(50, 2, "elsewhere")})

	assert.Empty(t, h.View.MessageIDs())
	preview, ok := h.List.Preview(2)
	require.True(t, ok)
	assert.Equal(t, "elsewhere", preview)
}

func TestPushForLeftConversationIsNotAppended(t *testing.T) {
	h := apptest.NewHarness(t)
	h.History.Set(1, msg(10, 1, "a"))
	h.Open(1)

	h.Handle(app.SelectConversation{ID: 2})
	h.Handle(app.MessageReceived{Message: msg(11, 1, "late")})
	h.Handle(apptest.Take[app.HistoryLoaded](t, h.Queue))

	assert.Empty(t, h.View.MessageIDs())
	preview, ok := h.List.Preview(1)
	require.True(t, ok)
	assert.Equal(t, "late", preview)
}

func TestPreviewForVoiceAndLongText(t *testing.T) {
	h := apptest.NewHarness(t)

	voice := msg(60, 3, "")
	voice.Type = domain.MessageVoice
	voice.FileURL = "/uploads/a.webm"
	h.Handle(app.MessageReceived{Message: voice})
	preview, _ := h.List.Preview(3)
	assert.Equal(t, "🎤 Voice message", preview)

	h.Handle(app.MessageReceived{Message: msg(61, 4, strings.Repeat("x", 60))})
	preview, _ = h.List.Preview(4)
	assert.Equal(t, strings.Repeat("x", 50)+"...", preview)
}

func TestSwitchClearsTheList(t *testing.T) {
	h := apptest.NewHarness(t)
	h.History.Set(1, msg(10, 1, "a"))
	h.Open(1)
	require.Equal(t, []domain.MessageID{10}, h.View.MessageIDs())

	h.Handle(app.SelectConversation{ID: 2})
	assert.Empty(t, h.View.MessageIDs())
}

func TestSeenSetResetsOnReplace(t *testing.T) {
	h := apptest.NewHarness(t)
	h.History.Set(1, msg(10, 1, "a"))
	h.Open(1)
	h.Open(2)

	// The same id is new again in a fresh list.
	h.Open(1)
	assert.Equal(t, []domain.MessageID{10}, h.View.MessageIDs())
}

func TestSendTextPublishesWithoutLocalAppend(t *testing.T) {
	h := apptest.NewHarness(t)
	h.Open(1)

	h.Handle(app.SendText{Content: "  hi there  "})

	sent := h.Link.Of(apptest.ActMessage)
	require.Len(t, sent, 1)
	assert.Equal(t, domain.OutgoingMessage{ConversationID: 1, Content: "hi there", Type: domain.MessageText}, sent[0].Message)
	assert.Empty(t, h.View.MessageIDs())
}

func TestBlankSendPublishesNothing(t *testing.T) {
	h := apptest.NewHarness(t)
	h.Open(1)

	h.Handle(app.SendText{Content: "   \n\t"}, app.SendText{Content: ""})
	assert.Empty(t, h.Link.Of(apptest.ActMessage))
}

func TestSendWithoutActiveConversationPublishesNothing(t *testing.T) {
	h := apptest.NewHarness(t)
	h.Handle(app.SendText{Content: "hello"})

	assert.Empty(t, h.Link.Actions())
	assert.Empty(t, h.View.Notices())
}

func TestMessagesWithoutIDAreNotDeduplicated(t *testing.T) {
	h := apptest.NewHarness(t)
	h.Open(1)

	h.Handle(app.MessageReceived{Message: msg(0, 1, "a")}, app.MessageReceived{Message: msg(0, 1, "a")})
	assert.Len(t, h.View.Messages(), 2)
}
