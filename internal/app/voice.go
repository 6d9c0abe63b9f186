package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/parley/internal/core"
	"github.com/dkeye/parley/internal/domain"
)

type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoiceAcquiring
	VoiceRecording
	VoiceStopped
	VoiceUploading
	VoiceSent
	VoiceCancelled
	VoiceFailed
)

func (s VoiceState) String() string {
	switch s {
	case VoiceAcquiring:
		return "acquiring"
	case VoiceRecording:
		return "recording"
	case VoiceStopped:
		return "stopped"
	case VoiceUploading:
		return "uploading"
	case VoiceSent:
		return "sent"
	case VoiceCancelled:
		return "cancelled"
	case VoiceFailed:
		return "failed"
	default:
		return "idle"
	}
}

const recordingTick = time.Second

// Recording is owned exclusively by VoiceCapture and destroyed on send,
// cancel or failure.
type Recording struct {
	ID        string
	State     VoiceState
	StartedAt time.Time
	Chunks    []core.Frame
}

// VoiceCapture drives capture → upload → send for one recording at a time.
// The device handle is released on every terminal transition.
type VoiceCapture struct {
	ctx      context.Context
	device   core.CaptureDevice
	uploader core.Uploader
	stream   *MessageStream
	view     core.View
	clock    Clock
	poster   Poster

	rec     *Recording
	capture core.CaptureSession
}

func NewVoiceCapture(ctx context.Context, device core.CaptureDevice, uploader core.Uploader, stream *MessageStream, view core.View, clock Clock, poster Poster) *VoiceCapture {
	return &VoiceCapture{
		ctx:      ctx,
		device:   device,
		uploader: uploader,
		stream:   stream,
		view:     view,
		clock:    clock,
		poster:   poster,
	}
}

func (v *VoiceCapture) State() VoiceState {
	if v.rec == nil {
		return VoiceIdle
	}
	return v.rec.State
}

// Toggle starts a recording, or stops the live one.
func (v *VoiceCapture) Toggle() {
	switch v.State() {
	case VoiceIdle:
		v.start()
	case VoiceRecording:
		v.Stop()
	default:
		log.Debug().Str("module", "app.voice").Str("state", v.State().String()).Msg("toggle ignored")
	}
}

func (v *VoiceCapture) start() {
	rec := &Recording{ID: uuid.NewString(), State: VoiceAcquiring}
	v.rec = rec
	log.Info().Str("module", "app.voice").Str("recording", rec.ID).Msg("acquiring capture device")

	go func() {
		sess, err := v.device.Acquire(v.ctx)
		v.poster.Post(CaptureAcquired{RecordingID: rec.ID, Session: sess, Err: err})
	}()
}

// OnAcquired completes the start transition.
func (v *VoiceCapture) OnAcquired(ev CaptureAcquired) {
	if v.rec == nil || v.rec.ID != ev.RecordingID || v.rec.State != VoiceAcquiring {
		// Cancelled while the device was opening.
		if ev.Session != nil {
			ev.Session.Abort()
		}
		return
	}
	if ev.Err != nil {
		log.Warn().Err(ev.Err).Str("module", "app.voice").Str("recording", ev.RecordingID).Msg("capture device not acquired")
		v.rec = nil
		v.view.ShowNotice(core.Notice{Kind: core.NoticeDevice, Text: deviceNoticeText(ev.Err)})
		return
	}

	v.capture = ev.Session
	v.rec.State = VoiceRecording
	v.rec.StartedAt = v.clock.Now()
	v.view.ShowRecording(0)
	v.clock.After(recordingTick, RecordingTick{RecordingID: v.rec.ID})
	log.Info().Str("module", "app.voice").Str("recording", v.rec.ID).Msg("recording")
}

// OnTick refreshes the elapsed time display.
func (v *VoiceCapture) OnTick(ev RecordingTick) {
	if v.rec == nil || v.rec.ID != ev.RecordingID || v.rec.State != VoiceRecording {
		return
	}
	v.view.ShowRecording(v.clock.Now().Sub(v.rec.StartedAt))
	v.clock.After(recordingTick, RecordingTick{RecordingID: v.rec.ID})
}

// Stop ends the live recording and uploads what was captured. An empty
// capture is uploaded as is.
func (v *VoiceCapture) Stop() {
	if v.State() != VoiceRecording {
		return
	}
	frames, err := v.capture.Stop()
	v.capture = nil
	v.view.HideRecording()
	if err != nil {
		v.fail(err, core.NoticeDevice, "Could not finish recording")
		return
	}

	rec := v.rec
	rec.Chunks = frames
	rec.State = VoiceStopped
	payload := core.JoinFrames(rec.Chunks)
	log.Info().Str("module", "app.voice").
		Str("recording", rec.ID).
		Int("chunks", len(rec.Chunks)).
		Int("bytes", len(payload)).
		Msg("recording stopped")

	rec.State = VoiceUploading
	go func() {
		ref, err := v.uploader.UploadVoice(v.ctx, payload)
		v.poster.Post(UploadFinished{RecordingID: rec.ID, File: ref, Err: err})
	}()
}

// Cancel discards the live recording without uploading.
func (v *VoiceCapture) Cancel() {
	switch v.State() {
	case VoiceRecording:
		v.capture.Abort()
		v.capture = nil
		v.view.HideRecording()
	case VoiceAcquiring:
		// OnAcquired releases the late session.
	default:
		return
	}
	v.rec.Chunks = nil
	v.rec.State = VoiceCancelled
	log.Info().Str("module", "app.voice").Str("recording", v.rec.ID).Msg("recording cancelled")
	v.rec = nil
}

// OnUploaded finishes the pipeline by sending the voice message.
func (v *VoiceCapture) OnUploaded(ev UploadFinished) {
	if v.rec == nil || v.rec.ID != ev.RecordingID || v.rec.State != VoiceUploading {
		return
	}
	if ev.Err != nil {
		v.fail(ev.Err, core.NoticeRequest, "Failed to upload voice message")
		return
	}

	v.rec.State = VoiceSent
	file := ev.File
	if err := v.stream.SendOutgoing("", domain.MessageVoice, &file); err != nil {
		log.Warn().Err(err).Str("module", "app.voice").Str("recording", v.rec.ID).Msg("voice message not sent")
	} else {
		log.Info().Str("module", "app.voice").Str("recording", v.rec.ID).Str("url", file.URL).Msg("voice message sent")
	}
	v.rec = nil
}

// Release aborts anything live, used at teardown.
func (v *VoiceCapture) Release() {
	if v.capture != nil {
		v.capture.Abort()
		v.capture = nil
		v.view.HideRecording()
	}
	v.rec = nil
}

func (v *VoiceCapture) fail(err error, kind core.NoticeKind, text string) {
	log.Warn().Err(err).Str("module", "app.voice").Str("recording", v.rec.ID).Msg("recording failed")
	v.rec.Chunks = nil
	v.rec.State = VoiceFailed
	v.rec = nil
	v.view.ShowNotice(core.Notice{Kind: kind, Text: text})
}

func deviceNoticeText(err error) string {
	if errors.Is(err, core.ErrPermissionDenied) {
		return "Microphone permission denied"
	}
	return "Could not access microphone"
}
