package core

import "context"

// CaptureDevice hands out exclusive access to an audio input.
type CaptureDevice interface {
	// Acquire opens the device and starts capturing. It fails with
	// ErrPermissionDenied or ErrDeviceUnavailable.
	Acquire(ctx context.Context) (CaptureSession, error)
}

// CaptureSession is one live capture. Exactly one of Stop or Abort is called,
// and either one releases the device.
type CaptureSession interface {
	// Stop ends capture and returns the fragments in capture order.
	Stop() ([]Frame, error)
	// Abort ends capture and discards everything.
	Abort()
}
