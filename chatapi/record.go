// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

package chatapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/canopy-chat/canopy/lib/codec"
)

// captureFrame is one recorded event: the envelope plus the wall-clock
// time it was observed. Frames are CBOR-encoded back to back with no
// outer container, so a capture can be appended to and replay can stop
// at a truncated tail.
type captureFrame struct {
	At       time.Time     `cbor:"at"`
	Envelope eventEnvelope `cbor:"event"`
}

// Recorder writes events to a capture file for later replay. Captures
// are a CBOR frame stream — append-only, readable while being written.
//
// Recorder is not safe for concurrent use.
type Recorder struct {
	encoder *codec.Encoder
	now     func() time.Time
}

// NewRecorder creates a Recorder writing to w. The caller retains
// ownership of w and closes it after the last Record call.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{encoder: codec.NewEncoder(w), now: time.Now}
}

// Record appends one event to the capture.
func (r *Recorder) Record(event Event) error {
	frame := captureFrame{At: r.now(), Envelope: encodeEvent(event)}
	if err := r.encoder.Encode(frame); err != nil {
		return fmt.Errorf("chatapi: recording %s event: %w", event.Kind(), err)
	}
	return nil
}

// ReplayStream reads events back from a capture. It satisfies the same
// consumption shape as EventStream — a blocking Next bounded by ctx —
// so replay can drive any consumer a live stream can.
//
// ReplayStream is not safe for concurrent use.
type ReplayStream struct {
	decoder *codec.Decoder
}

// NewReplayStream creates a ReplayStream reading from r.
func NewReplayStream(r io.Reader) *ReplayStream {
	return &ReplayStream{decoder: codec.NewDecoder(r)}
}

// Next returns the next recorded event and the time it was originally
// observed. At the end of the capture it returns io.EOF. A frame cut
// off mid-write (the recorder crashed) also ends the replay with
// io.EOF rather than a decode error.
func (s *ReplayStream) Next(ctx context.Context) (Event, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	var frame captureFrame
	if err := s.decoder.Decode(&frame); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, time.Time{}, io.EOF
		}
		return nil, time.Time{}, fmt.Errorf("chatapi: decoding capture frame: %w", err)
	}
	return decodeEvent(frame.Envelope), frame.At, nil
}
