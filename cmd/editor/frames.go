package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"citytiles.dev/internal/protocol"
	"citytiles.dev/internal/sim/editor"
	"citytiles.dev/internal/sim/input"
)

type frameReader struct {
	adapter *editor.FrameAdapter
	schema  *jsonschema.Schema // optional
	logger  *log.Logger
}

// read sends one input frame per FRAME line. Lines that fail to parse or
// validate are logged and skipped. interval > 0 paces the frames.
func (r frameReader) read(ctx context.Context, in io.Reader, out chan<- input.Frame, interval time.Duration) error {
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		m, err := r.decode(b)
		if err != nil {
			r.logger.Printf("frame line %d: %s: %v", line, protocol.ErrProtoBadRequest, err)
			continue
		}
		f := r.adapter.Frame(m)
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- f:
		}
	}
	return sc.Err()
}

func (r frameReader) decode(b []byte) (protocol.FrameMsg, error) {
	base, err := protocol.DecodeBase(b)
	if err != nil {
		return protocol.FrameMsg{}, err
	}
	if base.Type != protocol.TypeFrame {
		return protocol.FrameMsg{}, fmt.Errorf("unexpected type %q", base.Type)
	}
	if r.schema != nil {
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			return protocol.FrameMsg{}, err
		}
		if err := r.schema.Validate(doc); err != nil {
			return protocol.FrameMsg{}, err
		}
	}
	var m protocol.FrameMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return protocol.FrameMsg{}, err
	}
	return m, nil
}
