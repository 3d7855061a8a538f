package main

import (
	"bufio"
	"encoding/json"
	"io"
	"log"

	"citytiles.dev/internal/protocol"
)

// jsonlSink writes each scene op as one JSON line. The first write error is
// kept and later ops are dropped.
type jsonlSink struct {
	w      *bufio.Writer
	logger *log.Logger
	err    error
}

func newJSONLSink(w io.Writer, logger *log.Logger) *jsonlSink {
	return &jsonlSink{w: bufio.NewWriter(w), logger: logger}
}

func (s *jsonlSink) Hello(m protocol.HelloMsg)     { s.emit(m) }
func (s *jsonlSink) Catalog(m protocol.CatalogMsg) { s.emit(m) }
func (s *jsonlSink) Spawn(m protocol.SpawnMsg)     { s.emit(m) }
func (s *jsonlSink) Despawn(m protocol.DespawnMsg) { s.emit(m) }
func (s *jsonlSink) Preview(m protocol.PreviewMsg) { s.emit(m) }

func (s *jsonlSink) Notice(m protocol.NoticeMsg) {
	s.logger.Printf("notice %s: %s", m.Code, m.Message)
	s.emit(m)
}

func (s *jsonlSink) Err() error { return s.err }

func (s *jsonlSink) emit(v any) {
	if s.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.err = err
		return
	}
	if _, err := s.w.Write(b); err != nil {
		s.err = err
		return
	}
	if err := s.w.WriteByte('\n'); err != nil {
		s.err = err
		return
	}
	s.err = s.w.Flush()
}
