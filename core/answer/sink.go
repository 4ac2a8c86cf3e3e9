package answer

import (
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Sink receives answer fragments while they are generated
type Sink interface {
	Emit(fragment string) error
}

// WriterSink writes fragments to w, e.g. a terminal
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Emit(fragment string) error {
	_, err := io.WriteString(s.w, fragment)
	return err
}

// LogSink logs every fragment at debug level
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{log: logger}
}

func (s *LogSink) Emit(fragment string) error {
	s.log.Debug("Answer fragment", slog.String("fragment", fragment))
	return nil
}

// BufferSink collects fragments in memory
type BufferSink struct {
	mu        sync.Mutex
	fragments []string
}

func (s *BufferSink) Emit(fragment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = append(s.fragments, fragment)
	return nil
}

// Fragments returns the received fragments in order
func (s *BufferSink) Fragments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fragments...)
}

func (s *BufferSink) String() string {
	return strings.Join(s.Fragments(), "")
}

// MultiSink emits every fragment to all sinks in order
type MultiSink []Sink

func (m MultiSink) Emit(fragment string) error {
	for _, s := range m {
		if err := s.Emit(fragment); err != nil {
			return err
		}
	}
	return nil
}
