package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/custodia-labs/sercha-dispatch/internal/core/domain"
	"github.com/custodia-labs/sercha-dispatch/internal/core/ports/driven"
)

// maxEventBytes bounds one server-sent event.
const maxEventBytes = 1 << 20

var donePayload = []byte("[DONE]")

// sseStream splits a text/event-stream body into events. Each event is
// returned verbatim so it can be relayed unchanged.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
	done    bool
}

func newSSEStream(body io.ReadCloser, cancel context.CancelFunc) *sseStream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxEventBytes)
	return &sseStream{body: body, scanner: sc, cancel: cancel}
}

// Next returns the next event, or io.EOF after [DONE] or the end of the body.
func (s *sseStream) Next() (driven.StreamEvent, error) {
	if s.done {
		return driven.StreamEvent{}, io.EOF
	}

	var lines [][]byte
	for s.scanner.Scan() {
		line := bytes.TrimRight(s.scanner.Bytes(), "\r")
		if len(line) == 0 {
			if len(lines) == 0 {
				continue
			}
			return s.event(lines)
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	if err := s.scanner.Err(); err != nil {
		return driven.StreamEvent{}, fmt.Errorf("%w: read stream: %v", domain.ErrUpstreamAPI, err)
	}
	if len(lines) > 0 {
		return s.event(lines)
	}
	s.done = true
	return driven.StreamEvent{}, io.EOF
}

func (s *sseStream) event(lines [][]byte) (driven.StreamEvent, error) {
	ev := driven.StreamEvent{Raw: bytes.Join(lines, []byte("\n"))}
	for _, line := range lines {
		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		data = bytes.TrimSpace(data)
		if bytes.Equal(data, donePayload) {
			ev.Done = true
			s.done = true
			continue
		}
		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			continue
		}
		for _, ch := range chunk.Choices {
			ev.Delta += ch.Delta.Content
		}
	}
	return ev, nil
}

// Close releases the response body and its deadline.
func (s *sseStream) Close() error {
	s.done = true
	err := s.body.Close()
	s.cancel()
	return err
}
