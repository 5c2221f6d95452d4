package logging

import (
	"bytes"
	"strings"
	"sync"
)

// RingBuffer keeps the most recent log lines in memory.
// It implements io.Writer so it can sit behind a slog handler.
type RingBuffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
	// partial holds bytes of a line not yet terminated by '\n'.
	partial []byte
}

// NewRingBuffer returns a buffer holding at most size lines.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{lines: make([]string, size)}
}

func (r *RingBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.partial = append(r.partial, data...)
			break
		}
		line := string(append(r.partial, data[:i]...))
		r.partial = r.partial[:0]
		data = data[i+1:]
		if line == "" {
			continue
		}
		r.push(line)
	}
	return len(p), nil
}

func (r *RingBuffer) push(line string) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

// Lines returns up to limit of the newest lines containing q (case-insensitive),
// oldest first. An empty q matches everything; limit <= 0 means no limit.
func (r *RingBuffer) Lines(q string, limit int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered []string
	if r.full {
		ordered = append(ordered, r.lines[r.next:]...)
	}
	ordered = append(ordered, r.lines[:r.next]...)

	q = strings.ToLower(q)
	out := make([]string, 0, len(ordered))
	for _, l := range ordered {
		if q == "" || strings.Contains(strings.ToLower(l), q) {
			out = append(out, l)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len reports how many lines are currently held.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.lines)
	}
	return r.next
}
