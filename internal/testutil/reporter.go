package testutil

import (
	"strings"
	"sync"
)

// Recorder collects reporter messages for assertions. Its Report method
// has the signature engine.Reporter expects.
type Recorder struct {
	mu   sync.Mutex
	msgs []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Report records msg.
func (r *Recorder) Report(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

// Messages returns a copy of everything recorded, in order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

// Warnings returns the "[WARNING]" messages.
func (r *Recorder) Warnings() []string {
	return r.withPrefix("[WARNING] ")
}

// Infos returns the "[INFO]" messages.
func (r *Recorder) Infos() []string {
	return r.withPrefix("[INFO] ")
}

func (r *Recorder) withPrefix(prefix string) []string {
	var out []string
	for _, m := range r.Messages() {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out
}

// Reset forgets every message.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}
