package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// wrapperPackages are never reported as the caller. Request logs from the
// shared fetch client are attributed to the exchange reader that issued them.
var wrapperPackages = []string{
	"github.com/sirupsen/logrus",
	"tradescanner/logger.",
	"tradescanner/internal/fetch.",
	"github.com/cenkalti/backoff",
}

// callerHook reports the first frame outside wrapperPackages.
type callerHook struct {
	skip []string
}

func newCallerHook() *callerHook {
	return &callerHook{skip: wrapperPackages}
}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	if frame, ok := h.caller(4); ok {
		entry.Caller = &frame
	}
	return nil
}

// caller walks the stack from skip frames above runtime.Callers.
func (h *callerHook) caller(skip int) (runtime.Frame, bool) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !h.wrapped(frame.Function) {
			return frame, true
		}
		if !more {
			return runtime.Frame{}, false
		}
	}
}

func (h *callerHook) wrapped(fn string) bool {
	for _, prefix := range h.skip {
		if strings.HasPrefix(fn, prefix) {
			return true
		}
	}
	return false
}
