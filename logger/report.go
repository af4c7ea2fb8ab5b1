package logger

import (
	"sort"
	"sync"
)

type counters struct {
	mu     sync.Mutex
	warns  map[string]int64
	errors map[string]int64
}

func newCounters() *counters {
	return &counters{warns: make(map[string]int64), errors: make(map[string]int64)}
}

func (c *counters) warn(component string) {
	c.mu.Lock()
	c.warns[component]++
	c.mu.Unlock()
}

func (c *counters) error(component string) {
	c.mu.Lock()
	c.errors[component]++
	c.mu.Unlock()
}

// ComponentReport holds warn/error counts for one component.
type ComponentReport struct {
	Component string `json:"component"`
	Warnings  int64  `json:"warnings"`
	Errors    int64  `json:"errors"`
}

// Report returns warn/error counts per component, sorted by component name.
func (l *Log) Report() []ComponentReport {
	l.counters.mu.Lock()
	defer l.counters.mu.Unlock()

	seen := make(map[string]*ComponentReport)
	for name, n := range l.counters.warns {
		seen[name] = &ComponentReport{Component: name, Warnings: n}
	}
	for name, n := range l.counters.errors {
		if r, ok := seen[name]; ok {
			r.Errors = n
			continue
		}
		seen[name] = &ComponentReport{Component: name, Errors: n}
	}

	out := make([]ComponentReport, 0, len(seen))
	for _, r := range seen {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// LogReport writes the per-component counts and publishes them as metrics.
func (l *Log) LogReport() {
	for _, r := range l.Report() {
		fields := Fields{"report_component": r.Component, "warnings": r.Warnings, "errors": r.Errors}
		l.WithComponent("report").WithFields(fields).Info("run report")
		l.LogMetric(r.Component, "warnings", r.Warnings, "counter", nil)
		l.LogMetric(r.Component, "errors", r.Errors, "counter", nil)
	}
}
