// Package metrics is a minimal counter registry exposed in the Prometheus
// text format. The full client library would be overkill for a handful of
// counters; the exposition format encoder is enough.
package metrics

import (
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Counter names registered by the service.
const (
	SubmissionsAccepted  = "astroserve_submissions_accepted_total"
	SubmissionsRejected  = "astroserve_submissions_rejected_total"
	AuthFailures         = "astroserve_auth_failures_total"
	ComputationsComplete = "astroserve_computations_completed_total"
	ComputationsFailed   = "astroserve_computations_failed_total"
	TasksDropped         = "astroserve_tasks_dropped_total"
)

// Registry holds named monotonic counters. The zero value is not usable;
// call New.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	help  string
	value float64
}

// New creates a Registry with the service's counters pre-registered.
func New() *Registry {
	r := &Registry{counters: make(map[string]*counter)}
	r.Register(SubmissionsAccepted, "Chart submissions acknowledged with 202.")
	r.Register(SubmissionsRejected, "Chart submissions rejected by validation.")
	r.Register(AuthFailures, "Requests rejected for missing or invalid credentials.")
	r.Register(ComputationsComplete, "Background computations that completed.")
	r.Register(ComputationsFailed, "Background computations that failed.")
	r.Register(TasksDropped, "Tasks dropped because the dispatch queue was full.")
	return r
}

// Register adds a counter. Registering an existing name is a no-op.
func (r *Registry) Register(name, help string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.counters[name]; !ok {
		r.counters[name] = &counter{help: help}
	}
}

// Inc increments the named counter by one. Unknown names are ignored.
func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

// Add increments the named counter by delta. Unknown names are ignored.
func (r *Registry) Add(name string, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		c.value += delta
	}
}

// Value returns the current value of the named counter.
func (r *Registry) Value(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c.value
	}
	return 0
}

// gather builds the metric families, sorted by name for stable output.
func (r *Registry) gather() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.counters))
	for name := range r.counters {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*dto.MetricFamily, 0, len(names))
	for _, name := range names {
		c := r.counters[name]
		out = append(out, &dto.MetricFamily{
			Name: proto.String(name),
			Help: proto.String(c.help),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{
				Counter: &dto.Counter{Value: proto.Float64(c.value)},
			}},
		})
	}
	return out
}

// Handler serves the registry in the Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range r.gather() {
			if err := enc.Encode(mf); err != nil {
				return
			}
		}
	})
}
