package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status is the outcome of one checker
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Report is the outcome of a readiness pass
type Report struct {
	Healthy bool     `json:"healthy"`
	Checks  []Status `json:"checks"`
}

// Registry manages dependency checkers
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	timeout  time.Duration
}

// NewRegistry creates a registry that bounds each check by timeout
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Registry{
		checkers: make(map[string]Checker),
		timeout:  timeout,
	}
}

// Register adds a checker, replacing any with the same name
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[c.Name()] = c
}

// Names returns the registered checker names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckAll runs every checker concurrently and reports each result
func (r *Registry) CheckAll(ctx context.Context) Report {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	r.mu.RUnlock()

	statuses := make([]Status, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			st := Status{Name: c.Name(), Healthy: true}
			if err := c.Check(cctx); err != nil {
				st.Healthy = false
				st.Error = err.Error()
			}
			statuses[i] = st
		}(i, c)
	}
	wg.Wait()

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })

	report := Report{Healthy: true, Checks: statuses}
	for _, st := range statuses {
		if !st.Healthy {
			report.Healthy = false
		}
	}
	return report
}
