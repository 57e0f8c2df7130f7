package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means the store answers but indexes are still restoring.
	Degraded Status = "degraded"
	// Unhealthy means the store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

const (
	checkDatabase = "database"
	checkIndexes  = "indexes"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type check struct {
	name string
	run  func(ctx context.Context) error
}

// Service runs component checks concurrently.
type Service struct {
	checks  []check
	timeout time.Duration
}

// New creates a Service. indexes can be nil.
func New(db DBPinger, indexes IndexChecker) *Service {
	s := &Service{timeout: DefaultCheckTimeout}
	s.checks = append(s.checks, check{name: checkDatabase, run: db.Ping})
	if indexes != nil {
		s.checks = append(s.checks, check{name: checkIndexes, run: indexes.Ready})
	}
	return s
}

// WithTimeout overrides the per-check timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs all checks. A failing database makes the report Unhealthy;
// any other failure makes it Degraded.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.checks))
	)

	var g errgroup.Group
	for _, c := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := c.run(cctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			checks[c.name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	for name, v := range checks {
		if v != CheckError {
			continue
		}
		if name == checkDatabase {
			status = Unhealthy
			break
		}
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
