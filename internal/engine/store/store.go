// Package store persists finished search runs. Sinks are optional; a run
// never fails because a sink did.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

// RunRecord is everything a sink receives about one finished run.
type RunRecord struct {
	ID            string
	StartedAt     time.Time
	PlanSource    string
	DedupStrategy string
	TotalJobs     int
	TotalCost     float64
	BudgetLimit   float64
	Groups        []GroupRecord
}

// GroupRecord is one group's outcome within a run.
type GroupRecord struct {
	Group     string
	Provider  string
	Source    string
	Query     string
	Requested int
	Found     int
	Jobs      []engine.CanonicalJob
}

// JobCount is the number of jobs across all groups.
func (r RunRecord) JobCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Jobs)
	}
	return n
}

// Sink receives finished runs.
type Sink interface {
	SaveRun(ctx context.Context, run RunRecord) error
	Close()
}

// Multi fans a run out to several sinks and joins their errors.
type Multi []Sink

func (m Multi) SaveRun(ctx context.Context, run RunRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() {
	for _, s := range m {
		s.Close()
	}
}
