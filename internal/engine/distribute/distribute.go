// Package distribute splits a run's job quota across query groups, moves
// unmet quota to groups that can absorb it, and removes cross-group duplicates.
package distribute

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

// DefaultSaturationThreshold is the found/requested ratio at which a group
// is taken to have more results available.
const DefaultSaturationThreshold = 0.9

// Allocation is one group's bookkeeping for a run.
type Allocation struct {
	Group     string
	Requested int
	Found     int
	Jobs      []engine.CanonicalJob
}

// Count is the reporting view of an Allocation.
type Count struct {
	Requested int `json:"requested"`
	Found     int `json:"found"`
}

// Distributor holds the saturation threshold used by Redistribute.
type Distributor struct {
	threshold float64
}

// New returns a Distributor. A threshold outside (0, 1] falls back to the default.
func New(threshold float64) *Distributor {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSaturationThreshold
	}
	return &Distributor{threshold: threshold}
}

// InitialDistribution splits total as evenly as possible across groups; the
// first total%n groups, in input order, get one extra.
func InitialDistribution(groups []engine.QueryGroup, total int) map[string]int {
	out := make(map[string]int, len(groups))
	if len(groups) == 0 {
		return out
	}
	total = max(total, 0)
	shares := evenSplit(total, len(groups))
	for i, g := range groups {
		out[g.Key()] += shares[i]
	}
	slog.Debug("initial distribution", slog.Any("quotas", out))
	return out
}

// Redistribute returns new quotas. When the run is short and some groups
// are saturated, the shortfall is split evenly over the saturated groups
// (remainder to the first ones in input order); every other quota stays.
func (d *Distributor) Redistribute(allocs []Allocation, total int) map[string]int {
	out := make(map[string]int, len(allocs))
	found := 0
	for _, a := range allocs {
		out[a.Group] = a.Requested
		found += a.Found
	}
	if found >= total {
		return out
	}

	var saturated []int
	for i, a := range allocs {
		if d.Saturated(a) {
			saturated = append(saturated, i)
		}
	}
	if len(saturated) == 0 {
		slog.Info("no saturated groups, quota not redistributed", slog.Int("found", found), slog.Int("requested", total))
		return out
	}

	extra := evenSplit(total-found, len(saturated))
	for k, i := range saturated {
		out[allocs[i].Group] += extra[k]
	}
	slog.Info("quota redistributed",
		slog.Int("shortfall", total-found),
		slog.Int("saturated_groups", len(saturated)),
		slog.Any("quotas", out))
	return out
}

// Saturated reports whether a group filled at least threshold of its quota.
func (d *Distributor) Saturated(a Allocation) bool {
	return float64(a.Found) >= d.threshold*float64(a.Requested)
}

// AllocationSummary reports requested and found per group.
func AllocationSummary(allocs []Allocation) map[string]Count {
	out := make(map[string]Count, len(allocs))
	for _, a := range allocs {
		out[a.Group] = Count{Requested: a.Requested, Found: a.Found}
	}
	return out
}

func evenSplit(total, n int) []int {
	base, rem := total/n, total%n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// DedupStrategy selects how duplicates across groups are handled.
type DedupStrategy string

const (
	// FirstPath keeps a URL only in the first group, in input order, that has it.
	FirstPath DedupStrategy = "first_path"
	// AllPaths keeps every job in every group.
	AllPaths DedupStrategy = "all_paths"
)

// ParseDedupStrategy maps a request value to a strategy; empty means FirstPath.
func ParseDedupStrategy(s string) (DedupStrategy, error) {
	switch DedupStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FirstPath:
		return FirstPath, nil
	case AllPaths:
		return AllPaths, nil
	}
	return "", fmt.Errorf("unknown dedup strategy %q", s)
}

// GroupJobs is one group's job list, in the group's input position.
type GroupJobs struct {
	Group string
	Jobs  []engine.CanonicalJob
}

// Deduplicate returns a copy of groups with duplicate URLs removed per
// strategy. Jobs without a URL are never removed.
func Deduplicate(groups []GroupJobs, strategy DedupStrategy) []GroupJobs {
	out := make([]GroupJobs, len(groups))
	if strategy == AllPaths {
		for i, g := range groups {
			out[i] = GroupJobs{Group: g.Group, Jobs: append(make([]engine.CanonicalJob, 0, len(g.Jobs)), g.Jobs...)}
		}
		return out
	}

	seen := make(map[string]struct{})
	dropped := 0
	for i, g := range groups {
		kept := make([]engine.CanonicalJob, 0, len(g.Jobs))
		for _, j := range g.Jobs {
			u := strings.TrimSpace(j.URL)
			if u == "" {
				kept = append(kept, j)
				continue
			}
			if _, dup := seen[u]; dup {
				dropped++
				continue
			}
			seen[u] = struct{}{}
			kept = append(kept, j)
		}
		out[i] = GroupJobs{Group: g.Group, Jobs: kept}
	}
	if dropped > 0 {
		engine.AddDuplicatesDropped(dropped)
		slog.Debug("duplicates dropped", slog.Int("count", dropped))
	}
	return out
}
