package distribute

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_jobplan/internal/engine"
)

func groupsN(n int) []engine.QueryGroup {
	out := make([]engine.QueryGroup, n)
	for i := range out {
		out[i] = engine.QueryGroup{ID: fmt.Sprintf("g%d", i), Title: fmt.Sprintf("Group %d", i)}
	}
	return out
}

func TestInitialDistribution(t *testing.T) {
	got := InitialDistribution(groupsN(3), 20)
	assert.Equal(t, map[string]int{"g0": 7, "g1": 7, "g2": 6}, got)

	assert.Empty(t, InitialDistribution(nil, 20))
}

func TestInitialDistributionConservesQuota(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for total := 0; total <= 500; total += 7 {
			got := InitialDistribution(groupsN(n), total)
			sum := 0
			for i, g := range groupsN(n) {
				sum += got[g.Key()]
				if i > 0 {
					prev := got[groupsN(n)[i-1].Key()]
					assert.LessOrEqual(t, got[g.Key()], prev, "extras go to the first groups")
				}
			}
			require.Equal(t, total, sum, "n=%d total=%d", n, total)
		}
	}
}

func TestRedistributeScenario(t *testing.T) {
	d := New(0.9)

	// Software Engineer filled its quota; Federal IT returned 3 of 10.
	allocs := []Allocation{
		{Group: "swe", Requested: 10, Found: 10},
		{Group: "fed", Requested: 10, Found: 3},
	}
	assert.Equal(t, map[string]int{"swe": 17, "fed": 10}, d.Redistribute(allocs, 20))

	// Both saturated: shortfall split, remainder first.
	allocs = []Allocation{
		{Group: "a", Requested: 10, Found: 9},
		{Group: "b", Requested: 10, Found: 10},
		{Group: "c", Requested: 10, Found: 0},
	}
	assert.Equal(t, map[string]int{"a": 16, "b": 15, "c": 10}, d.Redistribute(allocs, 30))
}

func TestRedistributeNoSaturatedGroups(t *testing.T) {
	allocs := []Allocation{
		{Group: "a", Requested: 10, Found: 3},
		{Group: "b", Requested: 10, Found: 8},
	}
	assert.Equal(t, map[string]int{"a": 10, "b": 10}, New(0.9).Redistribute(allocs, 20))
}

func TestRedistributeProperties(t *testing.T) {
	d := New(DefaultSaturationThreshold)
	r := rand.New(rand.NewPCG(1, 2))
	for iter := 0; iter < 500; iter++ {
		n := 1 + r.IntN(5)
		total := 10 + r.IntN(491)
		quotas := InitialDistribution(groupsN(n), total)
		allocs := make([]Allocation, n)
		for i, g := range groupsN(n) {
			req := quotas[g.Key()]
			allocs[i] = Allocation{Group: g.Key(), Requested: req, Found: r.IntN(req + 1)}
		}

		got := d.Redistribute(allocs, total)
		found, newTotal := 0, 0
		for _, a := range allocs {
			found += a.Found
			newTotal += got[a.Group]
			assert.GreaterOrEqual(t, got[a.Group], a.Requested, "never reduces quota")
			if !d.Saturated(a) {
				assert.Equal(t, a.Requested, got[a.Group], "unsaturated quota unchanged")
			}
		}
		if found >= total {
			for _, a := range allocs {
				assert.Equal(t, a.Requested, got[a.Group], "no-op when satisfied")
			}
		} else if newTotal != total {
			assert.Equal(t, total+(total-found), newTotal, "shortfall added exactly once")
		}
	}
}

func TestNewThresholdDefault(t *testing.T) {
	assert.Equal(t, DefaultSaturationThreshold, New(0).threshold)
	assert.Equal(t, DefaultSaturationThreshold, New(1.5).threshold)
	assert.Equal(t, 0.5, New(0.5).threshold)
}

func TestAllocationSummary(t *testing.T) {
	allocs := []Allocation{{Group: "a", Requested: 10, Found: 4, Jobs: make([]engine.CanonicalJob, 4)}}
	assert.Equal(t, map[string]Count{"a": {Requested: 10, Found: 4}}, AllocationSummary(allocs))
}

func job(url string) engine.CanonicalJob {
	return engine.CanonicalJob{Title: "t", URL: url}
}

func TestDeduplicateFirstPath(t *testing.T) {
	in := []GroupJobs{
		{Group: "swe", Jobs: []engine.CanonicalJob{job("https://x/1"), job("https://x/2"), job("")}},
		{Group: "ml", Jobs: []engine.CanonicalJob{job("https://x/2"), job(""), job("https://x/3"), job("https://x/3")}},
	}
	got := Deduplicate(in, FirstPath)

	require.Len(t, got, 2)
	assert.Equal(t, "swe", got[0].Group)
	assert.Len(t, got[0].Jobs, 3)
	assert.Equal(t, []engine.CanonicalJob{job(""), job("https://x/3")}, got[1].Jobs)
	assert.Len(t, in[1].Jobs, 4, "input is not modified")
}

func TestDeduplicateAllPaths(t *testing.T) {
	in := []GroupJobs{
		{Group: "a", Jobs: []engine.CanonicalJob{job("https://x/1")}},
		{Group: "b", Jobs: []engine.CanonicalJob{job("https://x/1")}},
	}
	got := Deduplicate(in, AllPaths)
	assert.Len(t, got[0].Jobs, 1)
	assert.Len(t, got[1].Jobs, 1)

	got = Deduplicate(in, FirstPath)
	assert.Len(t, got[0].Jobs, 1)
	assert.Empty(t, got[1].Jobs)
}

func TestDeduplicateIdempotentAndKeepsURLless(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for iter := 0; iter < 200; iter++ {
		in := make([]GroupJobs, 1+r.IntN(5))
		noURL := 0
		for i := range in {
			in[i].Group = fmt.Sprintf("g%d", i)
			for k := r.IntN(12); k > 0; k-- {
				if r.IntN(4) == 0 {
					in[i].Jobs = append(in[i].Jobs, job(""))
					noURL++
				} else {
					in[i].Jobs = append(in[i].Jobs, job(fmt.Sprintf("https://x/%d", r.IntN(10))))
				}
			}
		}
		once := Deduplicate(in, FirstPath)
		twice := Deduplicate(once, FirstPath)
		assert.Equal(t, once, twice)

		kept := 0
		for _, g := range once {
			for _, j := range g.Jobs {
				if j.URL == "" {
					kept++
				}
			}
		}
		assert.Equal(t, noURL, kept)
	}
}

func TestParseDedupStrategy(t *testing.T) {
	for in, want := range map[string]DedupStrategy{"": FirstPath, "first_path": FirstPath, "ALL_PATHS": AllPaths} {
		got, err := ParseDedupStrategy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDedupStrategy("best_match")
	assert.Error(t, err)
}
