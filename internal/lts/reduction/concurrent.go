package reduction

import (
	"golang.org/x/sync/errgroup"

	"github.com/dekarrin/symbane/internal/lts/partition"
)

// Job is one independent minimization to run as part of a concurrent batch:
// typically a StrongBisim or BranchingBisim call closed over its own Lts.
type Job struct {
	Compute func() (*partition.Indexed, error)
	Result  **partition.Indexed
}

// RunConcurrent runs jobs on separate goroutines (spec.md §5's "run N
// independent minimization jobs on separate OS threads" scenario) and waits
// for all of them. Each job writes its result through its own Result
// pointer rather than a shared results slice, so callers don't need to
// correlate indices across a data race. The first job error is returned;
// the others still run to completion, matching errgroup.Group's default
// fail-fast-but-don't-cancel-siblings-without-a-context behavior.
func RunConcurrent(jobs []Job) error {
	var g errgroup.Group
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			p, err := j.Compute()
			if err != nil {
				return err
			}
			*j.Result = p
			return nil
		})
	}
	return g.Wait()
}
