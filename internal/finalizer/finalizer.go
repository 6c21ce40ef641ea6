// Package finalizer runs after the shuffler has drained every copy
// operation: it writes the zero-source regions the planner queued, then
// re-fingerprints every destination region to prove the lift succeeded.
package finalizer

import (
	"github.com/gaby/looplift/internal/diskio"
	"github.com/gaby/looplift/internal/errs"
	"github.com/gaby/looplift/internal/planner"
)

// Run drains plan.Zeros, writing zero bytes to each range, then drains
// plan.Verifies, fingerprinting each destination range and requiring it
// match the fingerprint recorded by the planner. In dry-run mode, zero
// writes are suppressed by diskio.IO itself and verification is skipped
// entirely, since no bytes have actually moved.
func Run(plan *planner.Plan, dio *diskio.IO) error {
	for _, z := range plan.Zeros {
		if err := dio.FillZeros(z.Destination); err != nil {
			return err
		}
	}

	if dio.DryRun() {
		return nil
	}

	for _, v := range plan.Verifies {
		fp, err := dio.Fingerprint(v.Destination)
		if err != nil {
			return err
		}
		if fp != v.Fingerprint {
			return errs.Postconditionf(
				"finalizer: destination range %v fingerprint mismatch after lift: expected %x, got %x",
				v.Destination, v.Fingerprint, fp)
		}
	}

	return nil
}
