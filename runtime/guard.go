package runtime

import (
	"github.com/neuropipe-io/maxprep/types"
)

// GuardNotFiltered rejects recordings whose provenance already carries a
// spatial or temporal-spatial filtering flag. Applying the filter twice
// corrupts the data, so this is a hard stop with no degraded path.
//
// The guard runs before any output-area copies, so a rejected run leaves
// no partial artifacts of its own.
func GuardNotFiltered(rec *types.Recording) error {
	last := rec.LatestProc()
	if last == nil {
		return nil
	}
	if last.SSSApplied {
		return &types.PreconditionError{Flag: "sss"}
	}
	if last.TSSSApplied {
		return &types.PreconditionError{Flag: "tsss"}
	}
	return nil
}
