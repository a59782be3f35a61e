package runtime

import (
	"slices"
	"sort"

	"github.com/neuropipe-io/maxprep/resolve"
	"github.com/neuropipe-io/maxprep/types"
)

// ReconcileBadChannels merges the recording's embedded bad-channel set with
// the external channel-status table. The table is always authoritative: on
// disagreement a warning is recorded and the recording's set is overwritten
// with the table's bad channels (sorted).
//
// When no table is supplied and the recording has no bad channels either,
// an advisory warning is emitted — unannotated recordings are usually a
// sign the bad-channel check was skipped — but the run continues.
func ReconcileBadChannels(rec *types.Recording, table resolve.ChannelTable, record *Assembler) {
	if table == nil {
		if len(rec.BadChannels) == 0 {
			record.Warning("no channels are marked as bad; " +
				"check (automatically or visually) for bad channels before running the Maxwell filter")
		}
		return
	}

	bad := table.Bad()
	current := slices.Clone(rec.BadChannels)
	sort.Strings(current)

	if !slices.Equal(current, bad) {
		record.Warningf("bad channels in the recording metadata %v differ from the channel-status table %v; "+
			"only the channel-status table is authoritative and the recording metadata has been updated",
			current, bad)
	}

	// Authoritative even on agreement; an equal assignment is a no-op.
	rec.BadChannels = bad
}
