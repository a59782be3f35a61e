package types

// Recording is the metadata view of a multichannel MEG recording.
// The pipeline reads DataPath and ProcHistory, and rewrites BadChannels
// during reconciliation; no other field is mutated by this stage.
type Recording struct {
	// DataPath is the path to the raw signal file.
	DataPath string `yaml:"data" json:"data"`
	// BadChannels is the set of channel identifiers marked bad.
	BadChannels []string `yaml:"bad_channels" json:"bad_channels"`
	// ProcHistory is the ordered list of prior-transform provenance
	// records, oldest first.
	ProcHistory []ProcRecord `yaml:"proc_history" json:"proc_history"`
}

// ProcRecord is one provenance entry in a recording's processing history.
type ProcRecord struct {
	// SSSApplied marks that spatial filtering was applied.
	SSSApplied bool `yaml:"sss" json:"sss"`
	// TSSSApplied marks that temporal-spatial filtering was applied.
	TSSSApplied bool `yaml:"tsss" json:"tsss"`
	// CreatedBy names the tool that produced this entry, if known.
	CreatedBy string `yaml:"created_by,omitempty" json:"created_by,omitempty"`
}

// LatestProc returns the most recent history entry, or nil when the
// history is empty.
func (r *Recording) LatestProc() *ProcRecord {
	if len(r.ProcHistory) == 0 {
		return nil
	}
	return &r.ProcHistory[len(r.ProcHistory)-1]
}
