package resolve

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/neuropipe-io/maxprep/iox"
	"github.com/neuropipe-io/maxprep/types"
)

// ChannelStatus is one row of the channel-status table.
type ChannelStatus struct {
	Name   string
	Status string
}

// ChannelTable is the parsed channel-status table. It is the authoritative
// source of bad-channel information for the run.
type ChannelTable []ChannelStatus

// Bad returns the sorted names of channels whose status is "bad".
func (t ChannelTable) Bad() []string {
	var bad []string
	for _, ch := range t {
		if ch.Status == "bad" {
			bad = append(bad, ch.Name)
		}
	}
	sort.Strings(bad)
	return bad
}

// ReadChannelTable parses a tab-separated channel-status file.
// The header must carry at least "name" and "status" columns; extra
// columns are ignored.
func ReadChannelTable(path string) (ChannelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.ValidationError{Field: "channels", Reason: "cannot open channel-status file", Err: err}
	}
	defer iox.DiscardClose(f)

	reader := csv.NewReader(f)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, &types.ValidationError{Field: "channels", Reason: "malformed channel-status table", Err: err}
	}
	if len(rows) == 0 {
		return nil, types.NewValidationError("channels", "channel-status table is empty")
	}

	nameCol, statusCol := -1, -1
	for i, col := range rows[0] {
		switch col {
		case "name":
			nameCol = i
		case "status":
			statusCol = i
		}
	}
	if nameCol < 0 || statusCol < 0 {
		return nil, types.NewValidationError("channels",
			`channel-status table must have "name" and "status" columns`)
	}

	table := make(ChannelTable, 0, len(rows)-1)
	for lineNo, row := range rows[1:] {
		if len(row) <= nameCol || len(row) <= statusCol {
			return nil, types.NewValidationError("channels",
				fmt.Sprintf("row %d has too few columns", lineNo+2))
		}
		table = append(table, ChannelStatus{Name: row[nameCol], Status: row[statusCol]})
	}
	return table, nil
}
