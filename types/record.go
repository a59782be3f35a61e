package types

// RecordEntryType is the kind discriminant for processing record entries.
type RecordEntryType string

const (
	// RecordWarning is a non-fatal advisory entry.
	RecordWarning RecordEntryType = "warning"
	// RecordError is the single terminal failure entry of an aborted run.
	RecordError RecordEntryType = "error"
	// RecordSuccess is the single terminal entry of a completed run.
	RecordSuccess RecordEntryType = "success"
)

// RecordEntry is one entry of the run's processing record.
// The wire shape (type/msg) is fixed by downstream consumers of the
// persisted status document.
type RecordEntry struct {
	Type RecordEntryType `json:"type" msgpack:"type"`
	Msg  string          `json:"msg" msgpack:"msg"`
}
