package runtime

import (
	"errors"

	"github.com/neuropipe-io/maxprep/store"
	"github.com/neuropipe-io/maxprep/types"
)

// Exit codes for the run command.
const (
	ExitCodeSuccess      = 0 // transform applied, success entry recorded
	ExitCodeValidation   = 1 // malformed or conflicting configuration
	ExitCodePrecondition = 2 // recording already Maxwell-filtered
	ExitCodeTransform    = 3 // external filter routine failed
	ExitCodeStorage      = 4 // output-area persistence failed
)

// OutcomeStatus classifies how the run ended.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the transform was applied.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeValidationFailure indicates malformed/conflicting input.
	OutcomeValidationFailure OutcomeStatus = "validation_error"
	// OutcomePreconditionFailure indicates filtering provenance was found.
	OutcomePreconditionFailure OutcomeStatus = "precondition_error"
	// OutcomeTransformFailure indicates the external routine failed.
	OutcomeTransformFailure OutcomeStatus = "transform_failure"
	// OutcomeStorageFailure indicates the output area rejected a write.
	OutcomeStorageFailure OutcomeStatus = "storage_failure"
)

// Outcome is the final classification of a run.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
}

// ClassifyFailure maps a fatal error to its outcome. Anything that is not
// a validation, precondition, or storage failure is an opaque transform
// failure propagated verbatim.
func ClassifyFailure(err error) *Outcome {
	var storageErr *store.StorageError
	switch {
	case types.IsValidation(err):
		return &Outcome{Status: OutcomeValidationFailure, Message: err.Error()}
	case types.IsPrecondition(err):
		return &Outcome{Status: OutcomePreconditionFailure, Message: err.Error()}
	case errors.As(err, &storageErr):
		return &Outcome{Status: OutcomeStorageFailure, Message: err.Error()}
	default:
		return &Outcome{Status: OutcomeTransformFailure, Message: err.Error()}
	}
}

// ExitCode maps an outcome status to the process exit code.
func ExitCode(status OutcomeStatus) int {
	switch status {
	case OutcomeSuccess:
		return ExitCodeSuccess
	case OutcomeValidationFailure:
		return ExitCodeValidation
	case OutcomePreconditionFailure:
		return ExitCodePrecondition
	case OutcomeStorageFailure:
		return ExitCodeStorage
	default:
		return ExitCodeTransform
	}
}
