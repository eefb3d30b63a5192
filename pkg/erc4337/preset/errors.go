package preset

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageIdentity Stage = "identity"
	StageBuild    Stage = "build"
	StageHash     Stage = "hash"
	StageSign     Stage = "sign"
	StageSubmit   Stage = "submit"
	StageConfirm  Stage = "confirm"
	StageFund     Stage = "fund"
)

var (
	ErrIllegalTransition = errors.New("preset: illegal state transition")
	ErrModuleNotEnabled  = errors.New("preset: account is not an enabled module of the safe")
	ErrMissingSigner     = errors.New("preset: no signing key")
	ErrNoOperations      = errors.New("preset: no operations to submit")
)

// StageError tags a failure with the stage it happened in. Raw carries the revert payload
// when the chain produced one, and Revert its decoded form.
type StageError struct {
	Stage  Stage
	Err    error
	Raw    []byte
	Revert *RevertReason
}

func (e *StageError) Error() string {
	if e.Revert != nil && e.Revert.Kind != RevertUnknown {
		return fmt.Sprintf("%s: %v (%s)", e.Stage, e.Err, e.Revert)
	}
	if len(e.Raw) > 0 {
		return fmt.Sprintf("%s: %v (revert data 0x%x)", e.Stage, e.Err, e.Raw)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
