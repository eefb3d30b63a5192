package preset

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"

	"github.com/AvaProtocol/safe-userop/pkg/erc4337/userop"
	"github.com/AvaProtocol/safe-userop/pkg/logger"
)

// State is the lifecycle position of a single operation run.
type State int

const (
	StateUnbuilt State = iota
	StateBuilt
	StateHashed
	StateSigned
	StateSubmitted
	StateConfirmed
	StateFailed
)

var stateNames = map[State]string{
	StateUnbuilt:   "unbuilt",
	StateBuilt:     "built",
	StateHashed:    "hashed",
	StateSigned:    "signed",
	StateSubmitted: "submitted",
	StateConfirmed: "confirmed",
	StateFailed:    "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal states accept no further transitions.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

var nextState = map[State]State{
	StateUnbuilt:   StateBuilt,
	StateBuilt:     StateHashed,
	StateHashed:    StateSigned,
	StateSigned:    StateSubmitted,
	StateSubmitted: StateConfirmed,
}

// Run is one pass of an operation through build, hash, sign, submit and confirm.
// It is created fresh per attempt and never resumed.
type Run struct {
	ID      ulid.ULID
	State   State
	Op      *userop.PackedUserOperation
	Hash    common.Hash
	Result  *SubmissionResult
	Err     error
	History []State
}

func NewRun() *Run {
	return &Run{
		ID:      ulid.Make(),
		State:   StateUnbuilt,
		History: []State{StateUnbuilt},
	}
}

// Advance moves the run to next. Only the single forward step, or Failed from a
// non-terminal state, is allowed.
func (r *Run) Advance(next State) error {
	if r.State.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrIllegalTransition, r.State)
	}
	if next != StateFailed && nextState[r.State] != next {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.State, next)
	}
	r.State = next
	r.History = append(r.History, next)
	return nil
}

func (r *Run) fail(err error) error {
	r.Err = err
	// cannot fail: fail is only reached from non-terminal states
	_ = r.Advance(StateFailed)
	return err
}

// StageRecorder receives stage outcomes. The metrics package implements it.
type StageRecorder interface {
	IncStage(stage string, status string)
	ObserveSubmission(seconds float64)
}

type noopRecorder struct{}

func (noopRecorder) IncStage(string, string)   {}
func (noopRecorder) ObserveSubmission(float64) {}

// Request is everything a run needs besides its collaborators.
type Request struct {
	Identity    *AccountIdentity
	Action      Action
	Gas         GasParams
	Paymaster   *PaymasterParams
	Beneficiary common.Address
	Key         *ecdsa.PrivateKey
}

// Pipeline drives one operation strictly in order: nonce read and build, hash, sign,
// submit, confirm. Concurrent runs for the same sender may read the same nonce; the
// entry point rejects the loser.
type Pipeline struct {
	builder   *Builder
	engine    *Engine
	submitter *Submitter
	recorder  StageRecorder
	logger    logger.Logger
}

type PipelineOption func(*Pipeline)

func WithRecorder(r StageRecorder) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

func WithPipelineLogger(l logger.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger.EnsureLogger(l)
	}
}

func NewPipeline(builder *Builder, engine *Engine, submitter *Submitter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		builder:   builder,
		engine:    engine,
		submitter: submitter,
		recorder:  noopRecorder{},
		logger:    logger.EnsureLogger(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) step(run *Run, stage Stage, next State, err error) error {
	if err != nil {
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		p.recorder.IncStage(string(stage), "error")
		p.logger.Error("stage failed", "run_id", run.ID.String(), "stage", string(stage), "error", err)
		return run.fail(err)
	}
	p.recorder.IncStage(string(stage), "success")
	if advErr := run.Advance(next); advErr != nil {
		return run.fail(advErr)
	}
	p.logger.Debug("stage done", "run_id", run.ID.String(), "stage", string(stage), "state", run.State.String())
	return nil
}

// Execute performs one run. The returned Run is populated as far as the pipeline got,
// including on error.
func (p *Pipeline) Execute(ctx context.Context, req Request) (*Run, error) {
	run := NewRun()
	p.logger.Info("starting user operation run", "run_id", run.ID.String(), "sender", senderOf(req.Identity))

	op, err := p.builder.Build(ctx, req.Identity, req.Action, req.Gas, req.Paymaster)
	run.Op = op
	if err := p.step(run, StageBuild, StateBuilt, err); err != nil {
		return run, err
	}

	hash, err := p.engine.OperationHash(ctx, run.Op)
	run.Hash = hash
	if err := p.step(run, StageHash, StateHashed, err); err != nil {
		return run, err
	}

	sig, err := SignPlain(run.Hash, req.Key)
	if err == nil {
		signed := run.Op.Copy()
		signed.Signature = sig
		run.Op = signed
	}
	if err := p.step(run, StageSign, StateSigned, err); err != nil {
		return run, err
	}

	// Submitted is recorded before the call returns: once handleOps is attempted the
	// run can only end confirmed or failed.
	if err := run.Advance(StateSubmitted); err != nil {
		return run, run.fail(err)
	}
	result, err := p.submitter.Submit(ctx, []userop.PackedUserOperation{*run.Op}, req.Beneficiary)
	run.Result = result
	if result != nil {
		p.recorder.ObserveSubmission(result.Elapsed.Seconds())
	}
	if err := p.step(run, StageConfirm, StateConfirmed, err); err != nil {
		return run, err
	}

	p.logger.Info("user operation confirmed",
		"run_id", run.ID.String(),
		"user_op_hash", run.Hash.Hex(),
		"tx", result.TxHash.Hex(),
	)
	return run, nil
}

func senderOf(id *AccountIdentity) string {
	if id == nil {
		return ""
	}
	return id.Sender.Hex()
}
