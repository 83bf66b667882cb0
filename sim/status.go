package sim

import "errors"

// Error taxonomy of the kernel. Every fallible operation returns one of
// these sentinels (possibly wrapped); the run loop short-circuits on the
// first error it sees. Callers match with errors.Is.
var (
	// Memory.
	ErrArenaCapacity         = errors.New("arena: bad capacity")
	ErrNotEnoughMessage      = errors.New("simulation: message arena exhausted")
	ErrNotEnoughNode         = errors.New("simulation: connection arena exhausted")
	ErrNotEnoughDatedMessage = errors.New("simulation: dated-message arena exhausted")
	ErrNotEnoughModel        = errors.New("simulation: model arena exhausted")

	// Wiring.
	ErrUnknownDynamics             = errors.New("model: unknown dynamics")
	ErrConnectUnknownOutputPort    = errors.New("connect: unknown output port")
	ErrConnectUnknownInputPort     = errors.New("connect: unknown input port")
	ErrConnectAlreadyExists        = errors.New("connect: connection already exists")
	ErrConnectIncompatibleDynamics = errors.New("connect: incompatible dynamics")

	// Per-kind numeric.
	ErrIntegratorBadX               = errors.New("integrator: X or dQ not finite and positive")
	ErrIntegratorOutput             = errors.New("integrator: output before initialization")
	ErrIntegratorInternal           = errors.New("integrator: internal state violation")
	ErrIntegratorRunningWithoutXDot = errors.New("integrator: running without x-dot archive")
	ErrIntegratorBadXDot            = errors.New("integrator: x-dot incompatible with thresholds")
	ErrQuantifierBadQuantum         = errors.New("quantifier: step size must be positive")
	ErrQuantifierBadArchiveLength   = errors.New("quantifier: past length must be at least 3")
	ErrQuantifierShiftingNeg        = errors.New("quantifier: shifting factor negative")
	ErrQuantifierShiftingOverOne    = errors.New("quantifier: shifting factor above one")
	ErrFlowBadSampleRate            = errors.New("flow: sample rate must be positive")
	ErrFlowBadData                  = errors.New("flow: data and sigma tables missing or too short")
	ErrFilterThreshold              = errors.New("filter: lower threshold must be below upper")

	// Queueing.
	ErrQueueBadTa              = errors.New("queue: ta must be positive")
	ErrQueueFull               = errors.New("queue: dated-message arena exhausted")
	ErrDynamicQueueSourceNull  = errors.New("dynamic queue: ta source unbound")
	ErrDynamicQueueFull        = errors.New("dynamic queue: dated-message arena exhausted")
	ErrPriorityQueueSourceNull = errors.New("priority queue: ta source unbound")
	ErrPriorityQueueFull       = errors.New("priority queue: dated-message arena exhausted")
	ErrGeneratorSourceNull     = errors.New("generator: source unbound")
	ErrGeneratorSourceEmpty    = errors.New("generator: source empty")

	// External sources.
	ErrSourceUnknown = errors.New("source: unknown source")
	ErrSourceEmpty   = errors.New("source: empty")
)
