package sim

// Dynamics is the contract every atomic model kind satisfies. Transition
// folds the internal, external and confluent DEVS transitions into one
// call: t is the current time, e the elapsed time since the last
// transition and r the time remaining to the scheduled one. TimeAdvance
// reports the sigma computed by the last transition or initialize.
//
// The remaining operations are optional capability interfaces; a kind
// that does not implement one simply has no output, no observation or
// nothing to set up or tear down.
type Dynamics interface {
	Transition(s *Simulation, t, e, r Time) error
	TimeAdvance() Time
}

type initializer interface {
	Initialize(s *Simulation) error
}

type finalizer interface {
	Finalize(s *Simulation) error
}

// emitter is the lambda of the DEVS formalism: emit output messages just
// before an internal transition.
type emitter interface {
	Lambda(s *Simulation) error
}

type observable interface {
	Observation(e Time) ObservationMessage
}

// hasInputs and hasOutputs expose a kind's port words. The returned
// slices alias the kind's own arrays; writes through them are writes to
// the ports.
type hasInputs interface {
	InputPorts() []ListID
}

type hasOutputs interface {
	OutputPorts() []ListID
}

// cloner produces a copy of the kind carrying parameters and state but
// no port or archive bindings; the Simulation resets those after.
type cloner interface {
	clone() Dynamics
}

// DynamicsType tags the concrete kind stored in a model payload.
type DynamicsType int32

const (
	TypeQSS1Integrator DynamicsType = iota
	TypeQSS1Multiplier
	TypeQSS1Cross
	TypeQSS1Power
	TypeQSS1Square
	TypeQSS1Sum2
	TypeQSS1Sum3
	TypeQSS1Sum4
	TypeQSS1WSum2
	TypeQSS1WSum3
	TypeQSS1WSum4

	TypeQSS2Integrator
	TypeQSS2Multiplier
	TypeQSS2Cross
	TypeQSS2Power
	TypeQSS2Square
	TypeQSS2Sum2
	TypeQSS2Sum3
	TypeQSS2Sum4
	TypeQSS2WSum2
	TypeQSS2WSum3
	TypeQSS2WSum4

	TypeQSS3Integrator
	TypeQSS3Multiplier
	TypeQSS3Cross
	TypeQSS3Power
	TypeQSS3Square
	TypeQSS3Sum2
	TypeQSS3Sum3
	TypeQSS3Sum4
	TypeQSS3WSum2
	TypeQSS3WSum3
	TypeQSS3WSum4

	TypeIntegrator
	TypeQuantifier
	TypeAdder2
	TypeAdder3
	TypeAdder4
	TypeMult2
	TypeMult3
	TypeMult4

	TypeCounter

	TypeQueue
	TypeDynamicQueue
	TypePriorityQueue

	TypeGenerator
	TypeConstant
	TypeCross
	TypeTimeFunc
	TypeAccumulator2
	TypeFilter
	TypeFlow

	dynamicsTypeCount
)

var dynamicsTypeNames = [dynamicsTypeCount]string{
	"qss1_integrator", "qss1_multiplier", "qss1_cross", "qss1_power",
	"qss1_square", "qss1_sum_2", "qss1_sum_3", "qss1_sum_4",
	"qss1_wsum_2", "qss1_wsum_3", "qss1_wsum_4",

	"qss2_integrator", "qss2_multiplier", "qss2_cross", "qss2_power",
	"qss2_square", "qss2_sum_2", "qss2_sum_3", "qss2_sum_4",
	"qss2_wsum_2", "qss2_wsum_3", "qss2_wsum_4",

	"qss3_integrator", "qss3_multiplier", "qss3_cross", "qss3_power",
	"qss3_square", "qss3_sum_2", "qss3_sum_3", "qss3_sum_4",
	"qss3_wsum_2", "qss3_wsum_3", "qss3_wsum_4",

	"integrator", "quantifier", "adder_2", "adder_3", "adder_4",
	"mult_2", "mult_3", "mult_4",

	"counter",

	"queue", "dynamic_queue", "priority_queue",

	"generator", "constant", "cross", "time_func", "accumulator_2",
	"filter", "flow",
}

func (t DynamicsType) String() string {
	if t < 0 || t >= dynamicsTypeCount {
		return "unknown"
	}
	return dynamicsTypeNames[t]
}

// ParseDynamicsType resolves the canonical kind name used in scenario
// files back to its tag.
func ParseDynamicsType(name string) (DynamicsType, error) {
	for i, n := range dynamicsTypeNames {
		if n == name {
			return DynamicsType(i), nil
		}
	}
	return 0, ErrUnknownDynamics
}

// newDynamics builds a fresh, unbound payload for the given tag.
func newDynamics(t DynamicsType) Dynamics {
	switch t {
	case TypeQSS1Integrator:
		return &QSSIntegrator{Order: 1, DefaultDQ: 0.01}
	case TypeQSS2Integrator:
		return &QSSIntegrator{Order: 2, DefaultDQ: 0.01}
	case TypeQSS3Integrator:
		return &QSSIntegrator{Order: 3, DefaultDQ: 0.01}
	case TypeQSS1Multiplier:
		return &QSSMultiplier{Order: 1}
	case TypeQSS2Multiplier:
		return &QSSMultiplier{Order: 2}
	case TypeQSS3Multiplier:
		return &QSSMultiplier{Order: 3}
	case TypeQSS1Cross:
		return &QSSCross{Order: 1, DefaultDetectUp: true}
	case TypeQSS2Cross:
		return &QSSCross{Order: 2, DefaultDetectUp: true}
	case TypeQSS3Cross:
		return &QSSCross{Order: 3, DefaultDetectUp: true}
	case TypeQSS1Power:
		return &QSSPower{Order: 1}
	case TypeQSS2Power:
		return &QSSPower{Order: 2}
	case TypeQSS3Power:
		return &QSSPower{Order: 3}
	case TypeQSS1Square:
		return &QSSSquare{Order: 1}
	case TypeQSS2Square:
		return &QSSSquare{Order: 2}
	case TypeQSS3Square:
		return &QSSSquare{Order: 3}
	case TypeQSS1Sum2:
		return &QSSSum{Order: 1, N: 2}
	case TypeQSS1Sum3:
		return &QSSSum{Order: 1, N: 3}
	case TypeQSS1Sum4:
		return &QSSSum{Order: 1, N: 4}
	case TypeQSS2Sum2:
		return &QSSSum{Order: 2, N: 2}
	case TypeQSS2Sum3:
		return &QSSSum{Order: 2, N: 3}
	case TypeQSS2Sum4:
		return &QSSSum{Order: 2, N: 4}
	case TypeQSS3Sum2:
		return &QSSSum{Order: 3, N: 2}
	case TypeQSS3Sum3:
		return &QSSSum{Order: 3, N: 3}
	case TypeQSS3Sum4:
		return &QSSSum{Order: 3, N: 4}
	case TypeQSS1WSum2:
		return &QSSWSum{Order: 1, N: 2}
	case TypeQSS1WSum3:
		return &QSSWSum{Order: 1, N: 3}
	case TypeQSS1WSum4:
		return &QSSWSum{Order: 1, N: 4}
	case TypeQSS2WSum2:
		return &QSSWSum{Order: 2, N: 2}
	case TypeQSS2WSum3:
		return &QSSWSum{Order: 2, N: 3}
	case TypeQSS2WSum4:
		return &QSSWSum{Order: 2, N: 4}
	case TypeQSS3WSum2:
		return &QSSWSum{Order: 3, N: 2}
	case TypeQSS3WSum3:
		return &QSSWSum{Order: 3, N: 3}
	case TypeQSS3WSum4:
		return &QSSWSum{Order: 3, N: 4}

	case TypeIntegrator:
		return &Integrator{}
	case TypeQuantifier:
		return &Quantifier{
			DefaultStepSize:   0.001,
			DefaultPastLength: 3,
			DefaultAdaptState: AdaptPossible,
		}
	case TypeAdder2:
		return newAdder(2)
	case TypeAdder3:
		return newAdder(3)
	case TypeAdder4:
		return newAdder(4)
	case TypeMult2:
		return newMult(2)
	case TypeMult3:
		return newMult(3)
	case TypeMult4:
		return newMult(4)

	case TypeCounter:
		return &Counter{}

	case TypeQueue:
		return &Queue{DefaultTa: 1}
	case TypeDynamicQueue:
		return &DynamicQueue{}
	case TypePriorityQueue:
		return &PriorityQueue{DefaultTa: 1}

	case TypeGenerator:
		return &Generator{}
	case TypeConstant:
		return &Constant{}
	case TypeCross:
		return &Cross{}
	case TypeTimeFunc:
		return &TimeFunc{DefaultSigma: 0.01, DefaultF: IdentityTimeFunction}
	case TypeAccumulator2:
		return &Accumulator{N: 2}
	case TypeFilter:
		return &Filter{DefaultLowerThreshold: -0.5, DefaultUpperThreshold: 0.5}
	case TypeFlow:
		return &Flow{DefaultSampleRate: 44100}
	}

	return nil
}

// GetDyn extracts the concrete kind from a model payload. A mismatched
// kind is an invariant violation by the caller, not a runtime error, so
// the type assertion is left to panic.
func GetDyn[D Dynamics](mdl *Model) D {
	return mdl.dyn.(D)
}
