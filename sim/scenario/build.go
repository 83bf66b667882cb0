package scenario

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hybrid-sim/hybrid-sim/sim"
	"github.com/hybrid-sim/hybrid-sim/sim/sources"
)

// Built is an assembled scenario: the simulation, its source registry
// and the name-to-id mapping the caller uses to look models up.
type Built struct {
	Sim      *sim.Simulation
	External *sources.External
	Models   map[string]sim.ModelID
	Until    float64
}

const (
	defaultModelCapacity   = 256
	defaultMessageCapacity = 4096
)

// Build assembles the scenario into a fresh simulation. Every observer
// named in the spec is attached with cb as its callback.
func (s *Spec) Build(cb sim.ObserverCallback) (*Built, error) {
	modelCap := s.Capacities.Models
	if modelCap == 0 {
		modelCap = defaultModelCapacity
	}
	messageCap := s.Capacities.Messages
	if messageCap == 0 {
		messageCap = defaultMessageCapacity
	}

	engine, err := sim.New(sim.Config{ModelCapacity: modelCap, MessageCapacity: messageCap})
	if err != nil {
		return nil, err
	}

	ext := sources.NewExternal(s.Seed)
	engine.SourceDispatch = ext.Dispatch

	srcIDs := make(map[string]sim.Source, len(s.Sources))
	for i := range s.Sources {
		src, err := registerSource(ext, &s.Sources[i])
		if err != nil {
			return nil, err
		}
		srcIDs[s.Sources[i].Name] = src
	}

	built := &Built{
		Sim:      engine,
		External: ext,
		Models:   make(map[string]sim.ModelID, len(s.Models)),
		Until:    s.Until,
	}

	for i := range s.Models {
		spec := &s.Models[i]
		ty, err := sim.ParseDynamicsType(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("model %q: unknown kind %q", spec.Name, spec.Kind)
		}

		mdl, id, err := engine.Alloc(ty)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", spec.Name, err)
		}
		if err := applyParams(mdl, spec, srcIDs); err != nil {
			return nil, fmt.Errorf("model %q: %w", spec.Name, err)
		}
		built.Models[spec.Name] = id
	}

	for _, c := range s.Connects {
		src := engine.Models().Get(built.Models[c.From])
		if err := engine.Connect(src, c.Port, built.Models[c.To], c.In); err != nil {
			return nil, fmt.Errorf("connect %s:%d -> %s:%d: %w",
				c.From, c.Port, c.To, c.In, err)
		}
	}

	for _, name := range s.Observers {
		id := built.Models[name]
		mdl := engine.Models().Get(id)
		obs, obsID, err := engine.AllocObserver(name, cb)
		if err != nil {
			return nil, fmt.Errorf("observer %q: %w", name, err)
		}
		engine.Observe(mdl, id, obs, obsID)
	}

	logrus.Debugf("scenario %q: %d models, %d connections, %d observers",
		s.Name, len(s.Models), len(s.Connects), len(s.Observers))

	return built, nil
}

func registerSource(ext *sources.External, spec *SourceSpec) (sim.Source, error) {
	kind, err := sources.ParseKind(spec.Kind)
	if err != nil {
		return sim.Source{}, fmt.Errorf("source %q: %w", spec.Name, err)
	}

	var id uint64
	switch kind {
	case sources.KindConstant:
		id = ext.AddConstant(spec.Value)
	case sources.KindBinaryFile:
		id = ext.AddBinaryFile(spec.Path)
	case sources.KindTextFile:
		id = ext.AddTextFile(spec.Path)
	case sources.KindRandom:
		dist, ok := sources.ParseDistribution(spec.Distribution)
		if !ok {
			return sim.Source{}, fmt.Errorf("source %q: unknown distribution %q",
				spec.Name, spec.Distribution)
		}
		id = ext.AddRandom(randomFromParams(dist, spec.Params))
	}

	return ext.Bind(kind, id), nil
}

func randomFromParams(dist sources.DistributionType, params map[string]float64) *sources.Random {
	r := &sources.Random{Distribution: dist}
	for key, v := range params {
		switch key {
		case "a":
			r.A = v
		case "b":
			r.B = v
		case "p":
			r.P = v
		case "mean":
			r.Mean = v
		case "lambda":
			r.Lambda = v
		case "alpha":
			r.Alpha = v
		case "beta":
			r.Beta = v
		case "stddev":
			r.StdDev = v
		case "m":
			r.M = v
		case "s":
			r.S = v
		case "n":
			r.N = v
		case "a32":
			r.A32 = int32(v)
		case "b32":
			r.B32 = int32(v)
		case "t32":
			r.T32 = int32(v)
		case "k32":
			r.K32 = int32(v)
		}
	}
	return r
}

// applyParams copies the spec's parameter pack onto the freshly
// allocated payload, per kind family.
func applyParams(mdl *sim.Model, spec *ModelSpec, srcs map[string]sim.Source) error {
	p := func(key string, fallback float64) float64 {
		if v, ok := spec.Params[key]; ok {
			return v
		}
		return fallback
	}

	bind := func(role string) (sim.Source, bool) {
		name, ok := spec.Sources[role]
		if !ok {
			return sim.Source{Type: -1}, false
		}
		return srcs[name], true
	}

	switch dyn := mdl.Dynamics().(type) {
	case *sim.QSSIntegrator:
		dyn.DefaultX = p("x", dyn.DefaultX)
		dyn.DefaultDQ = p("dq", dyn.DefaultDQ)

	case *sim.QSSWSum:
		for i := 0; i < dyn.N; i++ {
			dyn.DefaultInputCoeffs[i] = p(fmt.Sprintf("coeff-%d", i), 0)
		}

	case *sim.QSSPower:
		dyn.DefaultN = p("n", 1)

	case *sim.QSSCross:
		dyn.DefaultThreshold = p("threshold", 0)
		dyn.DefaultDetectUp = p("detect-up", 1) != 0

	case *sim.Cross:
		dyn.DefaultThreshold = p("threshold", 0)

	case *sim.Constant:
		dyn.DefaultValue = p("value", 0)
		dyn.DefaultOffset = p("offset", 0)

	case *sim.TimeFunc:
		dyn.DefaultSigma = p("sigma", dyn.DefaultSigma)
		switch spec.F {
		case "", "time":
			dyn.DefaultF = sim.IdentityTimeFunction
		case "square":
			dyn.DefaultF = sim.SquareTimeFunction
		case "sin":
			dyn.DefaultF = sim.SinTimeFunction
		default:
			return fmt.Errorf("unknown time function %q", spec.F)
		}

	case *sim.Queue:
		dyn.DefaultTa = p("ta", dyn.DefaultTa)

	case *sim.DynamicQueue:
		dyn.StopOnError = p("stop-on-error", 0) != 0
		if src, ok := bind("ta"); ok {
			dyn.DefaultSourceTa = src
		}

	case *sim.PriorityQueue:
		dyn.DefaultTa = p("ta", dyn.DefaultTa)
		dyn.StopOnError = p("stop-on-error", 0) != 0
		if src, ok := bind("ta"); ok {
			dyn.DefaultSourceTa = src
		}

	case *sim.Generator:
		dyn.DefaultOffset = p("offset", 0)
		dyn.StopOnError = p("stop-on-error", 0) != 0
		if src, ok := bind("ta"); ok {
			dyn.DefaultSourceTa = src
		}
		if src, ok := bind("value"); ok {
			dyn.DefaultSourceValue = src
		}

	case *sim.Quantifier:
		dyn.DefaultStepSize = p("step-size", dyn.DefaultStepSize)
		dyn.DefaultPastLength = int(p("past-length", float64(dyn.DefaultPastLength)))
		dyn.DefaultZeroInitOffset = p("zero-init-offset", 0) != 0

	case *sim.Integrator:
		dyn.DefaultCurrentValue = p("x", 0)
		dyn.DefaultResetValue = p("reset", 0)

	case *sim.Filter:
		dyn.DefaultLowerThreshold = p("lower", dyn.DefaultLowerThreshold)
		dyn.DefaultUpperThreshold = p("upper", dyn.DefaultUpperThreshold)

	case *sim.Flow:
		dyn.DefaultSampleRate = p("samplerate", dyn.DefaultSampleRate)
		dyn.DefaultData = spec.Data
		dyn.DefaultSigmas = spec.Sigmas

	case *sim.Adder:
		for i := 0; i < dyn.N; i++ {
			dyn.DefaultValues[i] = p(fmt.Sprintf("value-%d", i), dyn.DefaultValues[i])
			dyn.DefaultInputCoeffs[i] = p(fmt.Sprintf("coeff-%d", i), 0)
		}

	case *sim.Mult:
		for i := 0; i < dyn.N; i++ {
			dyn.DefaultValues[i] = p(fmt.Sprintf("value-%d", i), dyn.DefaultValues[i])
			dyn.DefaultInputCoeffs[i] = p(fmt.Sprintf("coeff-%d", i), 0)
		}

	case *sim.QSSSum, *sim.QSSSquare, *sim.QSSMultiplier,
		*sim.Counter, *sim.Accumulator:
		// No parameters.

	default:
		return fmt.Errorf("no parameter mapping for kind %s", mdl.Type)
	}

	return nil
}
