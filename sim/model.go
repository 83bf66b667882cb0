package sim

// Model is one allocated atomic model: the scheduling envelope (time of
// last transition, time of next transition, scheduler handle) around a
// kind-specific payload.
type Model struct {
	TL Time
	TN Time

	Type DynamicsType

	handle handle
	obs    ObserverID

	dyn Dynamics
}

// Dynamics returns the kind payload; use GetDyn for a typed extraction.
func (m *Model) Dynamics() Dynamics { return m.dyn }

// ObserverStatus tells an observer callback which phase of the run it is
// being invoked from.
type ObserverStatus int

const (
	ObserverInitialize ObserverStatus = iota
	ObserverRun
	ObserverFinalize
)

// ObserverCallback receives every observation of the attached model: once
// with ObserverInitialize, once per transition with ObserverRun and once
// with ObserverFinalize. The callback may read the simulation but must
// not mutate model structure.
type ObserverCallback func(obs *Observer, ty DynamicsType, tl, t Time, status ObserverStatus)

// Observer samples one model's output through its Observation method.
// Observer and model reference each other by stable id only; freeing
// either side clears the counterpart's field first.
type Observer struct {
	CB       ObserverCallback
	Name     string
	Model    ModelID
	Msg      ObservationMessage
	UserData any
}

// initPorts resets every port of a freshly allocated or cloned payload
// to the empty list.
func initPorts(dyn Dynamics) {
	if in, ok := dyn.(hasInputs); ok {
		ports := in.InputPorts()
		for i := range ports {
			ports[i] = EmptyList
		}
	}
	if out, ok := dyn.(hasOutputs); ok {
		ports := out.OutputPorts()
		for i := range ports {
			ports[i] = EmptyList
		}
	}
}

// isPortsCompatible guards connections: the quantifier's thresholds may
// only feed the legacy integrator's quanta port, and nothing else may
// feed that port. Self-connections are rejected.
func isPortsCompatible(src *Model, portSrc int, dst *Model, portDst int) bool {
	if src == dst {
		return false
	}

	if src.Type == TypeQuantifier {
		return dst.Type == TypeIntegrator && portDst == IntegratorPortQuanta
	}

	if dst.Type == TypeIntegrator && portDst == IntegratorPortQuanta {
		return false
	}

	return true
}
