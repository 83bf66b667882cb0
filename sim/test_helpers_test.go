package sim

import "testing"

// observation is one recorded observer callback.
type observation struct {
	status ObserverStatus
	t      Time
	value  float64
}

// recorder collects every callback of one observer for assertions.
type recorder struct {
	samples []observation
}

func (r *recorder) callback() ObserverCallback {
	return func(obs *Observer, _ DynamicsType, _, t Time, status ObserverStatus) {
		r.samples = append(r.samples, observation{status: status, t: t, value: obs.Msg[0]})
	}
}

// runs returns only the ObserverRun samples.
func (r *recorder) runs() []observation {
	var out []observation
	for _, s := range r.samples {
		if s.status == ObserverRun {
			out = append(out, s)
		}
	}
	return out
}

// newTestSim builds a simulation sized for the small graphs the tests
// assemble.
func newTestSim(t *testing.T) *Simulation {
	t.Helper()
	s, err := New(Config{ModelCapacity: 64, MessageCapacity: 4096})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// mustAlloc allocates a model or fails the test.
func mustAlloc(t *testing.T, s *Simulation, ty DynamicsType) (*Model, ModelID) {
	t.Helper()
	mdl, id, err := s.Alloc(ty)
	if err != nil {
		t.Fatalf("Alloc(%v): %v", ty, err)
	}
	return mdl, id
}

// mustConnect wires two models or fails the test.
func mustConnect(t *testing.T, s *Simulation, src *Model, portSrc int, dst ModelID, portDst int) {
	t.Helper()
	if err := s.Connect(src, portSrc, dst, portDst); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

// observe attaches a fresh recorder to mdl.
func observe(t *testing.T, s *Simulation, mdl *Model, id ModelID) *recorder {
	t.Helper()
	rec := &recorder{}
	obs, obsID, err := s.AllocObserver("rec", rec.callback())
	if err != nil {
		t.Fatalf("AllocObserver: %v", err)
	}
	s.Observe(mdl, id, obs, obsID)
	return rec
}

// runUntil advances the simulation until t reaches end (or nothing is
// scheduled), returning the last step time.
func runUntil(t *testing.T, s *Simulation, end Time) Time {
	t.Helper()
	var now Time
	for now < end {
		if err := s.Run(&now); err != nil {
			t.Fatalf("Run at t=%g: %v", now, err)
		}
		if now == TimeInfinity {
			break
		}
	}
	return now
}
