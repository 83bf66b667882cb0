package scenario

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hybrid-sim/hybrid-sim/sim"
)

const rampScenario = `
name: ramp
until: 10
capacities: { models: 16, messages: 512 }
sources:
  - name: unit
    kind: constant
    value: 1.0
models:
  - name: ramp
    kind: qss1_integrator
    params: { x: 0.0, dq: 0.5 }
  - name: feed
    kind: generator
    params: { offset: 0.0 }
    sources: { ta: unit, value: unit }
  - name: ticks
    kind: counter
connections:
  - { from: feed, port: 0, to: ramp, in: 0 }
  - { from: ramp, port: 0, to: ticks, in: 0 }
observers: [ramp]
`

func TestParse_Validates(t *testing.T) {
	// GIVEN a well-formed scenario
	spec, err := Parse([]byte(rampScenario))
	require.NoError(t, err)
	require.Equal(t, "ramp", spec.Name)
	require.Len(t, spec.Models, 3)
	require.Len(t, spec.Connects, 2)

	// Bad references are rejected at parse time.
	_, err = Parse([]byte(`
models:
  - name: a
    kind: counter
connections:
  - { from: a, port: 0, to: ghost, in: 0 }
`))
	require.ErrorContains(t, err, "unknown model")

	_, err = Parse([]byte(`
models:
  - name: a
    kind: not_a_kind
`))
	require.NoError(t, err) // kind resolution happens at build time

	_, err = Parse([]byte(`models: []`))
	require.ErrorContains(t, err, "no models")
}

func TestBuild_UnknownKindFails(t *testing.T) {
	spec, err := Parse([]byte(`
models:
  - name: a
    kind: not_a_kind
`))
	require.NoError(t, err)

	_, err = spec.Build(func(*sim.Observer, sim.DynamicsType, sim.Time, sim.Time, sim.ObserverStatus) {})
	require.ErrorContains(t, err, "unknown kind")
}

func TestBuildAndRun_RampScenario(t *testing.T) {
	// GIVEN the ramp scenario assembled from YAML
	spec, err := Parse([]byte(rampScenario))
	require.NoError(t, err)

	var observed int
	built, err := spec.Build(func(_ *sim.Observer, _ sim.DynamicsType, _, _ sim.Time, status sim.ObserverStatus) {
		if status == sim.ObserverRun {
			observed++
		}
	})
	require.NoError(t, err)
	require.Len(t, built.Models, 3)
	require.Equal(t, 10.0, built.Until)

	// WHEN running it to the end time
	require.NoError(t, built.Sim.Initialize(0))
	var now sim.Time
	for now < built.Until {
		require.NoError(t, built.Sim.Run(&now))
		if math.IsInf(now, 1) {
			break
		}
	}
	require.NoError(t, built.Sim.Finalize(math.Min(now, built.Until)))

	// THEN the integrator ramped and was observed along the way
	ramp := built.Sim.Models().TryToGet(built.Models["ramp"])
	require.NotNil(t, ramp)
	// The generator's first pull lands at t=1, so the ramp integrates
	// roughly until-1 units by the end time.
	value := sim.GetDyn[*sim.QSSIntegrator](ramp).Value()
	require.InDelta(t, 9.0, value, 1.0)
	require.Greater(t, observed, 0)
}

func TestBuild_ParameterPacksReachPayloads(t *testing.T) {
	spec, err := Parse([]byte(`
models:
  - name: w
    kind: qss2_wsum_2
    params: { coeff-0: 2.5, coeff-1: -0.5 }
  - name: q
    kind: queue
    params: { ta: 4.0 }
  - name: c
    kind: qss1_cross
    params: { threshold: 3.0, detect-up: 0 }
  - name: f
    kind: time_func
    f: sin
    params: { sigma: 0.125 }
`))
	require.NoError(t, err)

	built, err := spec.Build(func(*sim.Observer, sim.DynamicsType, sim.Time, sim.Time, sim.ObserverStatus) {})
	require.NoError(t, err)

	w := sim.GetDyn[*sim.QSSWSum](built.Sim.Models().Get(built.Models["w"]))
	require.Equal(t, 2.5, w.DefaultInputCoeffs[0])
	require.Equal(t, -0.5, w.DefaultInputCoeffs[1])

	q := sim.GetDyn[*sim.Queue](built.Sim.Models().Get(built.Models["q"]))
	require.Equal(t, 4.0, q.DefaultTa)

	c := sim.GetDyn[*sim.QSSCross](built.Sim.Models().Get(built.Models["c"]))
	require.Equal(t, 3.0, c.DefaultThreshold)
	require.False(t, c.DefaultDetectUp)

	f := sim.GetDyn[*sim.TimeFunc](built.Sim.Models().Get(built.Models["f"]))
	require.Equal(t, 0.125, f.DefaultSigma)
}
