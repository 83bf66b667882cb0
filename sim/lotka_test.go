package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildLotkaVolterra assembles the classic predator/prey system at the
// given QSS order: two integrators, two weighted sums and a multiplier
// for the encounter term.
//
//	prey'     =  2.0*prey     - 0.4*(prey*predator)
//	predator' = -1.0*predator + 0.1*(prey*predator)
func buildLotkaVolterra(t *testing.T, order int) (*Simulation, *QSSIntegrator, *QSSIntegrator) {
	t.Helper()
	s := newTestSim(t)

	integType := [...]DynamicsType{TypeQSS1Integrator, TypeQSS2Integrator, TypeQSS3Integrator}[order-1]
	wsumType := [...]DynamicsType{TypeQSS1WSum2, TypeQSS2WSum2, TypeQSS3WSum2}[order-1]
	multType := [...]DynamicsType{TypeQSS1Multiplier, TypeQSS2Multiplier, TypeQSS3Multiplier}[order-1]

	prey, preyID := mustAlloc(t, s, integType)
	preyDyn := GetDyn[*QSSIntegrator](prey)
	preyDyn.DefaultX = 18
	preyDyn.DefaultDQ = 0.01

	predator, predatorID := mustAlloc(t, s, integType)
	predatorDyn := GetDyn[*QSSIntegrator](predator)
	predatorDyn.DefaultX = 7
	predatorDyn.DefaultDQ = 0.01

	preyRate, preyRateID := mustAlloc(t, s, wsumType)
	GetDyn[*QSSWSum](preyRate).DefaultInputCoeffs = [4]float64{2.0, -0.4}

	predatorRate, predatorRateID := mustAlloc(t, s, wsumType)
	GetDyn[*QSSWSum](predatorRate).DefaultInputCoeffs = [4]float64{-1.0, 0.1}

	encounters, encountersID := mustAlloc(t, s, multType)

	mustConnect(t, s, prey, 0, preyRateID, 0)
	mustConnect(t, s, prey, 0, encountersID, 0)
	mustConnect(t, s, predator, 0, predatorRateID, 0)
	mustConnect(t, s, predator, 0, encountersID, 1)
	mustConnect(t, s, encounters, 0, preyRateID, 1)
	mustConnect(t, s, encounters, 0, predatorRateID, 1)
	mustConnect(t, s, preyRate, 0, preyID, QSSIntegratorPortXDot)
	mustConnect(t, s, predatorRate, 0, predatorID, QSSIntegratorPortXDot)

	return s, preyDyn, predatorDyn
}

// lotkaInvariant is the conserved quantity of the exact system; a good
// trajectory keeps it near its initial value.
func lotkaInvariant(x, y float64) float64 {
	return 0.1*x - 1.0*math.Log(x) + 0.4*y - 2.0*math.Log(y)
}

func TestLotkaVolterra_QSS1_BoundedPositiveOrbit(t *testing.T) {
	s, prey, predator := buildLotkaVolterra(t, 1)

	require.NoError(t, s.Initialize(0))

	h0 := lotkaInvariant(18, 7)

	var now Time
	minPrey, maxPrey := math.Inf(1), math.Inf(-1)
	for now < 15 {
		require.NoError(t, s.Run(&now))
		if now == TimeInfinity {
			break
		}
		minPrey = math.Min(minPrey, prey.Value())
		maxPrey = math.Max(maxPrey, prey.Value())

		// Both populations stay strictly positive and bounded.
		require.Greater(t, prey.Value(), 0.0, "prey went non-positive at t=%v", now)
		require.Greater(t, predator.Value(), 0.0, "predator went non-positive at t=%v", now)
		require.Less(t, prey.Value(), 1000.0)
		require.Less(t, predator.Value(), 1000.0)
	}

	// The orbit actually oscillates rather than sitting still.
	require.Less(t, minPrey, 10.0)
	require.Greater(t, maxPrey, 17.0)

	// The conserved quantity drifts only within the quantization error.
	hEnd := lotkaInvariant(prey.Value(), predator.Value())
	require.InDelta(t, h0, hEnd, 0.15, "orbit failed to close: H0=%v Hend=%v", h0, hEnd)

	require.NoError(t, s.Finalize(now))
}

func TestLotkaVolterra_QSS2_MatchesQSS1Shape(t *testing.T) {
	s, prey, predator := buildLotkaVolterra(t, 2)

	require.NoError(t, s.Initialize(0))

	var now Time
	for now < 15 {
		require.NoError(t, s.Run(&now))
		if now == TimeInfinity {
			break
		}
		require.Greater(t, prey.Value(), 0.0)
		require.Greater(t, predator.Value(), 0.0)
	}

	h0 := lotkaInvariant(18, 7)
	hEnd := lotkaInvariant(prey.Value(), predator.Value())
	require.InDelta(t, h0, hEnd, 0.15)
}
