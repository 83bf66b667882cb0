package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimulation_ConnectDisconnectIdempotent(t *testing.T) {
	// GIVEN two connectable models
	s := newTestSim(t)
	cst, _ := mustAlloc(t, s, TypeConstant)
	_, cntID := mustAlloc(t, s, TypeCounter)

	before := s.nodeAlloc.size

	// WHEN connecting and disconnecting
	require.NoError(t, s.Connect(cst, 0, cntID, 0))
	require.Equal(t, before+1, s.nodeAlloc.size)

	// THEN a duplicate connection is rejected
	require.ErrorIs(t, s.Connect(cst, 0, cntID, 0), ErrConnectAlreadyExists)

	require.NoError(t, s.Disconnect(cst, 0, cntID, 0))
	require.Equal(t, before, s.nodeAlloc.size, "node arena usage must return to pre-connect count")
}

func TestSimulation_ConnectValidation(t *testing.T) {
	s := newTestSim(t)
	cst, cstID := mustAlloc(t, s, TypeConstant)
	cnt, cntID := mustAlloc(t, s, TypeCounter)
	quant, _ := mustAlloc(t, s, TypeQuantifier)
	_, integID := mustAlloc(t, s, TypeIntegrator)

	// Unknown ports on either side.
	require.ErrorIs(t, s.Connect(cst, 3, cntID, 0), ErrConnectUnknownOutputPort)
	require.ErrorIs(t, s.Connect(cst, 0, cntID, 5), ErrConnectUnknownInputPort)

	// A counter has no outputs at all.
	require.ErrorIs(t, s.Connect(cnt, 0, cstID, 0), ErrConnectUnknownOutputPort)

	// The quantifier may only feed the legacy integrator's quanta port.
	require.NoError(t, s.Connect(quant, 0, integID, IntegratorPortQuanta))
	require.ErrorIs(t, s.Connect(quant, 0, cntID, 0), ErrConnectIncompatibleDynamics)

	// And nothing else may feed that port.
	require.ErrorIs(t, s.Connect(cst, 0, integID, IntegratorPortQuanta),
		ErrConnectIncompatibleDynamics)
}

func TestSimulation_DeallocatePrunesStaleConnections(t *testing.T) {
	// GIVEN a constant fanned out to two counters
	s := newTestSim(t)
	cst, _ := mustAlloc(t, s, TypeConstant)
	cntA, cntAID := mustAlloc(t, s, TypeCounter)
	_, cntBID := mustAlloc(t, s, TypeCounter)

	mustConnect(t, s, cst, 0, cntAID, 0)
	mustConnect(t, s, cst, 0, cntBID, 0)

	// WHEN one destination is deallocated before the run
	require.NoError(t, s.Deallocate(cntBID))
	require.Nil(t, s.models.TryToGet(cntBID))

	require.NoError(t, s.Initialize(0))
	var now Time
	require.NoError(t, s.Run(&now))

	// THEN delivery pruned the stale connection and reached the live one
	out := GetDyn[*Constant](cst).OutputPorts()
	require.Equal(t, 1, s.nodes(&out[0]).length(), "stale node must be pruned at delivery")

	runUntil(t, s, 1)
	require.Equal(t, int64(1), GetDyn[*Counter](cntA).Count())
}

func TestSimulation_ObserverSequence(t *testing.T) {
	// GIVEN an observed counter fed by a constant
	s := newTestSim(t)
	cst, _ := mustAlloc(t, s, TypeConstant)
	GetDyn[*Constant](cst).DefaultValue = 42

	cnt, cntID := mustAlloc(t, s, TypeCounter)
	mustConnect(t, s, cst, 0, cntID, 0)
	rec := observe(t, s, cnt, cntID)

	// WHEN running a full initialize/run/finalize cycle
	require.NoError(t, s.Initialize(0))
	end := runUntil(t, s, 5)
	require.NoError(t, s.Finalize(end))

	// THEN the callback sequence is Initialize, Run*, Finalize
	require.NotEmpty(t, rec.samples)
	require.Equal(t, ObserverInitialize, rec.samples[0].status)
	require.Equal(t, ObserverFinalize, rec.samples[len(rec.samples)-1].status)
	for _, o := range rec.samples[1 : len(rec.samples)-1] {
		require.Equal(t, ObserverRun, o.status)
	}

	initCount, finCount := 0, 0
	for _, o := range rec.samples {
		switch o.status {
		case ObserverInitialize:
			initCount++
		case ObserverFinalize:
			finCount++
		}
	}
	require.Equal(t, 1, initCount)
	require.Equal(t, 1, finCount)
}

func TestSimulation_RunOnEmptySchedulerReportsInfinity(t *testing.T) {
	s := newTestSim(t)
	require.NoError(t, s.Initialize(0))

	var now Time
	require.NoError(t, s.Run(&now))
	require.True(t, math.IsInf(now, 1))
}

func TestSimulation_CloneCopiesParametersNotWiring(t *testing.T) {
	// GIVEN a parameterized, connected integrator
	s := newTestSim(t)
	integ, integID := mustAlloc(t, s, TypeQSS1Integrator)
	dyn := GetDyn[*QSSIntegrator](integ)
	dyn.DefaultX = 18
	dyn.DefaultDQ = 0.25

	cnt, cntID := mustAlloc(t, s, TypeCounter)
	mustConnect(t, s, integ, 0, cntID, 0)
	_ = cnt

	// WHEN cloning
	clone, cloneID, err := s.Clone(integ)
	require.NoError(t, err)
	require.NotEqual(t, integID, cloneID)

	// THEN parameters carry over but wiring does not
	cloneDyn := GetDyn[*QSSIntegrator](clone)
	require.Equal(t, 18.0, cloneDyn.DefaultX)
	require.Equal(t, 0.25, cloneDyn.DefaultDQ)
	require.Equal(t, EmptyList, cloneDyn.Y[0])
	require.Equal(t, EmptyList, cloneDyn.X[0])
}

func TestSimulation_TieBreakBumpsCollapsedTn(t *testing.T) {
	// GIVEN a model whose sigma is too small to move t forward
	s := newTestSim(t)
	tf, tfID := mustAlloc(t, s, TypeTimeFunc)
	GetDyn[*TimeFunc](tf).DefaultSigma = 1e-300

	require.NoError(t, s.Initialize(1))

	var now Time
	require.NoError(t, s.Run(&now))

	// THEN tn moved to the next representable time above t instead of
	// freezing the scheduler
	mdl := s.models.TryToGet(tfID)
	require.NotNil(t, mdl)
	require.Greater(t, mdl.TN, now)
	require.Equal(t, math.Nextafter(now, TimeInfinity), mdl.TN)
}

func TestSimulation_AllocUnknownKind(t *testing.T) {
	s := newTestSim(t)
	_, _, err := s.Alloc(dynamicsTypeCount)
	require.ErrorIs(t, err, ErrUnknownDynamics)
}
