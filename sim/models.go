package sim

import "math"

// Generator pulls its inter-arrival time and emitted value from two
// bound external sources. With StopOnError unset (the default), a source
// failure silences the generator instead of aborting the run: sigma goes
// infinite and the value drops to zero.
type Generator struct {
	Y     [1]ListID
	Sigma Time

	DefaultOffset      float64
	DefaultSourceTa    Source
	DefaultSourceValue Source
	StopOnError        bool

	value float64
}

func (d *Generator) OutputPorts() []ListID { return d.Y[:] }
func (d *Generator) TimeAdvance() Time     { return d.Sigma }

func (d *Generator) clone() Dynamics {
	c := *d
	return &c
}

func (d *Generator) Initialize(s *Simulation) error {
	d.Sigma = d.DefaultOffset

	if d.StopOnError {
		if err := s.initializeSource(&d.DefaultSourceTa); err != nil {
			return err
		}
		if err := s.initializeSource(&d.DefaultSourceValue); err != nil {
			return err
		}
	} else {
		_ = s.initializeSource(&d.DefaultSourceTa)
		_ = s.initializeSource(&d.DefaultSourceValue)
	}
	return nil
}

func (d *Generator) Finalize(s *Simulation) error {
	if err := s.finalizeSource(&d.DefaultSourceTa); err != nil {
		return err
	}
	return s.finalizeSource(&d.DefaultSourceValue)
}

func (d *Generator) Transition(s *Simulation, _, _, _ Time) error {
	if d.StopOnError {
		sigma, err := s.updateSource(&d.DefaultSourceTa)
		if err != nil {
			return err
		}
		value, err := s.updateSource(&d.DefaultSourceValue)
		if err != nil {
			return err
		}
		d.Sigma = sigma
		d.value = value
		return nil
	}

	if sigma, err := s.updateSource(&d.DefaultSourceTa); err != nil {
		d.Sigma = TimeInfinity
	} else {
		d.Sigma = sigma
	}

	if value, err := s.updateSource(&d.DefaultSourceValue); err != nil {
		d.value = 0
	} else {
		d.value = value
	}
	return nil
}

func (d *Generator) Lambda(s *Simulation) error {
	return s.sendMessage(&d.Y[0], d.value, 0, 0)
}

func (d *Generator) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.value}
}

// Constant emits a fixed value once, after DefaultOffset.
type Constant struct {
	Y     [1]ListID
	Sigma Time

	DefaultValue  float64
	DefaultOffset Time

	value float64
}

func (d *Constant) OutputPorts() []ListID { return d.Y[:] }
func (d *Constant) TimeAdvance() Time     { return d.Sigma }

func (d *Constant) clone() Dynamics {
	c := *d
	return &c
}

func (d *Constant) Initialize(_ *Simulation) error {
	d.Sigma = d.DefaultOffset
	d.value = d.DefaultValue
	return nil
}

func (d *Constant) Transition(_ *Simulation, _, _, _ Time) error {
	d.Sigma = TimeInfinity
	return nil
}

func (d *Constant) Lambda(s *Simulation) error {
	return s.sendMessage(&d.Y[0], d.value, 0, 0)
}

func (d *Constant) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.value}
}

// TimeFunction is a scalar function of simulation time emitted by the
// TimeFunc kind.
type TimeFunction func(t Time) float64

// IdentityTimeFunction emits t itself.
func IdentityTimeFunction(t Time) float64 { return t }

// SquareTimeFunction emits t².
func SquareTimeFunction(t Time) float64 { return t * t }

// SinTimeFunction emits a 0.1 Hz sine of t.
func SinTimeFunction(t Time) float64 {
	const f0 = 0.1
	return math.Sin(2 * math.Pi * f0 * t)
}

// TimeFunc samples DefaultF at a fixed period DefaultSigma.
type TimeFunc struct {
	Y     [1]ListID
	Sigma Time

	DefaultSigma float64
	DefaultF     TimeFunction

	value float64
	f     TimeFunction
}

func (d *TimeFunc) OutputPorts() []ListID { return d.Y[:] }
func (d *TimeFunc) TimeAdvance() Time     { return d.Sigma }

func (d *TimeFunc) clone() Dynamics {
	c := *d
	return &c
}

func (d *TimeFunc) Initialize(_ *Simulation) error {
	d.f = d.DefaultF
	d.Sigma = d.DefaultSigma
	d.value = 0
	return nil
}

func (d *TimeFunc) Transition(_ *Simulation, t, _, _ Time) error {
	d.value = d.f(t)
	return nil
}

func (d *TimeFunc) Lambda(s *Simulation) error {
	return s.sendMessage(&d.Y[0], d.value, 0, 0)
}

func (d *TimeFunc) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.value}
}

// Counter counts arriving messages; the count is exposed through
// observation only.
type Counter struct {
	X     [1]ListID
	Sigma Time

	number int64
}

func (d *Counter) InputPorts() []ListID { return d.X[:] }
func (d *Counter) TimeAdvance() Time    { return d.Sigma }

func (d *Counter) clone() Dynamics {
	c := *d
	return &c
}

// Count returns the number of messages seen so far.
func (d *Counter) Count() int64 { return d.number }

func (d *Counter) Initialize(_ *Simulation) error {
	d.number = 0
	d.Sigma = TimeInfinity
	return nil
}

func (d *Counter) Transition(s *Simulation, _, _, _ Time) error {
	lst := s.messages(&d.X[0])
	for it := lst.begin(); it != noIndex; it = lst.next(it) {
		d.number++
	}
	return nil
}

func (d *Counter) Observation(_ Time) ObservationMessage {
	return ObservationMessage{float64(d.number)}
}

// Filter passes the first message component lying inside its open
// threshold band, falling back to the next components otherwise.
type Filter struct {
	X     [1]ListID
	Y     [1]ListID
	Sigma Time

	DefaultLowerThreshold float64
	DefaultUpperThreshold float64

	lowerThreshold float64
	upperThreshold float64
	inValue        Message
}

func (d *Filter) InputPorts() []ListID  { return d.X[:] }
func (d *Filter) OutputPorts() []ListID { return d.Y[:] }
func (d *Filter) TimeAdvance() Time     { return d.Sigma }

func (d *Filter) clone() Dynamics {
	c := *d
	return &c
}

func (d *Filter) Initialize(_ *Simulation) error {
	d.Sigma = TimeInfinity
	d.lowerThreshold = d.DefaultLowerThreshold
	d.upperThreshold = d.DefaultUpperThreshold

	if d.DefaultLowerThreshold >= d.DefaultUpperThreshold {
		return ErrFilterThreshold
	}
	return nil
}

func (d *Filter) Transition(s *Simulation, _, _, _ Time) error {
	d.Sigma = TimeInfinity

	lst := s.messages(&d.X[0])
	for it := lst.begin(); it != noIndex; it = lst.next(it) {
		msg := lst.at(it)
		switch {
		case msg[0] > d.lowerThreshold && msg[0] < d.upperThreshold:
			d.inValue[0] = msg[0]
		case msg[1] > d.lowerThreshold && msg[1] < d.upperThreshold:
			d.inValue[0] = msg[1]
		default:
			d.inValue[0] = msg[2]
		}
		d.Sigma = 0
	}
	return nil
}

func (d *Filter) Lambda(s *Simulation) error {
	return s.sendMessage(&d.Y[0], d.inValue[0], 0, 0)
}

func (d *Filter) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.inValue[0]}
}

// Flow plays back a pre-loaded (data, sigma) table at a sample rate,
// indexed by accumulated time.
type Flow struct {
	Y     [1]ListID
	Sigma Time

	DefaultSampleRate float64
	DefaultData       []float64
	DefaultSigmas     []float64

	accuSigma float64
	i         int
}

func (d *Flow) OutputPorts() []ListID { return d.Y[:] }
func (d *Flow) TimeAdvance() Time     { return d.Sigma }

func (d *Flow) clone() Dynamics {
	c := *d
	return &c
}

func (d *Flow) Initialize(_ *Simulation) error {
	if d.DefaultSampleRate <= 0 {
		return ErrFlowBadSampleRate
	}
	if len(d.DefaultData) <= 1 || len(d.DefaultSigmas) < len(d.DefaultData) {
		return ErrFlowBadData
	}

	d.Sigma = 1 / d.DefaultSampleRate
	d.accuSigma = 0
	d.i = 0
	return nil
}

func (d *Flow) Transition(_ *Simulation, t, _, _ Time) error {
	for ; d.i < len(d.DefaultData); d.i++ {
		d.accuSigma += d.DefaultSigmas[d.i]

		if d.accuSigma > t {
			d.Sigma = d.DefaultSigmas[d.i]
			return nil
		}
	}

	d.Sigma = TimeInfinity
	d.i = len(d.DefaultData) - 1
	return nil
}

func (d *Flow) Lambda(s *Simulation) error {
	return s.sendMessage(&d.Y[0], d.DefaultData[d.i], 0, 0)
}

func (d *Flow) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.DefaultData[d.i]}
}

// Adder is the legacy N-input weighted sum (values only, no derivative
// propagation).
type Adder struct {
	X     [4]ListID
	Y     [1]ListID
	Sigma Time

	N int

	DefaultValues      [4]float64
	DefaultInputCoeffs [4]float64

	values      [4]float64
	inputCoeffs [4]float64
}

func newAdder(n int) *Adder {
	d := &Adder{N: n}
	for i := 0; i < n; i++ {
		d.DefaultValues[i] = 1 / float64(n)
	}
	return d
}

func (d *Adder) InputPorts() []ListID  { return d.X[:d.N] }
func (d *Adder) OutputPorts() []ListID { return d.Y[:] }
func (d *Adder) TimeAdvance() Time     { return d.Sigma }

func (d *Adder) clone() Dynamics {
	c := *d
	return &c
}

func (d *Adder) Initialize(_ *Simulation) error {
	d.values = d.DefaultValues
	d.inputCoeffs = d.DefaultInputCoeffs
	d.Sigma = TimeInfinity
	return nil
}

func (d *Adder) Transition(s *Simulation, _, _, _ Time) error {
	haveMessage := false

	for i := 0; i < d.N; i++ {
		lst := s.messages(&d.X[i])
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			d.values[i] = lst.at(it)[0]
			haveMessage = true
		}
	}

	if haveMessage {
		d.Sigma = 0
	} else {
		d.Sigma = TimeInfinity
	}
	return nil
}

func (d *Adder) Lambda(s *Simulation) error {
	var toSend float64
	for i := 0; i < d.N; i++ {
		toSend += d.inputCoeffs[i] * d.values[i]
	}
	return s.sendMessage(&d.Y[0], toSend, 0, 0)
}

func (d *Adder) Observation(_ Time) ObservationMessage {
	var ret float64
	for i := 0; i < d.N; i++ {
		ret += d.inputCoeffs[i] * d.values[i]
	}
	return ObservationMessage{ret}
}

// Mult is the legacy N-input power combination: the product of each
// input raised to its coefficient.
type Mult struct {
	X     [4]ListID
	Y     [1]ListID
	Sigma Time

	N int

	DefaultValues      [4]float64
	DefaultInputCoeffs [4]float64

	values      [4]float64
	inputCoeffs [4]float64
}

func newMult(n int) *Mult {
	d := &Mult{N: n}
	for i := 0; i < n; i++ {
		d.DefaultValues[i] = 1
	}
	return d
}

func (d *Mult) InputPorts() []ListID  { return d.X[:d.N] }
func (d *Mult) OutputPorts() []ListID { return d.Y[:] }
func (d *Mult) TimeAdvance() Time     { return d.Sigma }

func (d *Mult) clone() Dynamics {
	c := *d
	return &c
}

func (d *Mult) Initialize(_ *Simulation) error {
	d.values = d.DefaultValues
	d.inputCoeffs = d.DefaultInputCoeffs
	d.Sigma = TimeInfinity
	return nil
}

func (d *Mult) Transition(s *Simulation, _, _, _ Time) error {
	haveMessage := false

	for i := 0; i < d.N; i++ {
		lst := s.messages(&d.X[i])
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			d.values[i] = lst.at(it)[0]
			haveMessage = true
		}
	}

	if haveMessage {
		d.Sigma = 0
	} else {
		d.Sigma = TimeInfinity
	}
	return nil
}

func (d *Mult) Lambda(s *Simulation) error {
	toSend := 1.0
	for i := 0; i < d.N; i++ {
		toSend *= math.Pow(d.values[i], d.inputCoeffs[i])
	}
	return s.sendMessage(&d.Y[0], toSend, 0, 0)
}

func (d *Mult) Observation(_ Time) ObservationMessage {
	ret := 1.0
	for i := 0; i < d.N; i++ {
		ret *= math.Pow(d.values[i], d.inputCoeffs[i])
	}
	return ObservationMessage{ret}
}

// Accumulator pairs N trigger ports (0..N-1) with N value ports
// (N..2N-1): a non-zero trigger adds the latest value of its pair to
// the running total.
type Accumulator struct {
	X     [4]ListID
	Sigma Time

	N int

	number  float64
	numbers [2]float64
}

func (d *Accumulator) InputPorts() []ListID { return d.X[:2*d.N] }
func (d *Accumulator) TimeAdvance() Time    { return d.Sigma }

func (d *Accumulator) clone() Dynamics {
	c := *d
	return &c
}

// Total returns the accumulated weighted sum.
func (d *Accumulator) Total() float64 { return d.number }

func (d *Accumulator) Initialize(_ *Simulation) error {
	d.number = 0
	d.numbers = [2]float64{}
	d.Sigma = TimeInfinity
	return nil
}

func (d *Accumulator) Transition(s *Simulation, _, _, _ Time) error {
	for i := 0; i < d.N; i++ {
		if hasMessage(d.X[i+d.N]) {
			d.numbers[i] = s.messages(&d.X[i+d.N]).front()[0]
		}
	}

	for i := 0; i < d.N; i++ {
		if hasMessage(d.X[i]) {
			if s.messages(&d.X[i]).front()[0] != 0 {
				d.number += d.numbers[i]
			}
		}
	}
	return nil
}

func (d *Accumulator) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.number}
}
