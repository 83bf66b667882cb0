package sim

// Input ports of the legacy integrator.
const (
	IntegratorPortQuanta = iota
	IntegratorPortXDot
	IntegratorPortReset
)

type integratorState int

const (
	integratorInit integratorState = iota
	integratorWaitForQuanta
	integratorWaitForXDot
	integratorWaitForBoth
	integratorRunning
)

// Integrator is the pre-QSS integrator driven by an external quantifier:
// the quantifier feeds the band thresholds on the quanta port, the
// derivative stream is archived and integrated by trapezoid sections,
// and sigma is the time to reach whichever threshold the current
// derivative is heading for.
type Integrator struct {
	X     [3]ListID
	Y     [1]ListID
	Sigma Time

	DefaultCurrentValue float64
	DefaultResetValue   float64

	archive ListID

	currentValue    float64
	resetValue      float64
	upThreshold     float64
	downThreshold   float64
	lastOutputValue float64
	expectedValue   float64
	reset           bool
	state           integratorState
}

func (d *Integrator) InputPorts() []ListID  { return d.X[:] }
func (d *Integrator) OutputPorts() []ListID { return d.Y[:] }
func (d *Integrator) TimeAdvance() Time     { return d.Sigma }

func (d *Integrator) clone() Dynamics {
	c := *d
	c.archive = EmptyList
	return &c
}

func (d *Integrator) Initialize(_ *Simulation) error {
	d.currentValue = d.DefaultCurrentValue
	d.resetValue = d.DefaultResetValue
	d.upThreshold = 0
	d.downThreshold = 0
	d.lastOutputValue = 0
	d.expectedValue = 0
	d.reset = false
	d.state = integratorInit
	d.archive = EmptyList
	d.Sigma = 0
	return nil
}

func (d *Integrator) Finalize(s *Simulation) error {
	s.archives(&d.archive).clear()
	return nil
}

func (d *Integrator) external(s *Simulation, t Time) {
	if hasMessage(d.X[IntegratorPortQuanta]) {
		lst := s.messages(&d.X[IntegratorPortQuanta])
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			msg := lst.at(it)
			d.upThreshold = msg[0]
			d.downThreshold = msg[1]

			if d.state == integratorWaitForQuanta {
				d.state = integratorRunning
			}
			if d.state == integratorWaitForBoth {
				d.state = integratorWaitForXDot
			}
		}
	}

	if hasMessage(d.X[IntegratorPortXDot]) {
		lst := s.messages(&d.X[IntegratorPortXDot])
		archive := s.archives(&d.archive)
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			archive.pushBack(Record{XDot: lst.at(it)[0], Date: t})

			if d.state == integratorWaitForXDot {
				d.state = integratorRunning
			}
			if d.state == integratorWaitForBoth {
				d.state = integratorWaitForQuanta
			}
		}
	}

	if hasMessage(d.X[IntegratorPortReset]) {
		lst := s.messages(&d.X[IntegratorPortReset])
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			d.resetValue = lst.at(it)[0]
			d.reset = true
		}
	}

	if d.state == integratorRunning {
		d.currentValue = d.computeCurrentValue(s, t)
		d.expectedValue = d.computeExpectedValue(s)
	}
}

func (d *Integrator) internal(s *Simulation, t Time) error {
	switch d.state {
	case integratorRunning:
		d.lastOutputValue = d.expectedValue

		archive := s.archives(&d.archive)
		lastDerivative := archive.back().XDot
		archive.clear()
		archive.pushBack(Record{XDot: lastDerivative, Date: t})

		d.currentValue = d.expectedValue
		d.state = integratorWaitForQuanta
		return nil

	case integratorInit:
		d.state = integratorWaitForBoth
		d.lastOutputValue = d.currentValue
		return nil

	default:
		return ErrIntegratorInternal
	}
}

func (d *Integrator) Transition(s *Simulation, t, _, r Time) error {
	noMessage := !hasMessage(d.X[IntegratorPortQuanta]) &&
		!hasMessage(d.X[IntegratorPortXDot]) &&
		!hasMessage(d.X[IntegratorPortReset])

	if noMessage {
		if err := d.internal(s, t); err != nil {
			return err
		}
	} else {
		if r == 0 {
			if err := d.internal(s, t); err != nil {
				return err
			}
		}
		d.external(s, t)
	}

	return d.ta(s)
}

func (d *Integrator) Lambda(s *Simulation) error {
	switch d.state {
	case integratorRunning:
		return s.sendMessage(&d.Y[0], d.expectedValue, 0, 0)
	case integratorInit:
		return s.sendMessage(&d.Y[0], d.currentValue, 0, 0)
	default:
		return ErrIntegratorOutput
	}
}

func (d *Integrator) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.lastOutputValue}
}

func (d *Integrator) ta(s *Simulation) error {
	if d.state != integratorRunning {
		d.Sigma = TimeInfinity
		return nil
	}

	if d.archive == EmptyList {
		return ErrIntegratorRunningWithoutXDot
	}

	currentDerivative := s.archives(&d.archive).back().XDot

	switch {
	case currentDerivative == 0:
		d.Sigma = TimeInfinity

	case currentDerivative > 0:
		if d.upThreshold-d.currentValue < 0 {
			return ErrIntegratorBadXDot
		}
		d.Sigma = (d.upThreshold - d.currentValue) / currentDerivative

	default:
		if d.downThreshold-d.currentValue > 0 {
			return ErrIntegratorBadXDot
		}
		d.Sigma = (d.downThreshold - d.currentValue) / currentDerivative
	}

	return nil
}

// computeCurrentValue integrates the archived derivative sections up to
// t, clamped to the quantifier band.
func (d *Integrator) computeCurrentValue(s *Simulation, t Time) float64 {
	val := d.lastOutputValue
	if d.reset {
		val = d.resetValue
	}

	if d.archive == EmptyList {
		return val
	}

	lst := s.archives(&d.archive)
	it := lst.begin()
	for next := lst.next(it); next != noIndex; it, next = next, lst.next(next) {
		val += (lst.at(next).Date - lst.at(it).Date) * lst.at(it).XDot
	}
	val += (t - lst.back().Date) * lst.back().XDot

	switch {
	case d.upThreshold < val:
		return d.upThreshold
	case d.downThreshold > val:
		return d.downThreshold
	default:
		return val
	}
}

func (d *Integrator) computeExpectedValue(s *Simulation) float64 {
	currentDerivative := s.archives(&d.archive).back().XDot

	switch {
	case currentDerivative == 0:
		return d.currentValue
	case currentDerivative > 0:
		return d.upThreshold
	default:
		return d.downThreshold
	}
}
