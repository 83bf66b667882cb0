package sim

import "math"

// The arithmetic blocks share one update discipline: on any input
// message, overwrite that slot's polynomial coefficients from the
// message; on silent inputs, advance the stored polynomial by the
// elapsed time. Sigma is zero iff any input fired (the block re-emits
// immediately), else infinity.

// QSSSum adds up to four inputs at the block's order.
type QSSSum struct {
	X     [4]ListID
	Y     [1]ListID
	Sigma Time

	Order int
	N     int

	// values[i], values[i+N], values[i+2N]: value, slope and curvature
	// of input i.
	values [12]float64
}

func (d *QSSSum) InputPorts() []ListID  { return d.X[:d.N] }
func (d *QSSSum) OutputPorts() []ListID { return d.Y[:] }
func (d *QSSSum) TimeAdvance() Time     { return d.Sigma }

func (d *QSSSum) clone() Dynamics {
	c := *d
	return &c
}

func (d *QSSSum) Initialize(_ *Simulation) error {
	d.values = [12]float64{}
	d.Sigma = TimeInfinity
	return nil
}

func (d *QSSSum) Transition(s *Simulation, _, e, _ Time) error {
	message := false

	for i := 0; i < d.N; i++ {
		if !hasMessage(d.X[i]) {
			if d.Order >= 2 {
				d.values[i] += d.values[i+d.N] * e
			}
			if d.Order == 3 {
				d.values[i] += d.values[i+2*d.N] * e * e
				d.values[i+d.N] += 2 * d.values[i+2*d.N] * e
			}
			continue
		}

		lst := s.messages(&d.X[i])
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			msg := lst.at(it)
			d.values[i] = msg[0]
			if d.Order >= 2 {
				d.values[i+d.N] = msg[1]
			}
			if d.Order == 3 {
				d.values[i+2*d.N] = msg[2]
			}
			message = true
		}
	}

	if message {
		d.Sigma = 0
	} else {
		d.Sigma = TimeInfinity
	}
	return nil
}

func (d *QSSSum) Lambda(s *Simulation) error {
	var value, slope, derivative float64
	for i := 0; i < d.N; i++ {
		value += d.values[i]
		if d.Order >= 2 {
			slope += d.values[i+d.N]
		}
		if d.Order == 3 {
			derivative += d.values[i+2*d.N]
		}
	}
	return s.sendMessage(&d.Y[0], value, slope, derivative)
}

func (d *QSSSum) Observation(e Time) ObservationMessage {
	var value float64
	for i := 0; i < d.N; i++ {
		value += d.values[i]
		if d.Order >= 2 {
			value += d.values[i+d.N] * e
		}
		if d.Order == 3 {
			value += d.values[i+2*d.N] * e * e
		}
	}
	return ObservationMessage{value}
}

// QSSWSum is QSSSum with a per-input coefficient.
type QSSWSum struct {
	X     [4]ListID
	Y     [1]ListID
	Sigma Time

	Order int
	N     int

	DefaultInputCoeffs [4]float64

	values [12]float64
}

func (d *QSSWSum) InputPorts() []ListID  { return d.X[:d.N] }
func (d *QSSWSum) OutputPorts() []ListID { return d.Y[:] }
func (d *QSSWSum) TimeAdvance() Time     { return d.Sigma }

func (d *QSSWSum) clone() Dynamics {
	c := *d
	return &c
}

func (d *QSSWSum) Initialize(_ *Simulation) error {
	d.values = [12]float64{}
	d.Sigma = TimeInfinity
	return nil
}

func (d *QSSWSum) Transition(s *Simulation, _, e, _ Time) error {
	message := false

	for i := 0; i < d.N; i++ {
		if !hasMessage(d.X[i]) {
			if d.Order >= 2 {
				d.values[i] += d.values[i+d.N] * e
			}
			if d.Order == 3 {
				d.values[i] += d.values[i+2*d.N] * e * e
				d.values[i+d.N] += 2 * d.values[i+2*d.N] * e
			}
			continue
		}

		lst := s.messages(&d.X[i])
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			msg := lst.at(it)
			d.values[i] = msg[0]
			if d.Order >= 2 {
				d.values[i+d.N] = msg[1]
			}
			if d.Order == 3 {
				d.values[i+2*d.N] = msg[2]
			}
			message = true
		}
	}

	if message {
		d.Sigma = 0
	} else {
		d.Sigma = TimeInfinity
	}
	return nil
}

func (d *QSSWSum) Lambda(s *Simulation) error {
	var value, slope, derivative float64
	for i := 0; i < d.N; i++ {
		value += d.DefaultInputCoeffs[i] * d.values[i]
		if d.Order >= 2 {
			slope += d.DefaultInputCoeffs[i] * d.values[i+d.N]
		}
		if d.Order == 3 {
			derivative += d.DefaultInputCoeffs[i] * d.values[i+2*d.N]
		}
	}
	return s.sendMessage(&d.Y[0], value, slope, derivative)
}

func (d *QSSWSum) Observation(e Time) ObservationMessage {
	var value float64
	for i := 0; i < d.N; i++ {
		value += d.DefaultInputCoeffs[i] * d.values[i]
		if d.Order >= 2 {
			value += d.DefaultInputCoeffs[i] * d.values[i+d.N] * e
		}
		if d.Order == 3 {
			value += d.DefaultInputCoeffs[i] * d.values[i+2*d.N] * e * e
		}
	}
	return ObservationMessage{value}
}

// QSSMultiplier multiplies its two inputs, propagating the product's
// derivatives at the block's order.
type QSSMultiplier struct {
	X     [2]ListID
	Y     [1]ListID
	Sigma Time

	Order int

	values [6]float64
}

func (d *QSSMultiplier) InputPorts() []ListID  { return d.X[:] }
func (d *QSSMultiplier) OutputPorts() []ListID { return d.Y[:] }
func (d *QSSMultiplier) TimeAdvance() Time     { return d.Sigma }

func (d *QSSMultiplier) clone() Dynamics {
	c := *d
	return &c
}

func (d *QSSMultiplier) Initialize(_ *Simulation) error {
	d.values = [6]float64{}
	d.Sigma = TimeInfinity
	return nil
}

func (d *QSSMultiplier) Transition(s *Simulation, _, e, _ Time) error {
	message0 := hasMessage(d.X[0])
	message1 := hasMessage(d.X[1])
	d.Sigma = TimeInfinity

	for p := 0; p < 2; p++ {
		lst := s.messages(&d.X[p])
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			msg := lst.at(it)
			d.Sigma = 0
			d.values[p] = msg[0]
			if d.Order >= 2 {
				d.values[2+p] = msg[1]
			}
			if d.Order == 3 {
				d.values[4+p] = msg[2]
			}
		}
	}

	if d.Order == 2 {
		if !message0 {
			d.values[0] += e * d.values[2]
		}
		if !message1 {
			d.values[1] += e * d.values[3]
		}
	}

	if d.Order == 3 {
		if !message0 {
			d.values[0] += e*d.values[2] + d.values[4]*e*e
			d.values[2] += 2 * d.values[4] * e
		}
		if !message1 {
			d.values[1] += e*d.values[3] + d.values[5]*e*e
			d.values[3] += 2 * d.values[5] * e
		}
	}

	return nil
}

func (d *QSSMultiplier) Lambda(s *Simulation) error {
	switch d.Order {
	case 1:
		return s.sendMessage(&d.Y[0], d.values[0]*d.values[1], 0, 0)
	case 2:
		return s.sendMessage(&d.Y[0],
			d.values[0]*d.values[1],
			d.values[2]*d.values[1]+d.values[3]*d.values[0],
			0)
	default:
		return s.sendMessage(&d.Y[0],
			d.values[0]*d.values[1],
			d.values[2]*d.values[1]+d.values[3]*d.values[0],
			d.values[0]*d.values[5]+d.values[2]*d.values[3]+d.values[4]*d.values[1])
	}
}

func (d *QSSMultiplier) Observation(e Time) ObservationMessage {
	switch d.Order {
	case 1:
		return ObservationMessage{d.values[0] * d.values[1]}
	case 2:
		return ObservationMessage{(d.values[0] + e*d.values[2]) *
			(d.values[1] + e*d.values[3])}
	default:
		return ObservationMessage{(d.values[0] + e*d.values[2] + e*e*d.values[4]) *
			(d.values[1] + e*d.values[3] + e*e*d.values[5])}
	}
}

// QSSPower raises its input to DefaultN.
type QSSPower struct {
	X     [1]ListID
	Y     [1]ListID
	Sigma Time

	Order    int
	DefaultN float64

	value [3]float64
}

func (d *QSSPower) InputPorts() []ListID  { return d.X[:] }
func (d *QSSPower) OutputPorts() []ListID { return d.Y[:] }
func (d *QSSPower) TimeAdvance() Time     { return d.Sigma }

func (d *QSSPower) clone() Dynamics {
	c := *d
	return &c
}

func (d *QSSPower) Initialize(_ *Simulation) error {
	d.value = [3]float64{}
	d.Sigma = TimeInfinity
	return nil
}

func (d *QSSPower) Transition(s *Simulation, _, _, _ Time) error {
	d.Sigma = TimeInfinity

	if hasMessage(d.X[0]) {
		msg := s.messages(&d.X[0]).front()
		d.value[0] = msg[0]
		if d.Order >= 2 {
			d.value[1] = msg[1]
		}
		if d.Order == 3 {
			d.value[2] = msg[2]
		}
		d.Sigma = 0
	}
	return nil
}

func (d *QSSPower) Lambda(s *Simulation) error {
	n := d.DefaultN
	switch d.Order {
	case 1:
		return s.sendMessage(&d.Y[0], math.Pow(d.value[0], n), 0, 0)
	case 2:
		return s.sendMessage(&d.Y[0],
			math.Pow(d.value[0], n),
			n*math.Pow(d.value[0], n-1)*d.value[1],
			0)
	default:
		return s.sendMessage(&d.Y[0],
			math.Pow(d.value[0], n),
			n*math.Pow(d.value[0], n-1)*d.value[1],
			n*(n-1)*math.Pow(d.value[0], n-2)*(d.value[1]*d.value[1]/2)+
				n*math.Pow(d.value[0], n-1)*d.value[2])
	}
}

func (d *QSSPower) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.value[0]}
}

// QSSSquare squares its input; a specialized power block with exact
// derivative propagation.
type QSSSquare struct {
	X     [1]ListID
	Y     [1]ListID
	Sigma Time

	Order int

	value [3]float64
}

func (d *QSSSquare) InputPorts() []ListID  { return d.X[:] }
func (d *QSSSquare) OutputPorts() []ListID { return d.Y[:] }
func (d *QSSSquare) TimeAdvance() Time     { return d.Sigma }

func (d *QSSSquare) clone() Dynamics {
	c := *d
	return &c
}

func (d *QSSSquare) Initialize(_ *Simulation) error {
	d.value = [3]float64{}
	d.Sigma = TimeInfinity
	return nil
}

func (d *QSSSquare) Transition(s *Simulation, _, _, _ Time) error {
	d.Sigma = TimeInfinity

	if hasMessage(d.X[0]) {
		msg := s.messages(&d.X[0]).front()
		d.value[0] = msg[0]
		if d.Order >= 2 {
			d.value[1] = msg[1]
		}
		if d.Order == 3 {
			d.value[2] = msg[2]
		}
		d.Sigma = 0
	}
	return nil
}

func (d *QSSSquare) Lambda(s *Simulation) error {
	switch d.Order {
	case 1:
		return s.sendMessage(&d.Y[0], d.value[0]*d.value[0], 0, 0)
	case 2:
		return s.sendMessage(&d.Y[0],
			d.value[0]*d.value[0],
			2*d.value[0]*d.value[1],
			0)
	default:
		return s.sendMessage(&d.Y[0],
			d.value[0]*d.value[0],
			2*d.value[0]*d.value[1],
			2*d.value[0]*d.value[2]+d.value[1]*d.value[1])
	}
}

func (d *QSSSquare) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.value[0]}
}
