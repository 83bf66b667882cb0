package sim

import "math"

// Input and output ports of the cross detectors.
const (
	CrossPortValue = iota
	CrossPortIfValue
	CrossPortElseValue
	CrossPortThreshold
)

const (
	CrossOutIfValue = iota
	CrossOutElseValue
	CrossOutEvent
)

// QSSCross watches its value input for a threshold crossing (upward when
// DetectUp, downward otherwise). Stale channels are advanced by their
// stored polynomials each transition; a crossing schedules an immediate
// lambda that emits the if-value and a unit event, debounced so a value
// parked on the threshold fires only once per reset.
type QSSCross struct {
	X     [4]ListID
	Y     [3]ListID
	Sigma Time

	Order int

	DefaultThreshold float64
	DefaultDetectUp  bool

	threshold      float64
	ifValue        [3]float64
	elseValue      [3]float64
	value          [3]float64
	lastReset      Time
	reachThreshold bool
	detectUp       bool
}

func (d *QSSCross) InputPorts() []ListID  { return d.X[:] }
func (d *QSSCross) OutputPorts() []ListID { return d.Y[:] }
func (d *QSSCross) TimeAdvance() Time     { return d.Sigma }

func (d *QSSCross) clone() Dynamics {
	c := *d
	return &c
}

func (d *QSSCross) Initialize(_ *Simulation) error {
	d.ifValue = [3]float64{}
	d.elseValue = [3]float64{}
	d.value = [3]float64{}

	d.threshold = d.DefaultThreshold
	d.value[0] = d.threshold - 1

	d.Sigma = TimeInfinity
	d.lastReset = TimeInfinity
	d.detectUp = d.DefaultDetectUp
	d.reachThreshold = false

	return nil
}

// updateChannel overwrites ch from the port's messages when any arrived,
// else advances the stored polynomial by e.
func (d *QSSCross) updateChannel(s *Simulation, port *ListID, ch *[3]float64, e Time) {
	if !hasMessage(*port) {
		if d.Order == 2 {
			ch[0] += ch[1] * e
		}
		if d.Order == 3 {
			ch[0] += ch[1]*e + ch[2]*e*e
			ch[1] += 2 * ch[2] * e
		}
		return
	}

	lst := s.messages(port)
	for it := lst.begin(); it != noIndex; it = lst.next(it) {
		msg := lst.at(it)
		ch[0] = msg[0]
		if d.Order >= 2 {
			ch[1] = msg[1]
		}
		if d.Order == 3 {
			ch[2] = msg[2]
		}
	}
}

func (d *QSSCross) Transition(s *Simulation, t, e, _ Time) error {
	oldElseValue := d.elseValue[0]

	if hasMessage(d.X[CrossPortThreshold]) {
		lst := s.messages(&d.X[CrossPortThreshold])
		for it := lst.begin(); it != noIndex; it = lst.next(it) {
			d.threshold = lst.at(it)[0]
		}
	}

	d.updateChannel(s, &d.X[CrossPortIfValue], &d.ifValue, e)
	d.updateChannel(s, &d.X[CrossPortElseValue], &d.elseValue, e)
	d.updateChannel(s, &d.X[CrossPortValue], &d.value, e)

	d.reachThreshold = false

	switch {
	case (d.detectUp && d.value[0] >= d.threshold) ||
		(!d.detectUp && d.value[0] <= d.threshold):
		if t != d.lastReset {
			d.lastReset = t
			d.reachThreshold = true
			d.Sigma = 0
		} else {
			d.Sigma = TimeInfinity
		}
	case oldElseValue != d.elseValue[0]:
		d.Sigma = 0
	default:
		d.computeWakeUp()
	}

	return nil
}

// computeWakeUp solves the value polynomial against the threshold for
// the next time the detector must look again: nothing for order 1, the
// linear root for order 2, the quadratic for order 3.
func (d *QSSCross) computeWakeUp() {
	d.Sigma = TimeInfinity

	if d.value[1] == 0 {
		return
	}

	switch d.Order {
	case 2:
		if wake := -(d.value[0] - d.threshold) / d.value[1]; wake > 0 {
			d.Sigma = wake
		}

	case 3:
		if d.value[2] != 0 {
			a := d.value[2]
			b := d.value[1]
			c := d.value[0] - d.threshold
			disc := b*b - 4*a*c

			if disc > 0 {
				sq := math.Sqrt(disc)
				x1 := (-b + sq) / (2 * a)
				x2 := (-b - sq) / (2 * a)

				switch {
				case x1 > 0 && x2 > 0:
					d.Sigma = math.Min(x1, x2)
				case x1 > 0:
					d.Sigma = x1
				case x2 > 0:
					d.Sigma = x2
				}
			} else if disc == 0 {
				if x := -b / (2 * a); x > 0 {
					d.Sigma = x
				}
			}
		} else {
			if wake := -(d.value[0] - d.threshold) / d.value[1]; wake > 0 {
				d.Sigma = wake
			}
		}
	}
}

func (d *QSSCross) Lambda(s *Simulation) error {
	var err error
	switch d.Order {
	case 1:
		err = s.sendMessage(&d.Y[CrossOutElseValue], d.elseValue[0], 0, 0)
	case 2:
		err = s.sendMessage(&d.Y[CrossOutElseValue], d.elseValue[0], d.elseValue[1], 0)
	default:
		err = s.sendMessage(&d.Y[CrossOutElseValue],
			d.elseValue[0], d.elseValue[1], d.elseValue[2])
	}
	if err != nil {
		return err
	}

	if !d.reachThreshold {
		return nil
	}

	switch d.Order {
	case 1:
		err = s.sendMessage(&d.Y[CrossOutIfValue], d.ifValue[0], 0, 0)
	case 2:
		err = s.sendMessage(&d.Y[CrossOutIfValue], d.ifValue[0], d.ifValue[1], 0)
	default:
		err = s.sendMessage(&d.Y[CrossOutIfValue],
			d.ifValue[0], d.ifValue[1], d.ifValue[2])
	}
	if err != nil {
		return err
	}

	return s.sendMessage(&d.Y[CrossOutEvent], 1, 0, 0)
}

func (d *QSSCross) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.value[0], d.ifValue[0], d.elseValue[0]}
}

// Cross is the legacy detector kept for pre-QSS graphs: it rewires the
// else output to the if input whenever the value meets the threshold,
// with no debounce and no polynomial tracking.
type Cross struct {
	X     [4]ListID
	Y     [2]ListID
	Sigma Time

	DefaultThreshold float64

	threshold float64
	value     float64
	ifValue   float64
	elseValue float64
	result    float64
	event     float64
}

func (d *Cross) InputPorts() []ListID  { return d.X[:] }
func (d *Cross) OutputPorts() []ListID { return d.Y[:] }
func (d *Cross) TimeAdvance() Time     { return d.Sigma }

func (d *Cross) clone() Dynamics {
	c := *d
	return &c
}

func (d *Cross) Initialize(_ *Simulation) error {
	d.threshold = d.DefaultThreshold
	d.value = d.threshold - 1
	d.ifValue = 0
	d.elseValue = 0
	d.result = 0
	d.event = 0

	d.Sigma = 0
	return nil
}

func (d *Cross) Transition(s *Simulation, _, _, _ Time) error {
	haveMessage := false
	haveMessageValue := false
	d.event = 0

	lst := s.messages(&d.X[CrossPortThreshold])
	for it := lst.begin(); it != noIndex; it = lst.next(it) {
		d.threshold = lst.at(it)[0]
		haveMessage = true
	}

	lst = s.messages(&d.X[CrossPortValue])
	for it := lst.begin(); it != noIndex; it = lst.next(it) {
		d.value = lst.at(it)[0]
		haveMessageValue = true
		haveMessage = true
	}

	lst = s.messages(&d.X[CrossPortIfValue])
	for it := lst.begin(); it != noIndex; it = lst.next(it) {
		d.ifValue = lst.at(it)[0]
		haveMessage = true
	}

	lst = s.messages(&d.X[CrossPortElseValue])
	for it := lst.begin(); it != noIndex; it = lst.next(it) {
		d.elseValue = lst.at(it)[0]
		haveMessage = true
	}

	if haveMessageValue {
		d.event = 0
		if d.value >= d.threshold {
			d.elseValue = d.ifValue
			d.event = 1
		}
	}

	d.result = d.elseValue

	if haveMessage {
		d.Sigma = 0
	} else {
		d.Sigma = TimeInfinity
	}
	return nil
}

func (d *Cross) Lambda(s *Simulation) error {
	if err := s.sendMessage(&d.Y[0], d.result, 0, 0); err != nil {
		return err
	}
	return s.sendMessage(&d.Y[1], d.event, 0, 0)
}

func (d *Cross) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.value, d.ifValue, d.elseValue}
}
