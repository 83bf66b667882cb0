package sim

import "math"

// QuantifierState tracks where the quantifier sits in its
// init/idle/response cycle.
type QuantifierState int

const (
	QuantifierInit QuantifierState = iota
	QuantifierIdle
	QuantifierResponse
)

// AdaptState drives the oscillation-adaptive threshold shifting.
type AdaptState int

const (
	AdaptImpossible AdaptState = iota
	AdaptPossible
	AdaptDone
)

type quantifierDirection int

const (
	directionUp quantifierDirection = iota
	directionDown
)

// Quantifier is a change detector maintaining a quantized band around
// its input. Each external transition averages the arriving values,
// steps the band up or down until the value fits, and emits the new
// upper and lower thresholds. When the derivative sign oscillates, the
// thresholds are shifted by a factor estimated from the archive of
// recent changes to damp the oscillation.
type Quantifier struct {
	X     [1]ListID
	Y     [1]ListID
	Sigma Time

	DefaultStepSize       float64
	DefaultPastLength     int
	DefaultAdaptState     AdaptState
	DefaultZeroInitOffset bool

	archive       ListID
	archiveLength int

	upThreshold    float64
	downThreshold  float64
	offset         float64
	stepSize       float64
	stepNumber     int
	pastLength     int
	zeroInitOffset bool
	state          QuantifierState
	adaptState     AdaptState
}

func (d *Quantifier) InputPorts() []ListID  { return d.X[:] }
func (d *Quantifier) OutputPorts() []ListID { return d.Y[:] }
func (d *Quantifier) TimeAdvance() Time     { return d.Sigma }

func (d *Quantifier) clone() Dynamics {
	c := *d
	c.archive = EmptyList
	c.archiveLength = 0
	return &c
}

func (d *Quantifier) Initialize(_ *Simulation) error {
	d.stepSize = d.DefaultStepSize
	d.pastLength = d.DefaultPastLength
	d.zeroInitOffset = d.DefaultZeroInitOffset
	d.adaptState = d.DefaultAdaptState
	d.upThreshold = 0
	d.downThreshold = 0
	d.offset = 0
	d.stepNumber = 0
	d.archive = EmptyList
	d.archiveLength = 0
	d.state = QuantifierInit

	if d.stepSize <= 0 {
		return ErrQuantifierBadQuantum
	}
	if d.pastLength <= 2 {
		return ErrQuantifierBadArchiveLength
	}

	d.Sigma = TimeInfinity
	return nil
}

func (d *Quantifier) Finalize(s *Simulation) error {
	s.archives(&d.archive).clear()
	return nil
}

func (d *Quantifier) Transition(s *Simulation, t, _, r Time) error {
	if !hasMessage(d.X[0]) {
		d.internal()
	} else {
		if r == 0 {
			d.internal()
		}
		if err := d.external(s, t); err != nil {
			return err
		}
	}

	d.ta()
	return nil
}

func (d *Quantifier) internal() {
	if d.state == QuantifierResponse {
		d.state = QuantifierIdle
	}
}

func (d *Quantifier) external(s *Simulation, t Time) error {
	var sum, nb float64
	lst := s.messages(&d.X[0])
	for it := lst.begin(); it != noIndex; it = lst.next(it) {
		sum += lst.at(it)[0]
		nb++
	}
	val := sum / nb

	if d.state == QuantifierInit {
		d.initStepNumberAndOffset(val)
		d.updateThresholds()
		d.state = QuantifierResponse
		return nil
	}

	for val >= d.upThreshold || val <= d.downThreshold {
		if val >= d.upThreshold {
			d.stepNumber++
		} else {
			d.stepNumber--
		}

		switch d.adaptState {
		case AdaptImpossible:
			d.updateThresholds()

		case AdaptPossible:
			change := -d.stepSize
			if val >= d.upThreshold {
				change = d.stepSize
			}
			d.storeChange(s, change, t)

			shiftingFactor := d.shiftQuanta(s)
			if shiftingFactor < 0 {
				return ErrQuantifierShiftingNeg
			}
			if shiftingFactor > 1 {
				return ErrQuantifierShiftingOverOne
			}

			if shiftingFactor != 0 && shiftingFactor != 1 {
				dir := directionUp
				if val >= d.upThreshold {
					dir = directionDown
				}
				d.updateThresholdsShifted(shiftingFactor, dir)
				d.adaptState = AdaptDone
			} else {
				d.updateThresholds()
			}

		case AdaptDone:
			d.initStepNumberAndOffset(val)
			d.adaptState = AdaptPossible
			d.updateThresholds()
		}
	}

	d.state = QuantifierResponse
	return nil
}

func (d *Quantifier) ta() {
	if d.state == QuantifierResponse {
		d.Sigma = 0
	} else {
		d.Sigma = TimeInfinity
	}
}

func (d *Quantifier) updateThresholds() {
	stepNumber := float64(d.stepNumber)
	d.upThreshold = d.offset + d.stepSize*(stepNumber+1)
	d.downThreshold = d.offset + d.stepSize*(stepNumber-1)
}

func (d *Quantifier) updateThresholdsShifted(factor float64, dir quantifierDirection) {
	stepNumber := float64(d.stepNumber)

	if dir == directionUp {
		d.upThreshold = d.offset + d.stepSize*(stepNumber+(1-factor))
		d.downThreshold = d.offset + d.stepSize*(stepNumber-1)
	} else {
		d.upThreshold = d.offset + d.stepSize*(stepNumber+1)
		d.downThreshold = d.offset + d.stepSize*(stepNumber-(1-factor))
	}
}

func (d *Quantifier) initStepNumberAndOffset(value float64) {
	d.stepNumber = int(math.Floor(value / d.stepSize))

	if d.zeroInitOffset {
		d.offset = 0
	} else {
		d.offset = value - float64(d.stepNumber)*d.stepSize
	}
}

// shiftQuanta estimates the threshold shifting factor from the archive:
// when the recent derivative signs oscillate, the mean position of each
// middle sample between its neighbors' dates gives the fraction of a
// quantum to shift by. A factor of 0 or 1 means no useful estimate.
func (d *Quantifier) shiftQuanta(s *Simulation) float64 {
	lst := s.archives(&d.archive)
	factor := 0.0

	if !d.oscillating(s, d.pastLength-1) {
		return factor
	}
	if lst.back().Date-lst.front().Date == 0 {
		return factor
	}

	var acc, cnt float64
	backXDot := lst.back().XDot

	it0 := lst.begin()
	it1 := lst.next(it0)
	it2 := lst.next(it1)

	for i := 0; i < d.archiveLength-2; i++ {
		if lst.at(it2).Date-lst.at(it0).Date != 0 {
			var localEstim float64
			if backXDot*lst.at(it1).XDot > 0 {
				localEstim = 1 - (lst.at(it1).Date-lst.at(it0).Date)/
					(lst.at(it2).Date-lst.at(it0).Date)
			} else {
				localEstim = (lst.at(it1).Date - lst.at(it0).Date) /
					(lst.at(it2).Date - lst.at(it0).Date)
			}
			acc += localEstim
			cnt++
		}
	}

	factor = acc / cnt
	lst.clear()
	d.archiveLength = 0

	return factor
}

func (d *Quantifier) storeChange(s *Simulation, val float64, t Time) {
	lst := s.archives(&d.archive)
	lst.pushBack(Record{XDot: val, Date: t})
	d.archiveLength++

	for d.archiveLength > d.pastLength {
		lst.popFront()
		d.archiveLength--
	}
}

// oscillating reports whether the last range derivative signs alternate.
func (d *Quantifier) oscillating(s *Simulation, rng int) bool {
	if rng+1 > d.archiveLength {
		return false
	}

	lst := s.archives(&d.archive)
	limit := d.archiveLength - rng

	it := lst.rbegin()
	next := it
	it = lst.prev(it)

	for i := 0; i < limit; i++ {
		if lst.at(it).XDot*lst.at(next).XDot > 0 {
			return false
		}
		next = it
		it = lst.prev(it)
	}

	return true
}

func (d *Quantifier) Lambda(s *Simulation) error {
	return s.sendMessage(&d.Y[0], d.upThreshold, d.downThreshold, 0)
}

func (d *Quantifier) Observation(_ Time) ObservationMessage {
	return ObservationMessage{d.upThreshold, d.downThreshold}
}
