package sim

// Queue delays every arriving message by a fixed ta, preserving arrival
// order. Messages wait in a dated-message list keyed on due time; each
// transition drops entries already due and reschedules for the head.
type Queue struct {
	X     [1]ListID
	Y     [1]ListID
	Sigma Time

	DefaultTa float64

	fifo ListID
}

func (d *Queue) InputPorts() []ListID  { return d.X[:] }
func (d *Queue) OutputPorts() []ListID { return d.Y[:] }
func (d *Queue) TimeAdvance() Time     { return d.Sigma }

func (d *Queue) clone() Dynamics {
	c := *d
	c.fifo = EmptyList
	return &c
}

func (d *Queue) Initialize(_ *Simulation) error {
	if d.DefaultTa <= 0 {
		return ErrQueueBadTa
	}

	d.Sigma = TimeInfinity
	d.fifo = EmptyList
	return nil
}

func (d *Queue) Finalize(s *Simulation) error {
	s.datedMessages(&d.fifo).clear()
	return nil
}

func (d *Queue) Transition(s *Simulation, t, _, _ Time) error {
	list := s.datedMessages(&d.fifo)
	for !list.empty() && list.front()[0] <= t {
		list.popFront()
	}

	msgs := s.messages(&d.X[0])
	for it := msgs.begin(); it != noIndex; it = msgs.next(it) {
		if !s.datedMessageAlloc.canAlloc(1) {
			return ErrQueueFull
		}
		msg := msgs.at(it)
		list.pushBack(DatedMessage{t + d.DefaultTa, msg[0], msg[1], msg[2]})
	}

	d.Sigma = nextDueSigma(list, t)
	return nil
}

func (d *Queue) Lambda(s *Simulation) error {
	if d.fifo == EmptyList {
		return nil
	}
	return drainDueBatch(s, &d.fifo, &d.Y[0])
}

// DynamicQueue draws each arrival's delay from a bound external source.
// With StopOnError unset, a failing source silently drops the message.
type DynamicQueue struct {
	X     [1]ListID
	Y     [1]ListID
	Sigma Time

	DefaultSourceTa Source
	StopOnError     bool

	fifo ListID
}

func (d *DynamicQueue) InputPorts() []ListID  { return d.X[:] }
func (d *DynamicQueue) OutputPorts() []ListID { return d.Y[:] }
func (d *DynamicQueue) TimeAdvance() Time     { return d.Sigma }

func (d *DynamicQueue) clone() Dynamics {
	c := *d
	c.fifo = EmptyList
	return &c
}

func (d *DynamicQueue) Initialize(s *Simulation) error {
	d.Sigma = TimeInfinity
	d.fifo = EmptyList

	if d.StopOnError {
		return s.initializeSource(&d.DefaultSourceTa)
	}
	_ = s.initializeSource(&d.DefaultSourceTa)
	return nil
}

func (d *DynamicQueue) Finalize(s *Simulation) error {
	s.datedMessages(&d.fifo).clear()
	return s.finalizeSource(&d.DefaultSourceTa)
}

func (d *DynamicQueue) Transition(s *Simulation, t, _, _ Time) error {
	list := s.datedMessages(&d.fifo)
	for !list.empty() && list.front()[0] <= t {
		list.popFront()
	}

	msgs := s.messages(&d.X[0])
	for it := msgs.begin(); it != noIndex; it = msgs.next(it) {
		if !s.datedMessageAlloc.canAlloc(1) {
			return ErrDynamicQueueFull
		}

		msg := msgs.at(it)
		ta, err := s.updateSource(&d.DefaultSourceTa)
		if err != nil {
			if d.StopOnError {
				return err
			}
			continue
		}
		list.pushBack(DatedMessage{t + ta, msg[0], msg[1], msg[2]})
	}

	d.Sigma = nextDueSigma(list, t)
	return nil
}

func (d *DynamicQueue) Lambda(s *Simulation) error {
	if d.fifo == EmptyList {
		return nil
	}
	return drainDueBatch(s, &d.fifo, &d.Y[0])
}

// PriorityQueue is DynamicQueue with the list kept sorted by due time,
// so a later arrival with a shorter delay overtakes earlier ones.
type PriorityQueue struct {
	X     [1]ListID
	Y     [1]ListID
	Sigma Time

	DefaultTa       float64
	DefaultSourceTa Source
	StopOnError     bool

	fifo ListID
}

func (d *PriorityQueue) InputPorts() []ListID  { return d.X[:] }
func (d *PriorityQueue) OutputPorts() []ListID { return d.Y[:] }
func (d *PriorityQueue) TimeAdvance() Time     { return d.Sigma }

func (d *PriorityQueue) clone() Dynamics {
	c := *d
	c.fifo = EmptyList
	return &c
}

func (d *PriorityQueue) tryToInsert(s *Simulation, due Time, msg Message) error {
	if !s.datedMessageAlloc.canAlloc(1) {
		return ErrPriorityQueueFull
	}

	list := s.datedMessages(&d.fifo)
	if list.empty() || list.front()[0] > due {
		list.pushFront(DatedMessage{due, msg[0], msg[1], msg[2]})
		return nil
	}

	for it := list.next(list.begin()); ; it = list.next(it) {
		if it == noIndex || list.at(it)[0] > due {
			list.insertBefore(it, DatedMessage{due, msg[0], msg[1], msg[2]})
			return nil
		}
	}
}

func (d *PriorityQueue) Initialize(s *Simulation) error {
	if d.StopOnError {
		if err := s.initializeSource(&d.DefaultSourceTa); err != nil {
			return err
		}
	} else {
		_ = s.initializeSource(&d.DefaultSourceTa)
	}

	d.Sigma = TimeInfinity
	d.fifo = EmptyList
	return nil
}

func (d *PriorityQueue) Finalize(s *Simulation) error {
	s.datedMessages(&d.fifo).clear()
	return s.finalizeSource(&d.DefaultSourceTa)
}

func (d *PriorityQueue) Transition(s *Simulation, t, _, _ Time) error {
	list := s.datedMessages(&d.fifo)
	for !list.empty() && list.front()[0] <= t {
		list.popFront()
	}

	msgs := s.messages(&d.X[0])
	for it := msgs.begin(); it != noIndex; it = msgs.next(it) {
		msg := *msgs.at(it)

		value, err := s.updateSource(&d.DefaultSourceTa)
		if err != nil {
			if d.StopOnError {
				return err
			}
			continue
		}
		if err := d.tryToInsert(s, t+value, msg); err != nil {
			return ErrPriorityQueueFull
		}
	}

	d.Sigma = nextDueSigma(list, t)
	return nil
}

func (d *PriorityQueue) Lambda(s *Simulation) error {
	if d.fifo == EmptyList {
		return nil
	}
	return drainDueBatch(s, &d.fifo, &d.Y[0])
}

// nextDueSigma computes the time advance to the head's due time, clamped
// at zero, or infinity for an empty list.
func nextDueSigma(list listView[DatedMessage], t Time) Time {
	if list.empty() {
		return TimeInfinity
	}
	sigma := list.front()[0] - t
	if sigma <= 0 {
		return 0
	}
	return sigma
}

// drainDueBatch emits every head entry sharing the head's due time.
func drainDueBatch(s *Simulation, fifo *ListID, out *ListID) error {
	list := s.datedMessages(fifo)
	it := list.begin()
	if it == noIndex {
		return nil
	}

	due := list.at(it)[0]
	for ; it != noIndex && list.at(it)[0] <= due; it = list.next(it) {
		msg := list.at(it)
		if err := s.sendMessage(out, msg[1], msg[2], msg[3]); err != nil {
			return err
		}
	}
	return nil
}
