package sim

// scheduler keeps every live model ordered by next transition time. It
// owns the pairing heap and the handle bookkeeping on models; the
// Simulation only ever talks to this facade.
type scheduler struct {
	h pairingHeap
}

func (s *scheduler) init(capacity int) error {
	return s.h.init(capacity)
}

func (s *scheduler) clear() { s.h.clear() }

// insert registers a newly initialized model.
func (s *scheduler) insert(mdl *Model, id ModelID, tn Time) {
	mdl.handle = s.h.alloc(tn, id)
}

// reintegrate reinserts a model popped earlier in the current step under
// its new tn.
func (s *scheduler) reintegrate(mdl *Model, tn Time) {
	s.h.nodes[mdl.handle].tn = tn
	s.h.insert(mdl.handle)
}

// erase removes a model from the heap and releases its handle.
func (s *scheduler) erase(mdl *Model) {
	if mdl.handle == nilHandle {
		return
	}
	s.h.remove(mdl.handle)
	s.h.destroy(mdl.handle)
	mdl.handle = nilHandle
}

// update moves an in-heap model to tn. tn must not exceed the model's
// current tn; message delivery only ever pulls a model forward.
func (s *scheduler) update(mdl *Model, tn Time) {
	s.h.nodes[mdl.handle].tn = tn

	switch {
	case tn < mdl.TN:
		s.h.decrease(mdl.handle)
	case tn > mdl.TN:
		s.h.increase(mdl.handle)
	}
}

// pop drains every model sharing the current earliest tn into out: the
// immediate-models batch of one simulation step.
func (s *scheduler) pop(out *[]ModelID) {
	t := s.tn()

	*out = (*out)[:0]
	*out = append(*out, s.h.nodes[s.h.pop()].id)

	for !s.h.empty() && t == s.tn() {
		*out = append(*out, s.h.nodes[s.h.pop()].id)
	}
}

// tn returns the earliest next-event time. Only valid on a non-empty
// scheduler.
func (s *scheduler) tn() Time { return s.h.nodes[s.h.top()].tn }

// handleTN returns the tn stored in a model's heap node.
func (s *scheduler) handleTN(mdl *Model) Time { return s.h.nodes[mdl.handle].tn }

func (s *scheduler) empty() bool { return s.h.empty() }

func (s *scheduler) size() int { return s.h.size }
