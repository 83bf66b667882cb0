package sim

// SourceOp selects what the external-source dispatcher should do with a
// bound Source.
type SourceOp int32

const (
	// SourceInitialize fills the buffer at simulation initialize.
	SourceInitialize SourceOp = iota
	// SourceUpdate refills the buffer once every value has been read.
	SourceUpdate
	// SourceFinalize releases the buffer at simulation finalize.
	SourceFinalize
)

// Source binds a model to one stream of an external-source registry. The
// registry's dispatcher owns the buffer; the engine only advances Index.
// A Type of -1 means unbound.
type Source struct {
	Buffer []float64
	ID     uint64
	Type   int32
	Index  int32
}

// Reset unbinds the source entirely.
func (s *Source) Reset() {
	s.Buffer = nil
	s.Index = 0
	s.Type = -1
	s.ID = 0
}

// Clear drops the buffer but keeps the registry binding.
func (s *Source) Clear() {
	s.Buffer = nil
	s.Index = 0
}

// Next returns the current sample and advances the cursor; ok is false
// once the buffer is exhausted.
func (s *Source) Next() (float64, bool) {
	if int(s.Index) >= len(s.Buffer) {
		return 0, false
	}
	v := s.Buffer[s.Index]
	s.Index++
	return v, true
}

// SourceDispatcher is the callable a host installs on the Simulation to
// serve external samples. See sim/sources for the standard registry.
type SourceDispatcher func(src *Source, op SourceOp) error

func (s *Simulation) initializeSource(src *Source) error {
	if s.SourceDispatch == nil {
		return ErrSourceUnknown
	}
	return s.SourceDispatch(src, SourceInitialize)
}

// updateSource pulls one sample, asking the dispatcher for a refill on
// exhaustion. A second miss after the refill reports ErrSourceEmpty.
func (s *Simulation) updateSource(src *Source) (float64, error) {
	if v, ok := src.Next(); ok {
		return v, nil
	}

	if s.SourceDispatch == nil {
		return 0, ErrSourceUnknown
	}
	if err := s.SourceDispatch(src, SourceUpdate); err != nil {
		return 0, err
	}

	if v, ok := src.Next(); ok {
		return v, nil
	}
	return 0, ErrSourceEmpty
}

func (s *Simulation) finalizeSource(src *Source) error {
	if s.SourceDispatch == nil {
		return ErrSourceUnknown
	}
	return s.SourceDispatch(src, SourceFinalize)
}
