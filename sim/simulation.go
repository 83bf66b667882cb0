package sim

import "math"

// Config sizes the simulation arenas. The connection and record arenas
// hold ten times the model capacity; the dated-message arena holds as
// many entries as the model capacity.
type Config struct {
	ModelCapacity   int
	MessageCapacity int
}

// Simulation owns every arena, the scheduler, the observers and the
// per-step scratch buffers. It is single-threaded and cooperative: one
// Run call performs exactly one step, so a caller may abort between
// calls at any time.
type Simulation struct {
	messageAlloc      blockAllocator[Message]
	nodeAlloc         blockAllocator[Node]
	recordAlloc       blockAllocator[Record]
	datedMessageAlloc blockAllocator[DatedMessage]

	emittingOutputPorts []outputMessage
	immediateModels     []ModelID

	models    DataArray[Model, ModelID]
	observers DataArray[Observer, ObserverID]

	sched scheduler

	// SourceDispatch serves external samples to generators and queues.
	// See sim/sources for the standard registry implementation.
	SourceDispatch SourceDispatcher
}

// New builds a simulation sized by cfg.
func New(cfg Config) (*Simulation, error) {
	s := &Simulation{}
	if err := s.Init(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Init sizes every arena. Any previous content is dropped.
func (s *Simulation) Init(cfg Config) error {
	const fanOut = 10

	if err := s.messageAlloc.init(cfg.MessageCapacity); err != nil {
		return err
	}
	if err := s.nodeAlloc.init(cfg.ModelCapacity * fanOut); err != nil {
		return err
	}
	if err := s.recordAlloc.init(cfg.ModelCapacity * fanOut); err != nil {
		return err
	}
	if err := s.datedMessageAlloc.init(cfg.ModelCapacity); err != nil {
		return err
	}
	if err := s.models.Init(cfg.ModelCapacity); err != nil {
		return err
	}
	if err := s.observers.Init(cfg.ModelCapacity); err != nil {
		return err
	}
	if err := s.sched.init(cfg.ModelCapacity); err != nil {
		return err
	}

	s.emittingOutputPorts = make([]outputMessage, 0, cfg.ModelCapacity)
	s.immediateModels = make([]ModelID, 0, cfg.ModelCapacity)

	return nil
}

// CanAlloc reports whether n more models fit.
func (s *Simulation) CanAlloc(n int) bool { return s.models.CanAlloc(n) }

// CanConnect reports whether n more connections fit.
func (s *Simulation) CanConnect(n int) bool { return s.nodeAlloc.canAlloc(n) }

// Models returns the model arena for iteration and lookups.
func (s *Simulation) Models() *DataArray[Model, ModelID] { return &s.models }

// Observers returns the observer arena.
func (s *Simulation) Observers() *DataArray[Observer, ObserverID] { return &s.observers }

// Clean resets the scheduler and every transient arena (messages,
// records, dated messages) without touching models or connections.
func (s *Simulation) Clean() {
	s.sched.clear()

	s.messageAlloc.reset()
	s.recordAlloc.reset()
	s.datedMessageAlloc.reset()

	s.emittingOutputPorts = s.emittingOutputPorts[:0]
	s.immediateModels = s.immediateModels[:0]
}

// Clear cleans and additionally destroys every model, connection and
// observer.
func (s *Simulation) Clear() {
	s.Clean()

	s.nodeAlloc.reset()

	s.models.Clear()
	s.observers.Clear()
}

// Alloc creates a model of the given kind with default parameters and
// unbound ports. Callers must check CanAlloc first; an unknown kind
// reports ErrUnknownDynamics.
func (s *Simulation) Alloc(t DynamicsType) (*Model, ModelID, error) {
	dyn := newDynamics(t)
	if dyn == nil {
		return nil, 0, ErrUnknownDynamics
	}
	if !s.models.CanAlloc(1) {
		return nil, 0, ErrNotEnoughModel
	}

	id, mdl := s.models.Alloc()
	mdl.Type = t
	mdl.TL = 0
	mdl.TN = TimeInfinity
	mdl.handle = nilHandle
	mdl.obs = 0
	mdl.dyn = dyn

	initPorts(dyn)

	return mdl, id, nil
}

// Clone duplicates a model's kind, parameters and state. Ports, archives
// and queues of the clone start unbound.
func (s *Simulation) Clone(mdl *Model) (*Model, ModelID, error) {
	if !s.models.CanAlloc(1) {
		return nil, 0, ErrNotEnoughModel
	}

	src, ok := mdl.dyn.(cloner)
	if !ok {
		return nil, 0, ErrUnknownDynamics
	}

	id, clone := s.models.Alloc()
	clone.Type = mdl.Type
	clone.TL = 0
	clone.TN = TimeInfinity
	clone.handle = nilHandle
	clone.obs = 0
	clone.dyn = src.clone()

	initPorts(clone.dyn)

	return clone, id, nil
}

// Observe attaches obs to mdl. Each side keeps only the other's stable
// id, so either may be freed first.
func (s *Simulation) Observe(mdl *Model, mdlID ModelID, obs *Observer, obsID ObserverID) {
	mdl.obs = obsID
	obs.Model = mdlID
}

// AllocObserver creates an observer slot ready to attach.
func (s *Simulation) AllocObserver(name string, cb ObserverCallback) (*Observer, ObserverID, error) {
	if !s.observers.CanAlloc(1) {
		return nil, 0, ErrNotEnoughModel
	}
	id, obs := s.observers.Alloc()
	obs.Name = name
	obs.CB = cb
	return obs, id, nil
}

// Deallocate frees a model: its observer link, its port lists, its
// scheduler node and finally the slot itself. Connections from other
// models into the freed one are pruned lazily at next delivery.
func (s *Simulation) Deallocate(id ModelID) error {
	mdl := s.models.TryToGet(id)
	if mdl == nil {
		return ErrUnknownDynamics
	}

	if obs := s.observers.TryToGet(mdl.obs); obs != nil {
		obs.Model = 0
		mdl.obs = 0
		s.observers.Free(s.observerID(obs))
	}

	if out, ok := mdl.dyn.(hasOutputs); ok {
		ports := out.OutputPorts()
		for i := range ports {
			s.nodes(&ports[i]).clear()
		}
	}
	if in, ok := mdl.dyn.(hasInputs); ok {
		ports := in.InputPorts()
		for i := range ports {
			s.messages(&ports[i]).clear()
		}
	}

	s.sched.erase(mdl)
	s.models.Free(id)

	return nil
}

// observerID recovers an observer's id by scanning the arena; only used
// on the cold deallocate path.
func (s *Simulation) observerID(obs *Observer) ObserverID {
	var it uint32
	for o, id, ok := s.observers.Next(&it); ok; o, id, ok = s.observers.Next(&it) {
		if o == obs {
			return id
		}
	}
	return 0
}

// Connect wires (src, portSrc) to (dst, portDst). A duplicate of an
// existing connection is rejected, as is any pairing the kinds forbid.
func (s *Simulation) Connect(src *Model, portSrc int, dstID ModelID, portDst int) error {
	dst := s.models.TryToGet(dstID)
	if dst == nil {
		return ErrUnknownDynamics
	}

	if !isPortsCompatible(src, portSrc, dst, portDst) {
		return ErrConnectIncompatibleDynamics
	}

	out, ok := src.dyn.(hasOutputs)
	if !ok || portSrc < 0 || portSrc >= len(out.OutputPorts()) {
		return ErrConnectUnknownOutputPort
	}
	in, ok := dst.dyn.(hasInputs)
	if !ok || portDst < 0 || portDst >= len(in.InputPorts()) {
		return ErrConnectUnknownInputPort
	}

	list := s.nodes(&out.OutputPorts()[portSrc])
	for it := list.begin(); it != noIndex; it = list.next(it) {
		n := list.at(it)
		if n.Model == dstID && int(n.Port) == portDst {
			return ErrConnectAlreadyExists
		}
	}

	if !s.nodeAlloc.canAlloc(1) {
		return ErrNotEnoughNode
	}

	list.pushBack(Node{Model: dstID, Port: int8(portDst)})
	return nil
}

// Disconnect removes the (src, portSrc) → (dst, portDst) connection if
// present.
func (s *Simulation) Disconnect(src *Model, portSrc int, dstID ModelID, portDst int) error {
	out, ok := src.dyn.(hasOutputs)
	if !ok || portSrc < 0 || portSrc >= len(out.OutputPorts()) {
		return ErrConnectUnknownOutputPort
	}

	list := s.nodes(&out.OutputPorts()[portSrc])
	for it := list.begin(); it != noIndex; it = list.next(it) {
		n := list.at(it)
		if n.Model == dstID && int(n.Port) == portDst {
			list.erase(it)
			return nil
		}
	}
	return nil
}

// Initialize prepares every live model for a run starting at t: reset
// transient arenas, call each kind's initialize, seed the scheduler and
// fire every observer once with ObserverInitialize.
func (s *Simulation) Initialize(t Time) error {
	s.Clean()

	var it uint32
	for mdl, id, ok := s.models.Next(&it); ok; mdl, id, ok = s.models.Next(&it) {
		if err := s.makeInitialize(mdl, id, t); err != nil {
			return err
		}
	}

	it = 0
	for obs, _, ok := s.observers.Next(&it); ok; obs, _, ok = s.observers.Next(&it) {
		if mdl := s.models.TryToGet(obs.Model); mdl != nil {
			obs.Msg = ObservationMessage{}
			obs.CB(obs, mdl.Type, mdl.TL, t, ObserverInitialize)
		}
	}

	return nil
}

func (s *Simulation) makeInitialize(mdl *Model, id ModelID, t Time) error {
	if in, ok := mdl.dyn.(hasInputs); ok {
		ports := in.InputPorts()
		for i := range ports {
			ports[i] = EmptyList
		}
	}

	if ini, ok := mdl.dyn.(initializer); ok {
		if err := ini.Initialize(s); err != nil {
			return err
		}
	}

	mdl.TL = t
	mdl.TN = t + mdl.dyn.TimeAdvance()
	mdl.handle = nilHandle

	s.sched.insert(mdl, id, mdl.TN)

	return nil
}

// Run advances the simulation by one step: pop the batch of models due
// at the earliest tn, transition each, then deliver every emitted
// message. On return t holds the time of the step, or +Inf when nothing
// remains scheduled.
func (s *Simulation) Run(t *Time) error {
	if s.sched.empty() {
		*t = TimeInfinity
		return nil
	}

	*t = s.sched.tn()
	if math.IsInf(*t, 1) {
		return nil
	}

	s.sched.pop(&s.immediateModels)

	s.emittingOutputPorts = s.emittingOutputPorts[:0]
	for _, id := range s.immediateModels {
		if mdl := s.models.TryToGet(id); mdl != nil {
			if err := s.makeTransition(mdl, *t); err != nil {
				return err
			}
		}
	}

	for i := range s.emittingOutputPorts {
		emit := &s.emittingOutputPorts[i]

		mdl := s.models.TryToGet(emit.model)
		if mdl == nil {
			continue
		}

		s.sched.update(mdl, *t)

		if !s.messageAlloc.canAlloc(1) {
			return ErrNotEnoughMessage
		}

		if in, ok := mdl.dyn.(hasInputs); ok {
			port := &in.InputPorts()[emit.port]
			s.messages(port).pushBack(emit.msg)
		}
	}

	return nil
}

func (s *Simulation) makeTransition(mdl *Model, t Time) error {
	if _, ok := mdl.dyn.(observable); ok && mdl.obs != 0 {
		if obs := s.observers.TryToGet(mdl.obs); obs != nil {
			obs.Msg = mdl.dyn.(observable).Observation(t - mdl.TL)
			obs.CB(obs, mdl.Type, mdl.TL, t, ObserverRun)
		} else {
			mdl.obs = 0
		}
	}

	// An internal event is due only when the heap node still carries the
	// model's own tn; a model popped early by message delivery skips its
	// lambda.
	if mdl.TN == s.sched.handleTN(mdl) {
		if lb, ok := mdl.dyn.(emitter); ok {
			if err := lb.Lambda(s); err != nil {
				return err
			}
		}
	}

	if err := mdl.dyn.Transition(s, t, t-mdl.TL, mdl.TN-t); err != nil {
		return err
	}

	if in, ok := mdl.dyn.(hasInputs); ok {
		ports := in.InputPorts()
		for i := range ports {
			s.messages(&ports[i]).clear()
		}
	}

	mdl.TL = t
	mdl.TN = t + mdl.dyn.TimeAdvance()
	if mdl.dyn.TimeAdvance() > 0 && mdl.TN == t {
		// sigma collapsed under FP rounding; without the bump the
		// scheduler would pop this model at t forever.
		mdl.TN = math.Nextafter(t, TimeInfinity)
	}

	s.sched.reintegrate(mdl, mdl.TN)

	return nil
}

// Finalize fires every observer once with ObserverFinalize, then lets
// each kind release its archives and sources. Safe to call after a Run
// error.
func (s *Simulation) Finalize(t Time) error {
	var it uint32
	for mdl, _, ok := s.models.Next(&it); ok; mdl, _, ok = s.models.Next(&it) {
		if obsDyn, isObs := mdl.dyn.(observable); isObs && IsDefined(mdl.obs) {
			if obs := s.observers.TryToGet(mdl.obs); obs != nil {
				obs.Msg = obsDyn.Observation(t - mdl.TL)
				obs.CB(obs, mdl.Type, mdl.TL, t, ObserverFinalize)
			}
		}

		if fin, ok := mdl.dyn.(finalizer); ok {
			if err := fin.Finalize(s); err != nil {
				return err
			}
		}
	}

	return nil
}

// sendMessage records one lambda emission per outgoing connection of
// port p, pruning connections whose destination has been freed.
func (s *Simulation) sendMessage(p *ListID, r1, r2, r3 float64) error {
	list := s.nodes(p)

	for it := list.begin(); it != noIndex; {
		n := list.at(it)
		if s.models.TryToGet(n.Model) == nil {
			it = list.erase(it)
			continue
		}

		if len(s.emittingOutputPorts) == cap(s.emittingOutputPorts) {
			return ErrNotEnoughMessage
		}
		s.emittingOutputPorts = append(s.emittingOutputPorts, outputMessage{
			msg:   Message{r1, r2, r3},
			model: n.Model,
			port:  n.Port,
		})

		it = list.next(it)
	}

	return nil
}

// hasMessage reports whether an input port received anything this step.
func hasMessage(port ListID) bool { return port != EmptyList }

// List-view accessors threading the shared arenas through the owners'
// packed words.
func (s *Simulation) messages(port *ListID) listView[Message] {
	return viewList(&s.messageAlloc, port)
}

func (s *Simulation) nodes(port *ListID) listView[Node] {
	return viewList(&s.nodeAlloc, port)
}

func (s *Simulation) archives(id *ListID) listView[Record] {
	return viewList(&s.recordAlloc, id)
}

func (s *Simulation) datedMessages(id *ListID) listView[DatedMessage] {
	return viewList(&s.datedMessageAlloc, id)
}
