package sim

// Message is the value carried on a connection: up to three reals
// holding value, slope and curvature of the emitted polynomial.
type Message [3]float64

// DatedMessage is a queued message: due time followed by the three
// message components.
type DatedMessage [4]float64

// ObservationMessage is a sampled output for an observer; kinds use up
// to four components (the order-3 integrator reports X, u, mu, pu).
type ObservationMessage [4]float64

// Record is one archive entry of an integrator or quantifier: a
// derivative estimate and the date it was observed.
type Record struct {
	XDot float64
	Date Time
}

// Node is one outgoing connection: the destination model and its input
// port index. Nodes live in the shared connection arena, threaded from
// the source's output-port list.
type Node struct {
	Model ModelID
	Port  int8
}

// outputMessage is a lambda emission awaiting delivery at end of step.
type outputMessage struct {
	msg   Message
	model ModelID
	port  int8
}
