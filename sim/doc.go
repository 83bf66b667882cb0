// Package sim provides the core discrete-event simulation kernel for
// hybrid continuous/discrete models built on the DEVS formalism and the
// Quantized State System (QSS) integrators of orders 1, 2 and 3.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - model.go: the Model payload, DynamicsType tags and allocation
//   - scheduler.go: the pairing-heap scheduler ordering models by next-event time
//   - simulation.go: the Simulation container and the initialize/run/finalize loop
//
// # Architecture
//
// The package owns four intrusive block-list arenas (messages, connection
// nodes, integrator records, dated queue messages), a generational slot
// arena for models and observers (DataArray), and a pairing heap keyed on
// each model's next transition time. A simulation step pops every model
// sharing the earliest tn, runs its lambda and transition, then delivers
// the emitted messages to destination input ports.
//
// External numeric sources (constant, file-backed, random) live in
// sim/sources and are reached through the Simulation.SourceDispatch
// callable; the engine itself never touches the filesystem or an RNG.
//
// # Key Interfaces
//
// Atomic model kinds implement Dynamics plus any of the optional
// capability interfaces, each a single method:
//   - initializer: set the initial state and the first sigma
//   - emitter: lambda, emit output messages just before an internal event
//   - observable: sample the current output for an observer
//   - finalizer: release owned list arenas at end of simulation
//
// A kind declares its ports through InputPorts/OutputPorts accessors; port
// identifiers are packed 64-bit list handles into the shared arenas.
package sim
