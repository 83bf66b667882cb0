// Package sources implements the standard external-source registry the
// simulation pulls numeric samples from: constant scalars, binary and
// text files of doubles, and seeded random streams. Install a registry
// on a simulation with:
//
//	ext := sources.NewExternal(seed)
//	s.SourceDispatch = ext.Dispatch
//
// Buffers are refilled in chunks of 512 samples; the engine's
// updateSource retries once after a refill and reports ErrSourceEmpty on
// a second miss.
package sources

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/hybrid-sim/hybrid-sim/sim"
)

// chunk is the number of samples served per buffer refill.
const chunk = 512

// Kind tags the source family a sim.Source is bound to.
type Kind int32

const (
	KindBinaryFile Kind = iota
	KindConstant
	KindRandom
	KindTextFile
)

func (k Kind) String() string {
	switch k {
	case KindBinaryFile:
		return "binary-file"
	case KindConstant:
		return "constant"
	case KindRandom:
		return "random"
	case KindTextFile:
		return "text-file"
	}
	return "unknown"
}

// ParseKind resolves the scenario-file name of a source family.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "binary-file":
		return KindBinaryFile, nil
	case "constant":
		return KindConstant, nil
	case "random":
		return KindRandom, nil
	case "text-file":
		return KindTextFile, nil
	}
	return 0, fmt.Errorf("unknown source kind %q", name)
}

// External is the registry: four families of sources, each keyed by a
// registry-assigned 64-bit id. Not safe for concurrent use, like the
// simulation it serves.
type External struct {
	Constants   map[uint64]*Constant
	BinaryFiles map[uint64]*BinaryFile
	TextFiles   map[uint64]*TextFile
	Randoms     map[uint64]*Random

	seed   uint64
	nextID uint64
}

// NewExternal builds an empty registry. All random sources derive their
// streams from seed and their own id, so a run is reproducible from the
// seed alone.
func NewExternal(seed uint64) *External {
	return &External{
		Constants:   make(map[uint64]*Constant),
		BinaryFiles: make(map[uint64]*BinaryFile),
		TextFiles:   make(map[uint64]*TextFile),
		Randoms:     make(map[uint64]*Random),
		seed:        seed,
		nextID:      1,
	}
}

func (e *External) allocID() uint64 {
	id := e.nextID
	e.nextID++
	return id
}

// AddConstant registers a constant scalar stream.
func (e *External) AddConstant(value float64) uint64 {
	id := e.allocID()
	e.Constants[id] = &Constant{Value: value}
	return id
}

// AddBinaryFile registers a stream of little-endian doubles read from
// path.
func (e *External) AddBinaryFile(path string) uint64 {
	id := e.allocID()
	e.BinaryFiles[id] = &BinaryFile{FilePath: path}
	return id
}

// AddTextFile registers a stream of whitespace-delimited doubles read
// from path.
func (e *External) AddTextFile(path string) uint64 {
	id := e.allocID()
	e.TextFiles[id] = &TextFile{FilePath: path}
	return id
}

// AddRandom registers a random stream. The source keeps the passed
// parameters; its generator is seeded at simulation initialize.
func (e *External) AddRandom(r *Random) uint64 {
	id := e.allocID()
	e.Randoms[id] = r
	return id
}

// Bind produces the sim.Source handle a model stores for a registered
// stream.
func (e *External) Bind(kind Kind, id uint64) sim.Source {
	return sim.Source{ID: id, Type: int32(kind)}
}

// Dispatch serves the engine's source operations. Install as the
// simulation's SourceDispatch.
func (e *External) Dispatch(src *sim.Source, op sim.SourceOp) error {
	switch Kind(src.Type) {
	case KindConstant:
		if c, ok := e.Constants[src.ID]; ok {
			return c.operation(src, op)
		}
	case KindBinaryFile:
		if b, ok := e.BinaryFiles[src.ID]; ok {
			return b.operation(src, op)
		}
	case KindTextFile:
		if t, ok := e.TextFiles[src.ID]; ok {
			return t.operation(src, op)
		}
	case KindRandom:
		if r, ok := e.Randoms[src.ID]; ok {
			return r.operation(src, op, e.seed)
		}
	}

	logrus.Debugf("source dispatch miss: kind=%d id=%d", src.Type, src.ID)
	return sim.ErrSourceUnknown
}

// Constant serves a single scalar forever.
type Constant struct {
	Value float64

	buf [1]float64
}

func (c *Constant) operation(src *sim.Source, op sim.SourceOp) error {
	if op == sim.SourceFinalize {
		src.Clear()
		return nil
	}

	c.buf[0] = c.Value
	src.Buffer = c.buf[:]
	src.Index = 0
	return nil
}

// BinaryFile streams 8-byte little-endian doubles from a file,
// refilling chunk samples at a time.
type BinaryFile struct {
	FilePath string

	f      *os.File
	buffer [chunk]float64
}

func (b *BinaryFile) operation(src *sim.Source, op sim.SourceOp) error {
	switch op {
	case sim.SourceInitialize:
		if b.f == nil {
			f, err := os.Open(b.FilePath)
			if err != nil {
				logrus.Warnf("binary source %q: %v", b.FilePath, err)
				return nil
			}
			b.f = f
		} else {
			if _, err := b.f.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}
		src.Clear()
		return nil

	case sim.SourceUpdate:
		if b.f == nil {
			return nil
		}
		return b.read(src)

	case sim.SourceFinalize:
		if b.f != nil {
			if err := b.f.Close(); err != nil {
				return err
			}
			b.f = nil
		}
		src.Clear()
		return nil
	}
	return nil
}

func (b *BinaryFile) read(src *sim.Source) error {
	raw := make([]byte, 8*chunk)
	n, err := io.ReadFull(b.f, raw)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return err
	}

	values := n / 8
	for i := 0; i < values; i++ {
		bits := uint64(raw[8*i]) | uint64(raw[8*i+1])<<8 |
			uint64(raw[8*i+2])<<16 | uint64(raw[8*i+3])<<24 |
			uint64(raw[8*i+4])<<32 | uint64(raw[8*i+5])<<40 |
			uint64(raw[8*i+6])<<48 | uint64(raw[8*i+7])<<56
		b.buffer[i] = math.Float64frombits(bits)
	}

	src.Buffer = b.buffer[:values]
	src.Index = 0
	return nil
}

// TextFile streams whitespace-delimited doubles from a file. It reads
// until EOF or a full buffer and trusts the reader's state; there is no
// mid-buffer boundary tracking.
type TextFile struct {
	FilePath string

	f      *os.File
	reader *bufio.Reader
	buffer [chunk]float64
}

func (t *TextFile) operation(src *sim.Source, op sim.SourceOp) error {
	switch op {
	case sim.SourceInitialize:
		if t.f == nil {
			f, err := os.Open(t.FilePath)
			if err != nil {
				logrus.Warnf("text source %q: %v", t.FilePath, err)
				return nil
			}
			t.f = f
		} else {
			if _, err := t.f.Seek(0, io.SeekStart); err != nil {
				return err
			}
		}
		t.reader = bufio.NewReader(t.f)
		src.Clear()
		return nil

	case sim.SourceUpdate:
		if t.f == nil {
			return nil
		}
		return t.read(src)

	case sim.SourceFinalize:
		if t.f != nil {
			if err := t.f.Close(); err != nil {
				return err
			}
			t.f = nil
			t.reader = nil
		}
		src.Clear()
		return nil
	}
	return nil
}

func (t *TextFile) read(src *sim.Source) error {
	values := 0
	for ; values < chunk; values++ {
		var v float64
		if _, err := fmt.Fscan(t.reader, &v); err != nil {
			break
		}
		t.buffer[values] = v
	}

	src.Buffer = t.buffer[:values]
	src.Index = 0
	return nil
}
