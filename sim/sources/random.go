package sources

import (
	"hash/fnv"
	"math"

	"github.com/seehuhn/mt19937"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hybrid-sim/hybrid-sim/sim"
)

// DistributionType selects the family a Random source draws from.
type DistributionType int32

const (
	DistUniformInt DistributionType = iota
	DistUniformReal
	DistBernoulli
	DistBinomial
	DistNegativeBinomial
	DistGeometric
	DistPoisson
	DistExponential
	DistGamma
	DistWeibull
	DistExtremeValue
	DistNormal
	DistLogNormal
	DistChiSquared
	DistCauchy
	DistFisherF
	DistStudentT
)

var distributionNames = map[string]DistributionType{
	"uniform-int":       DistUniformInt,
	"uniform-real":      DistUniformReal,
	"bernoulli":         DistBernoulli,
	"binomial":          DistBinomial,
	"negative-binomial": DistNegativeBinomial,
	"geometric":         DistGeometric,
	"poisson":           DistPoisson,
	"exponential":       DistExponential,
	"gamma":             DistGamma,
	"weibull":           DistWeibull,
	"extreme-value":     DistExtremeValue,
	"normal":            DistNormal,
	"lognormal":         DistLogNormal,
	"chi-squared":       DistChiSquared,
	"cauchy":            DistCauchy,
	"fisher-f":          DistFisherF,
	"student-t":         DistStudentT,
}

// ParseDistribution resolves a scenario-file distribution name.
func ParseDistribution(name string) (DistributionType, bool) {
	d, ok := distributionNames[name]
	return d, ok
}

// mtSource adapts the MT19937-64 generator to the rand.Source the
// distribution types consume.
type mtSource struct {
	mt *mt19937.MT19937
}

func newMTSource(seed uint64) *mtSource {
	mt := mt19937.New()
	mt.Seed(int64(seed))
	return &mtSource{mt: mt}
}

func (s *mtSource) Uint64() uint64 { return s.mt.Uint64() }

func (s *mtSource) Seed(seed uint64) { s.mt.Seed(int64(seed)) }

// Random generates samples from one of seventeen distributions into a
// fixed buffer, regenerating on every Update. Each source's stream is
// seeded from the registry seed and the source id, so distinct sources
// never share a stream and runs replay exactly.
type Random struct {
	Distribution DistributionType

	// Parameters; which are read depends on the distribution, mirroring
	// the standard parameterizations (A/B bounds or location/scale, P a
	// probability, T32/K32 trial counts, and so on).
	A, B    float64
	P       float64
	Mean    float64
	Lambda  float64
	Alpha   float64
	Beta    float64
	StdDev  float64
	M, S, N float64
	A32     int32
	B32     int32
	T32     int32
	K32     int32

	buffer [chunk]float64
	rng    *rand.Rand
	src    rand.Source
}

func (r *Random) operation(src *sim.Source, op sim.SourceOp, registrySeed uint64) error {
	switch op {
	case sim.SourceInitialize:
		r.src = newMTSource(deriveSeed(registrySeed, src.ID))
		r.rng = rand.New(r.src)
		r.generate()
		src.Buffer = r.buffer[:]
		src.Index = 0
		return nil

	case sim.SourceUpdate:
		if r.rng == nil {
			r.src = newMTSource(deriveSeed(registrySeed, src.ID))
			r.rng = rand.New(r.src)
		}
		r.generate()
		src.Buffer = r.buffer[:]
		src.Index = 0
		return nil

	case sim.SourceFinalize:
		src.Clear()
		return nil
	}
	return nil
}

// deriveSeed isolates each source's stream: registry seed XOR a hash of
// the source id.
func deriveSeed(seed, id uint64) uint64 {
	h := fnv.New64a()
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(id >> (8 * i))
	}
	h.Write(b[:])
	return seed ^ h.Sum64()
}

func (r *Random) generate() {
	switch r.Distribution {
	case DistUniformInt:
		span := int(r.B32-r.A32) + 1
		for i := range r.buffer {
			r.buffer[i] = float64(int(r.A32) + r.rng.Intn(span))
		}

	case DistUniformReal:
		r.fill(distuv.Uniform{Min: r.A, Max: r.B, Src: r.src})

	case DistBernoulli:
		r.fill(distuv.Bernoulli{P: r.P, Src: r.src})

	case DistBinomial:
		r.fill(distuv.Binomial{N: float64(r.T32), P: r.P, Src: r.src})

	case DistNegativeBinomial:
		// Failures observed before K32 successes with probability P.
		for i := range r.buffer {
			failures := 0
			for successes := int32(0); successes < r.K32; {
				if r.rng.Float64() < r.P {
					successes++
				} else {
					failures++
				}
			}
			r.buffer[i] = float64(failures)
		}

	case DistGeometric:
		// Inverse transform: failures before the first success.
		for i := range r.buffer {
			u := r.rng.Float64()
			for u == 0 {
				u = r.rng.Float64()
			}
			r.buffer[i] = math.Floor(math.Log(u) / math.Log(1-r.P))
		}

	case DistPoisson:
		r.fill(distuv.Poisson{Lambda: r.Mean, Src: r.src})

	case DistExponential:
		r.fill(distuv.Exponential{Rate: r.Lambda, Src: r.src})

	case DistGamma:
		// Shape alpha, scale beta; the distuv rate is the inverse scale.
		r.fill(distuv.Gamma{Alpha: r.Alpha, Beta: 1 / r.Beta, Src: r.src})

	case DistWeibull:
		r.fill(distuv.Weibull{K: r.A, Lambda: r.B, Src: r.src})

	case DistExtremeValue:
		r.fill(distuv.GumbelRight{Mu: r.A, Beta: r.B, Src: r.src})

	case DistNormal:
		r.fill(distuv.Normal{Mu: r.Mean, Sigma: r.StdDev, Src: r.src})

	case DistLogNormal:
		r.fill(distuv.LogNormal{Mu: r.M, Sigma: r.S, Src: r.src})

	case DistChiSquared:
		r.fill(distuv.ChiSquared{K: r.N, Src: r.src})

	case DistCauchy:
		// Inverse transform; location A, scale B.
		for i := range r.buffer {
			r.buffer[i] = r.A + r.B*math.Tan(math.Pi*(r.rng.Float64()-0.5))
		}

	case DistFisherF:
		r.fill(distuv.F{D1: r.M, D2: r.N, Src: r.src})

	case DistStudentT:
		r.fill(distuv.StudentsT{Mu: 0, Sigma: 1, Nu: r.N, Src: r.src})
	}
}

type rander interface {
	Rand() float64
}

func (r *Random) fill(dist rander) {
	for i := range r.buffer {
		r.buffer[i] = dist.Rand()
	}
}
