package runtime

import (
	"maps"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
)

// Sentinels written for values that were never produced.
const (
	UndefinedInt   int64   = -999
	UndefinedFloat float64 = -999
)

// Phase tracks which part of an event's processing owns the product.
type Phase int

const (
	PhaseProducing Phase = iota
	PhaseFiltering
	PhaseConsuming
)

func (p Phase) String() string {
	switch p {
	case PhaseProducing:
		return "producing"
	case PhaseFiltering:
		return "filtering"
	case PhaseConsuming:
		return "consuming"
	}
	return "unknown"
}

// Product is the per-event container a pipeline builds. Domain products
// embed ProductBase.
type Product interface {
	Base() *ProductBase
}

// ProductBase holds the bookkeeping every product carries. ProcessorRunTime
// maps stage ids to wall time in microseconds.
type ProductBase struct {
	ProcessorRunTime map[string]int64
	phase            Phase
}

// Base lets a struct embedding ProductBase satisfy Product.
func (b *ProductBase) Base() *ProductBase { return b }

// RunTime returns the recorded runtime of a stage, or UndefinedInt when the
// stage did not run.
func (b *ProductBase) RunTime(name string) int64 {
	if v, ok := b.ProcessorRunTime[name]; ok {
		return v
	}
	return UndefinedInt
}

// RunTimes returns a copy of all recorded runtimes.
func (b *ProductBase) RunTimes() map[string]int64 {
	return maps.Clone(b.ProcessorRunTime)
}

func (b *ProductBase) Phase() Phase { return b.phase }

// CheckWritable returns ErrProductSealed once producers are done. Producers
// may call it; filters and consumers should treat the product as read-only.
func (b *ProductBase) CheckWritable() error {
	if b.phase != PhaseProducing {
		return errspkg.ErrProductSealed
	}
	return nil
}

// Assign stores v in *dst while the product is being produced. In later
// phases it leaves *dst untouched and returns ErrProductSealed, so a filter
// or consumer that writes through it fails visibly.
func Assign[T any](p Product, dst *T, v T) error {
	if err := p.Base().CheckWritable(); err != nil {
		return err
	}
	*dst = v
	return nil
}

func (b *ProductBase) recordRunTime(name string, micros int64) {
	if b.ProcessorRunTime == nil {
		b.ProcessorRunTime = make(map[string]int64)
	}
	b.ProcessorRunTime[name] = micros
}

func (b *ProductBase) reset() {
	b.ProcessorRunTime = make(map[string]int64)
	b.phase = PhaseProducing
}
