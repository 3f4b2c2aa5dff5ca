package runtime

import (
	"github.com/drblury/pipeflow/internal/runtime/config"
)

// NodeKind identifies which stage list a node belongs to.
type NodeKind string

const (
	KindProducer NodeKind = config.KindProducer
	KindFilter   NodeKind = config.KindFilter
	KindConsumer NodeKind = config.KindConsumer
)

func (k NodeKind) String() string { return string(k) }

// ProcessNode is the identity every stage carries. Both values are fixed at
// construction.
type ProcessNode interface {
	ID() string
	Kind() NodeKind
}

// ParseProcessNode parses a "kind:name" entry such as "producer:tracks".
// The kind is case-insensitive; a bare name is rejected.
func ParseProcessNode(spec string) (NodeKind, string, error) {
	kind, name, err := config.ParseProcessNode(spec)
	if err != nil {
		return "", "", err
	}
	return NodeKind(kind), name, nil
}

type node struct {
	id   string
	kind NodeKind
}

func (n node) ID() string     { return n.id }
func (n node) Kind() NodeKind { return n.kind }

// ProducerBase gives a producer its identity. Embed it and implement Produce.
type ProducerBase struct{ node }

func NewProducerBase(id string) ProducerBase {
	return ProducerBase{node{id: id, kind: KindProducer}}
}

// FilterBase gives a filter its identity. Embed it and implement Evaluate,
// which must not write the product.
type FilterBase struct{ node }

func NewFilterBase(id string) FilterBase {
	return FilterBase{node{id: id, kind: KindFilter}}
}
