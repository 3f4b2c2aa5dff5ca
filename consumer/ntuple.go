package consumer

import (
	"fmt"

	"github.com/drblury/pipeflow/internal/runtime"
	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/output"
)

const (
	NtupleConsumerID = "NtupleConsumer"
	NtupleTable      = "ntuple"
)

// QuantitySettings lists the quantities written by NtupleConsumer.
type QuantitySettings interface {
	runtime.Settings
	GetQuantities() []string
}

// ValueFunc extracts one named quantity. Returning false writes
// runtime.UndefinedFloat.
type ValueFunc[E any, P runtime.Product] func(quantity string, event E, product P) (float64, bool)

// NtupleConsumer writes one row of float quantities per event that passed
// every filter.
type NtupleConsumer[E any, P runtime.Product, S QuantitySettings] struct {
	runtime.ConsumerBase[E, P, S]

	store      output.Store
	value      ValueFunc[E, P]
	quantities []string
	table      *output.Table
}

func NewNtupleConsumer[E any, P runtime.Product, S QuantitySettings](store output.Store, value ValueFunc[E, P]) *NtupleConsumer[E, P, S] {
	return &NtupleConsumer[E, P, S]{
		ConsumerBase: runtime.NewConsumerBase[E, P, S](NtupleConsumerID),
		store:        store,
		value:        value,
	}
}

func (c *NtupleConsumer[E, P, S]) Init(pipeline runtime.PipelineView[S]) error {
	if c.value == nil {
		return errspkg.ErrValueFuncRequired
	}
	if err := c.ConsumerBase.Init(pipeline); err != nil {
		return err
	}
	settings := c.GetPipelineSettings()

	c.quantities = settings.GetQuantities()
	columns := make([]output.Column, len(c.quantities))
	for i, q := range c.quantities {
		columns[i] = output.Column{Name: q, Type: output.ColumnFloat}
	}

	store := c.ResolveStore(c.store)
	if store == nil {
		return errspkg.ErrStoreRequired
	}
	table, err := store.OpenTable(settings.GetOutputLocation(), NtupleTable, columns)
	if err != nil {
		return fmt.Errorf("open %s table: %w", NtupleTable, err)
	}
	c.table = table
	return nil
}

func (c *NtupleConsumer[E, P, S]) ProcessFilteredEvent(event E, product P) error {
	row := make([]any, len(c.quantities))
	for i, q := range c.quantities {
		v, ok := c.value(q, event, product)
		if !ok {
			v = runtime.UndefinedFloat
		}
		row[i] = v
	}
	return c.table.Append(row...)
}

func (c *NtupleConsumer[E, P, S]) Finish() error {
	if err := c.ConsumerBase.Finish(); err != nil {
		return err
	}
	return c.table.Flush()
}
