package consumer

import (
	"fmt"

	"github.com/drblury/pipeflow/internal/runtime"
	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/output"
)

const (
	RunTimeConsumerID = "RunTimeConsumer"
	RunTimeTable      = "runTime"
)

// RunTimeConsumer writes one row per event with the wall time, in
// microseconds, of every configured producer and filter. Stages that did not
// run for an event are written as runtime.UndefinedInt.
type RunTimeConsumer[E any, P runtime.Product, S runtime.Settings] struct {
	runtime.ConsumerBase[E, P, S]

	store output.Store
	names []string
	table *output.Table
}

// NewRunTimeConsumer writes to store, or to the pipeline's store when store
// is nil.
func NewRunTimeConsumer[E any, P runtime.Product, S runtime.Settings](store output.Store) *RunTimeConsumer[E, P, S] {
	return &RunTimeConsumer[E, P, S]{
		ConsumerBase: runtime.NewConsumerBase[E, P, S](RunTimeConsumerID),
		store:        store,
	}
}

func (c *RunTimeConsumer[E, P, S]) Init(pipeline runtime.PipelineView[S]) error {
	if err := c.ConsumerBase.Init(pipeline); err != nil {
		return err
	}
	settings := c.GetPipelineSettings()

	processors := settings.GetAllProcessors()
	c.names = make([]string, 0, len(processors))
	columns := make([]output.Column, 0, len(processors))
	for _, spec := range processors {
		_, name, err := runtime.ParseProcessNode(spec)
		if err != nil {
			return err
		}
		c.names = append(c.names, name)
		columns = append(columns, output.Column{Name: name, Type: output.ColumnInt})
	}

	store := c.ResolveStore(c.store)
	if store == nil {
		return errspkg.ErrStoreRequired
	}
	table, err := store.OpenTable(settings.GetOutputLocation(), RunTimeTable, columns)
	if err != nil {
		return fmt.Errorf("open %s table: %w", RunTimeTable, err)
	}
	c.table = table
	return nil
}

func (c *RunTimeConsumer[E, P, S]) ProcessEvent(event E, product P, result *runtime.FilterResult) error {
	if err := c.ConsumerBase.ProcessEvent(event, product, result); err != nil {
		return err
	}
	base := product.Base()
	row := make([]any, len(c.names))
	for i, name := range c.names {
		row[i] = base.RunTime(name)
	}
	return c.table.Append(row...)
}

func (c *RunTimeConsumer[E, P, S]) Finish() error {
	if err := c.ConsumerBase.Finish(); err != nil {
		return err
	}
	return c.table.Flush()
}

// Columns returns the processor names in column order.
func (c *RunTimeConsumer[E, P, S]) Columns() []string {
	return append([]string(nil), c.names...)
}
