package consumer

import (
	"fmt"

	"github.com/drblury/pipeflow/internal/runtime"
	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/output"
)

const (
	CutFlowConsumerID = "CutFlowConsumer"
	CutFlowTable      = "cutflow"
	// CutFlowTotal labels the summary row over all filters.
	CutFlowTotal = "all"
)

var cutFlowColumns = []output.Column{
	{Name: "filter", Type: output.ColumnString},
	{Name: "evaluated", Type: output.ColumnInt},
	{Name: "passed", Type: output.ColumnInt},
	{Name: "rejected", Type: output.ColumnInt},
	{Name: "errored", Type: output.ColumnInt},
}

// CutCount is the tally for one filter.
type CutCount struct {
	Filter    string
	Evaluated int64
	Passed    int64
	Rejected  int64
	Errored   int64
}

// CutFlowConsumer counts filter decisions and writes one row per filter plus
// a CutFlowTotal row at Finish. Filters appear in configured order; filters
// that are not in the settings follow in the order they were first seen.
type CutFlowConsumer[E any, P runtime.Product, S runtime.Settings] struct {
	runtime.ConsumerBase[E, P, S]

	store  output.Store
	order  []string
	counts map[string]*CutCount
	total  CutCount
	table  *output.Table
}

func NewCutFlowConsumer[E any, P runtime.Product, S runtime.Settings](store output.Store) *CutFlowConsumer[E, P, S] {
	return &CutFlowConsumer[E, P, S]{
		ConsumerBase: runtime.NewConsumerBase[E, P, S](CutFlowConsumerID),
		store:        store,
		counts:       make(map[string]*CutCount),
		total:        CutCount{Filter: CutFlowTotal},
	}
}

func (c *CutFlowConsumer[E, P, S]) Init(pipeline runtime.PipelineView[S]) error {
	if err := c.ConsumerBase.Init(pipeline); err != nil {
		return err
	}
	settings := c.GetPipelineSettings()

	for _, spec := range settings.GetAllProcessors() {
		kind, name, err := runtime.ParseProcessNode(spec)
		if err != nil {
			return err
		}
		if kind == runtime.KindFilter {
			c.count(name)
		}
	}

	store := c.ResolveStore(c.store)
	if store == nil {
		return errspkg.ErrStoreRequired
	}
	table, err := store.OpenTable(settings.GetOutputLocation(), CutFlowTable, cutFlowColumns)
	if err != nil {
		return fmt.Errorf("open %s table: %w", CutFlowTable, err)
	}
	c.table = table
	return nil
}

func (c *CutFlowConsumer[E, P, S]) count(filter string) *CutCount {
	if cc, ok := c.counts[filter]; ok {
		return cc
	}
	cc := &CutCount{Filter: filter}
	c.counts[filter] = cc
	c.order = append(c.order, filter)
	return cc
}

func (c *CutFlowConsumer[E, P, S]) ProcessEvent(event E, product P, result *runtime.FilterResult) error {
	if err := c.ConsumerBase.ProcessEvent(event, product, result); err != nil {
		return err
	}

	errored := false
	for _, d := range result.Decisions() {
		cc := c.count(d.FilterID)
		cc.Evaluated++
		switch {
		case d.Passed:
			cc.Passed++
		case d.Errored:
			cc.Errored++
			errored = true
		default:
			cc.Rejected++
		}
	}

	c.total.Evaluated++
	if result.PassedAll() {
		c.total.Passed++
	} else {
		c.total.Rejected++
	}
	if errored {
		c.total.Errored++
	}
	return nil
}

// Counts returns the tallies so far, in row order, total last.
func (c *CutFlowConsumer[E, P, S]) Counts() []CutCount {
	out := make([]CutCount, 0, len(c.order)+1)
	for _, name := range c.order {
		out = append(out, *c.counts[name])
	}
	return append(out, c.total)
}

func (c *CutFlowConsumer[E, P, S]) Finish() error {
	if err := c.ConsumerBase.Finish(); err != nil {
		return err
	}
	for _, cc := range c.Counts() {
		if err := c.table.Append(cc.Filter, cc.Evaluated, cc.Passed, cc.Rejected, cc.Errored); err != nil {
			return err
		}
	}
	return c.table.Flush()
}
