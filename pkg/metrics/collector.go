package metrics

import (
	"time"

	"github.com/cuemby/strata/pkg/registry"
)

// RelationCounter reports the current number of stored relations; the
// engine's catalog is the natural implementer, but tests can supply a
// stub.
type RelationCounter interface {
	RelationCount() (int, error)
}

// Collector periodically samples the running-query registry and the
// relation catalog into gauges, the way the teacher's manager-backed
// collector samples cluster state on a ticker.
type Collector struct {
	registry  *registry.Registry
	relations RelationCounter
	stopCh    chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(reg *registry.Registry, relations RelationCounter) *Collector {
	return &Collector{
		registry:  reg,
		relations: relations,
		stopCh:    make(chan struct{}),
	}
}

// Start begins collecting metrics on a fixed interval.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectRunningQueries()
	c.collectRelations()
}

func (c *Collector) collectRunningQueries() {
	if c.registry == nil {
		return
	}
	QueriesRunning.Set(float64(len(c.registry.List())))
}

func (c *Collector) collectRelations() {
	if c.relations == nil {
		return
	}
	n, err := c.relations.RelationCount()
	if err != nil {
		return
	}
	RelationsTotal.Set(float64(n))
}
