package prometheus

import (
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/source-c/go-rowbinary/metrics"
	"net/http"
	"sync"
)

// Factory creates counters registered in a prometheus registry. Counters with the same name are
// created once and shared.
type Factory struct {
	lock     sync.Mutex
	registry *prometheus.Registry
	factory  promauto.Factory
	counters map[string]*Counter
}

func NewFactory(registry *prometheus.Registry) *Factory {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &Factory{
		registry: registry,
		factory:  promauto.With(registry),
		counters: make(map[string]*Counter),
	}
}

func (f *Factory) CreateCounter(name string, description string) (metrics.Counter, error) {
	if len(name) == 0 {
		return nil, errors.New("empty counter name")
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if counter, ok := f.counters[name]; ok {
		return counter, nil
	}
	counter := &Counter{pCounter: f.factory.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: description,
	})}
	f.counters[name] = counter
	return counter, nil
}

// Handler exposes the registry over HTTP.
func (f *Factory) Handler() http.Handler {
	return promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{})
}

type Counter struct {
	pCounter prometheus.Counter
}

func (c *Counter) Inc() {
	c.pCounter.Inc()
}

func (c *Counter) Add(delta float64) {
	c.pCounter.Add(delta)
}
