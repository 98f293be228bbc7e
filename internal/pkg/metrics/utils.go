package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

//Register registers the collector to the default registry.
//A collector registered before with the same descriptors is replaced
func Register(m prometheus.Collector) error {
	err := prometheus.Register(m)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		prometheus.Unregister(are.ExistingCollector)
		return prometheus.Register(m)
	}
	return err
}
