package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

func newDefaultLedger() *Ledger { return NewLedger(prometheus.DefaultRegisterer) }

// Module provides ledger counters registered on the default registry, which is
// also what NewPrometheus serves.
var Module = fx.Options(
	fx.Provide(newDefaultLedger),
)
