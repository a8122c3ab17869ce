package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const ledgerNamespace = "ledger"

// Check-in outcome labels.
const (
	CheckInRecorded   = "recorded"
	CheckInReplayed   = "replayed"
	CheckInIneligible = "ineligible"
	CheckInContention = "contention"
	CheckInError      = "error"
)

// Ledger holds the domain counters. A nil *Ledger is valid and records nothing.
type Ledger struct {
	checkIns      *prometheus.CounterVec
	conflicts     prometheus.Counter
	statusChanges *prometheus.CounterVec
}

// NewLedger registers the ledger counters on reg. Collectors that are already
// registered are reused so repeated construction against one registry is safe.
func NewLedger(reg prometheus.Registerer) *Ledger {
	l := &Ledger{
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ledgerNamespace,
			Name:      "check_in_total",
			Help:      "Check-in attempts partitioned by outcome.",
		}, []string{"result"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ledgerNamespace,
			Name:      "check_in_conflict_total",
			Help:      "Optimistic write conflicts observed while recording check-ins.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ledgerNamespace,
			Name:      "status_change_total",
			Help:      "Assignment writes partitioned by change reason.",
		}, []string{"reason"}),
	}
	if reg == nil {
		return l
	}
	l.checkIns = register(reg, l.checkIns)
	l.conflicts = register(reg, l.conflicts)
	l.statusChanges = register(reg, l.statusChanges)
	return l
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (l *Ledger) CheckIn(result string) {
	if l == nil {
		return
	}
	l.checkIns.WithLabelValues(result).Inc()
}

func (l *Ledger) ConflictRetry() {
	if l == nil {
		return
	}
	l.conflicts.Inc()
}

func (l *Ledger) StatusChange(reason string) {
	if l == nil {
		return
	}
	l.statusChanges.WithLabelValues(reason).Inc()
}
