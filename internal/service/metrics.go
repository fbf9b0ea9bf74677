package service

import "github.com/prometheus/client_golang/prometheus"

var (
	loansCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lending_loans_created_total",
		Help: "Count of loans created",
	})
	unitsLoaned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lending_units_loaned_total",
		Help: "Count of units checked out across create/add/swap",
	})
	unitsReturned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lending_units_returned_total",
		Help: "Count of units checked back in",
	})
	lendingConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lending_conflicts_total",
		Help: "Count of lending operations rejected on a state precondition",
	})
)

func init() {
	prometheus.MustRegister(loansCreated, unitsLoaned, unitsReturned, lendingConflicts)
}
