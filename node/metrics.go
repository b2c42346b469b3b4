package node

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rony4d/go-pak-sidechain/inter/pak"
	"github.com/rony4d/go-pak-sidechain/pakstore"
	"github.com/rony4d/go-pak-sidechain/txpool"
	"github.com/rony4d/go-pak-sidechain/wallet"
)

var (
	blocksAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pak",
		Subsystem: "node",
		Name:      "blocks_accepted_total",
		Help:      "Total number of blocks connected to the best chain",
	}, []string{"node"})

	blocksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pak",
		Subsystem: "node",
		Name:      "blocks_rejected_total",
		Help:      "Total number of submitted blocks rejected by reason",
	}, []string{"node", "reason"})

	pegoutsAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pak",
		Subsystem: "txpool",
		Name:      "pegouts_admitted_total",
		Help:      "Total number of pegouts admitted to the pending set",
	}, []string{"node"})

	pegoutsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pak",
		Subsystem: "txpool",
		Name:      "pegouts_rejected_total",
		Help:      "Total number of pegouts refused by reason",
	}, []string{"node", "reason"})

	pegoutsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pak",
		Subsystem: "txpool",
		Name:      "pegouts_evicted_total",
		Help:      "Total number of pending pegouts evicted after an active list change",
	}, []string{"node"})

	activeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pak",
		Subsystem: "node",
		Name:      "active_transitions_total",
		Help:      "Total number of active PAK list changes, including reorgs",
	}, []string{"node"})

	activeEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pak",
		Subsystem: "node",
		Name:      "active_entries",
		Help:      "Entries in the active PAK list, 0 under Reject",
	}, []string{"node"})
)

// reasonLabel maps an error to a low cardinality metric label.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, pakstore.ErrMissingRequiredCommitment):
		return "missing_commitment"
	case errors.Is(err, pakstore.ErrCommitmentMismatch):
		return "commitment_mismatch"
	case errors.Is(err, pak.ErrMalformedCommitment):
		return "malformed_commitment"
	case errors.Is(err, ErrUnknownParent):
		return "unknown_parent"
	case errors.Is(err, txpool.ErrPegoutFreezeInEffect):
		return "freeze"
	case errors.Is(err, txpool.ErrKeyNotInPakList):
		return "not_in_list"
	case errors.Is(err, txpool.ErrAlreadyKnown):
		return "known"
	case errors.Is(err, ErrBelowDustThreshold):
		return "dust"
	case errors.Is(err, wallet.ErrNotInitialized):
		return "no_wallet"
	default:
		return "other"
	}
}
