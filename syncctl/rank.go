package syncctl

import (
	"sort"

	"github.com/apecloud/pgsync/replview"
)

// stableSortByFailoverEligibility returns a copy of replicas re-sorted by
// NoFailover ascending (failover-eligible members first), using a stable
// sort so the (sync_state, lsn) secondary order from replview.Build survives
// unchanged within each NoFailover group. See §4.4 Step 4 and §9.
func stableSortByFailoverEligibility(replicas []replview.Replica) []replview.Replica {
	out := make([]replview.Replica, len(replicas))
	copy(out, replicas)
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].NoFailover && out[j].NoFailover
	})
	return out
}
