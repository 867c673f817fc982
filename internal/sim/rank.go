package sim

import (
	"sort"

	"greencart/internal/model"
)

func priorityWeight(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 3
	case model.PriorityLow:
		return 1
	}
	// medium and anything unrecognized share the middle weight
	return 2
}

// RankOrders returns the backlog sorted by priority weight then order value,
// both descending. The sort is stable: orders that tie on both keys keep
// their backlog position, so identical snapshots always assign in the same
// sequence.
func RankOrders(orders []model.Order) []model.Order {
	ranked := append([]model.Order(nil), orders...)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := priorityWeight(ranked[i].Priority), priorityWeight(ranked[j].Priority)
		if wi != wj {
			return wi > wj
		}
		return ranked[i].ValueRs > ranked[j].ValueRs
	})
	return ranked
}
