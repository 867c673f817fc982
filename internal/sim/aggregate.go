package sim

import (
	"math"

	"greencart/internal/model"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Aggregate folds per-order scores and per-driver work states into the
// fleet-level KPI blocks. Intermediate sums stay unrounded; currency
// aggregates are rounded to two decimals only here, at the point the final
// result is produced.
func Aggregate(states []DriverWorkState, assignments []Assignment, scores []Score) (model.SimulationTotals, []model.DriverUtilization) {
	var totals model.SimulationTotals
	var profit, fuel, penalties, bonuses, deliveryMinutes float64

	for i, a := range assignments {
		sc := scores[i]
		profit += sc.Profit
		fuel += sc.FuelCost
		penalties += sc.Penalty
		bonuses += sc.Bonus
		deliveryMinutes += a.ActualTime.Sub(a.ScheduledTime).Minutes()
		if sc.IsOnTime {
			totals.OnTimeDeliveries++
		} else {
			totals.LateDeliveries++
		}
	}

	totals.TotalDeliveries = len(assignments)
	totals.TotalProfit = round2(profit)
	totals.TotalFuelCost = round2(fuel)
	totals.TotalPenalties = round2(penalties)
	totals.TotalBonuses = round2(bonuses)
	if totals.TotalDeliveries > 0 {
		totals.EfficiencyScore = int(math.Round(float64(totals.OnTimeDeliveries) / float64(totals.TotalDeliveries) * 100))
		totals.AverageDeliveryTime = int(math.Round(deliveryMinutes / float64(totals.TotalDeliveries)))
	}

	utilization := make([]model.DriverUtilization, len(states))
	for i, st := range states {
		utilization[i] = model.DriverUtilization{
			DriverID:        st.Driver.ID,
			DriverName:      st.Driver.Name,
			HoursWorked:     round2(st.HoursWorked),
			OrdersDelivered: len(st.Assigned),
			IsFatigued:      st.IsFatigued,
		}
	}

	return totals, utilization
}
