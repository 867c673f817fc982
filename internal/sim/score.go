package sim

// Rules applied when scoring a committed assignment.
const (
	gracePeriodMinutes = 10
	latePenalty        = 50.0
	bonusValueFloor    = 1000.0
	bonusRate          = 0.10
)

// Score is the financial outcome of one delivered order.
type Score struct {
	IsOnTime bool
	Penalty  float64
	Bonus    float64
	FuelCost float64
	Profit   float64
}

// ScoreAssignment computes the outcome for one committed assignment.
//
// The on-time check compares the adjusted delivery minutes against the
// route's nominal base time plus the grace period. The base time is used
// deliberately, not the traffic/fatigue-adjusted figure the scheduler runs
// on: a route slowed by traffic or fatigue can therefore be late even
// though it ran exactly as scheduled.
func ScoreAssignment(a Assignment) Score {
	var s Score

	allowed := a.Route.BaseTimeMinutes + gracePeriodMinutes
	s.IsOnTime = float64(a.DeliveryMinutes) <= allowed

	if !s.IsOnTime {
		s.Penalty = latePenalty
	}
	if a.Order.ValueRs > bonusValueFloor && s.IsOnTime {
		s.Bonus = a.Order.ValueRs * bonusRate
	}
	s.FuelCost = FuelCost(a.Route)
	s.Profit = a.Order.ValueRs + s.Bonus - s.Penalty - s.FuelCost

	return s
}
