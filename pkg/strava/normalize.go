package strava

import (
	"strconv"

	"github.com/velohub/server/pkg/types"
)

// defaultActivityName is used when Strava sends an activity without a name.
const defaultActivityName = "Ride"

// NormalizeActivity maps a Strava activity onto the internal ride shape.
// Pure mapping, no I/O. Field policy:
//   - name and type default to "Ride"; sport_type wins over the legacy type
//   - distance, times and elevation default to zero when absent
//   - avg/max speed and calories stay nil when absent ("unknown", not zero)
//   - kilojoules wins over calories
//   - geometry prefers map.summary_polyline over map.polyline and passes
//     the raw encoded string through unchanged
func NormalizeActivity(memberID string, a *Activity) *types.Ride {
	ride := &types.Ride{
		StravaActivityID:    strconv.FormatInt(a.ID, 10),
		MemberID:            memberID,
		Name:                defaultActivityName,
		Type:                defaultActivityName,
		DistanceMeters:      floatOrZero(a.Distance),
		MovingTimeSec:       intOrZero(a.MovingTime),
		ElapsedTimeSec:      intOrZero(a.ElapsedTime),
		ElevationGainMeters: floatOrZero(a.TotalElevationGain),
		StartedAt:           a.StartDate,
		AvgSpeed:            copyFloat(a.AverageSpeed),
		MaxSpeed:            copyFloat(a.MaxSpeed),
	}

	if a.Name != nil {
		ride.Name = *a.Name
	}

	switch {
	case a.SportType != nil:
		ride.Type = *a.SportType
	case a.Type != nil:
		ride.Type = *a.Type
	}

	switch {
	case a.Kilojoules != nil:
		ride.Calories = copyFloat(a.Kilojoules)
	case a.Calories != nil:
		ride.Calories = copyFloat(a.Calories)
	}

	if a.Map != nil {
		switch {
		case a.Map.SummaryPolyline != "":
			p := a.Map.SummaryPolyline
			ride.Polyline = &p
		case a.Map.Polyline != "":
			p := a.Map.Polyline
			ride.Polyline = &p
		}
	}

	return ride
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
