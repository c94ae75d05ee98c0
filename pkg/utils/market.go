package utils

import "time"

// MarketStatus describes the current US equity market session.
type MarketStatus string

const (
	MarketClosed    MarketStatus = "CLOSED"
	MarketPreOpen   MarketStatus = "PRE_OPEN"
	MarketOpen      MarketStatus = "OPEN"
	MarketAfterHour MarketStatus = "AFTER_HOURS"
)

// EasternLocation is the timezone for US markets.
var EasternLocation *time.Location

func init() {
	var err error
	EasternLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		EasternLocation = time.FixedZone("ET", -5*60*60)
	}
}

// GetMarketStatus returns the session status for the given time.
// Regular trading is 9:30 to 16:00 Eastern on weekdays; listed options
// only trade during regular hours.
func GetMarketStatus(now time.Time) MarketStatus {
	et := now.In(EasternLocation)

	if et.Weekday() == time.Saturday || et.Weekday() == time.Sunday {
		return MarketClosed
	}

	minutes := et.Hour()*60 + et.Minute()
	switch {
	case minutes >= 4*60 && minutes < 9*60+30:
		return MarketPreOpen
	case minutes >= 9*60+30 && minutes < 16*60:
		return MarketOpen
	case minutes >= 16*60 && minutes < 20*60:
		return MarketAfterHour
	default:
		return MarketClosed
	}
}

// IsMarketOpen returns true during regular trading hours.
func IsMarketOpen(now time.Time) bool {
	return GetMarketStatus(now) == MarketOpen
}
