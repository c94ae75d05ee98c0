package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func eastern(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, EasternLocation)
}

func TestGetMarketStatus(t *testing.T) {
	// Monday 2024-06-17
	assert.Equal(t, MarketPreOpen, GetMarketStatus(eastern(2024, 6, 17, 8, 0)))
	assert.Equal(t, MarketOpen, GetMarketStatus(eastern(2024, 6, 17, 9, 30)))
	assert.Equal(t, MarketOpen, GetMarketStatus(eastern(2024, 6, 17, 15, 59)))
	assert.Equal(t, MarketAfterHour, GetMarketStatus(eastern(2024, 6, 17, 16, 0)))
	assert.Equal(t, MarketClosed, GetMarketStatus(eastern(2024, 6, 17, 23, 0)))

	// Saturday
	assert.Equal(t, MarketClosed, GetMarketStatus(eastern(2024, 6, 15, 12, 0)))
}

func TestIsMarketOpen(t *testing.T) {
	assert.True(t, IsMarketOpen(eastern(2024, 6, 17, 12, 0)))
	assert.False(t, IsMarketOpen(eastern(2024, 6, 16, 12, 0)))
}
