package domain

import (
	"strconv"
	"time"
)

// Promotion limits: promotions only run during the day and are capped per
// hour and per calendar day to stay under transport abuse thresholds.
const (
	PromoteDailyCap        = 60
	PromoteHourlyCap       = 10
	PromoteWindowStartHour = 6
	PromoteWindowEndHour   = 18
)

// SaveQuota tracks special-promotion counters for one calendar day. The
// document resets itself when the date rolls over.
type SaveQuota struct {
	Date        string         `json:"date"`
	DailyCount  int            `json:"daily_count"`
	HourlyCount map[string]int `json:"hourly_count"`
}

// Allow checks the daytime window and both caps, incrementing the counters
// when the promotion is permitted. The caller persists the mutated quota.
func (q *SaveQuota) Allow(now time.Time) bool {
	hour := now.Hour()
	if hour < PromoteWindowStartHour || hour >= PromoteWindowEndHour {
		return false
	}

	day := now.Format("2006-01-02")
	if q.Date != day {
		q.Date = day
		q.DailyCount = 0
		q.HourlyCount = nil
	}
	if q.HourlyCount == nil {
		q.HourlyCount = make(map[string]int)
	}

	key := strconv.Itoa(hour)
	if q.DailyCount >= PromoteDailyCap || q.HourlyCount[key] >= PromoteHourlyCap {
		return false
	}

	q.DailyCount++
	q.HourlyCount[key]++
	return true
}
