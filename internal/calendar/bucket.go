package calendar

import (
	"slices"
	"time"

	"ratskal/internal/model"
)

// Buckets maps a civil day to the meetings starting on it.
type Buckets map[DayKey][]model.Meeting

// Bucket groups meetings by the civil day of their start in loc.
//
// Meetings whose Start is missing or unparseable are skipped; the upstream
// data regularly carries partial dates and that is not an error here.
// Within a bucket the input order is preserved and duplicates are kept.
func Bucket(meetings []model.Meeting, loc *time.Location) Buckets {
	out := make(Buckets)
	for _, m := range meetings {
		key, err := Normalize(m.Start, loc)
		if err != nil {
			continue
		}
		out[key] = append(out[key], m)
	}
	return out
}

// Len returns the total number of bucketed meetings.
func (b Buckets) Len() int {
	n := 0
	for _, ms := range b {
		n += len(ms)
	}
	return n
}

// On returns the meetings of day k; never nil.
func (b Buckets) On(k DayKey) []model.Meeting {
	ms := b[k]
	if ms == nil {
		return []model.Meeting{}
	}
	return ms
}

// SortByStart returns a copy of b with each bucket ordered by start instant.
// Equal instants keep their input order.
func (b Buckets) SortByStart(loc *time.Location) Buckets {
	out := make(Buckets, len(b))
	for k, ms := range b {
		sorted := slices.Clone(ms)
		slices.SortStableFunc(sorted, func(x, y model.Meeting) int {
			tx, _ := ParseTimestamp(x.Start, loc)
			ty, _ := ParseTimestamp(y.Start, loc)
			return tx.Compare(ty)
		})
		out[k] = sorted
	}
	return out
}
