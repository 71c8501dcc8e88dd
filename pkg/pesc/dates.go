package pesc

import "time"

// DateLayout is the DD-MM-YYYY format the API expects for dates.
const DateLayout = "02-01-2006"

// DateRange bounds a bills, payments or indications query. A zero From means
// the 1st of January of the current year and a zero To means today.
type DateRange struct {
	From time.Time
	To   time.Time
}

// resolve fills in the defaults relative to now. It has to be called for every
// request so that "today" is never captured ahead of time.
func (r DateRange) resolve(now time.Time) (string, string) {
	from, to := r.From, r.To
	if from.IsZero() {
		from = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
	if to.IsZero() {
		to = now
	}
	return from.Format(DateLayout), to.Format(DateLayout)
}

// Between returns the range [from, to].
func Between(from, to time.Time) DateRange {
	return DateRange{From: from, To: to}
}
