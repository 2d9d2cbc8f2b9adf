package models

// Option is a selectable activity or location.
type Option struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Addon prices are in minor currency units.
type Addon struct {
	Key         string `bson:"key" json:"key"`
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	Price       int64  `bson:"price" json:"price"`
}

// Period is a named window of the day; Start and End are minutes since midnight.
type Period struct {
	Key   string
	Title string
	Start int
	End   int
}

// Contains reports whether a slot starting at minute falls in the period.
func (p Period) Contains(minute int) bool {
	return minute >= p.Start && minute < p.End
}

// Catalog is everything a user can pick from, plus pricing.
type Catalog struct {
	Brand         string
	MembershipURL string
	Activities    []Option
	Locations     []Option
	Periods       []Period
	Addons        []Addon
	BasePrice     int64
	Currency      string
	Symbol        string
	MaxSlots      int
}

func (c Catalog) Activity(key string) (Option, bool) {
	return findOption(c.Activities, key)
}

func (c Catalog) Location(key string) (Option, bool) {
	return findOption(c.Locations, key)
}

func (c Catalog) Period(key string) (Period, bool) {
	for _, p := range c.Periods {
		if p.Key == key {
			return p, true
		}
	}
	return Period{}, false
}

func (c Catalog) Addon(key string) (Addon, bool) {
	for _, a := range c.Addons {
		if a.Key == key {
			return a, true
		}
	}
	return Addon{}, false
}

func findOption(opts []Option, key string) (Option, bool) {
	for _, o := range opts {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}
