package model

// KeyCount is one entry of a Top-N breakdown.
type KeyCount struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Count int64  `json:"count"`
}

// DailyPoint represents views for a single UTC day.
type DailyPoint struct {
	Date           string `json:"date"` // ISO date
	Views          int64  `json:"views"`
	UniqueVisitors int64  `json:"unique_visitors"`
}

// StatsSummary is the response of the analytics stats endpoint.
type StatsSummary struct {
	Period    string `json:"period"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	TotalViews     int64   `json:"total_views"`
	UniqueVisitors int64   `json:"unique_visitors"`
	BounceRate     float64 `json:"bounce_rate"`  // percent, 2 dp
	AvgDuration    int64   `json:"avg_duration"` // seconds

	PopularPages     []KeyCount `json:"popular_pages"`
	TopCountries     []KeyCount `json:"top_countries"`
	TopReferrers     []KeyCount `json:"top_referrers"`
	TopProjects      []KeyCount `json:"top_projects"`
	DeviceTypes      []KeyCount `json:"device_types"`
	Browsers         []KeyCount `json:"browsers"`
	OperatingSystems []KeyCount `json:"operating_systems"`

	DailyViews []DailyPoint `json:"daily_views"`
}
