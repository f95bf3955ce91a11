package analytics

import (
	"cmp"
	"math"
	"net/url"
	"slices"

	"github.com/folio/folio/internal/model"
)

// Top-N sizes for each breakdown.
const (
	TopPages     = 10
	TopCountries = 10
	TopReferrers = 10
	TopProjects  = 10
	TopBrowsers  = 5
	TopOS        = 5
	// NoLimit keeps every bucket.
	NoLimit = 0
)

// counter is a frequency map over one categorical dimension.
type counter map[string]int64

func countValues(values []string) counter {
	c := make(counter, len(values))
	for _, v := range values {
		c[v]++
	}
	return c
}

// TopN returns the entries of counts sorted by count descending.
// Equal counts are ordered by key so the output is deterministic.
// A limit of NoLimit keeps every entry.
func TopN(counts map[string]int64, limit int) []model.KeyCount {
	result := make([]model.KeyCount, 0, len(counts))
	for key, count := range counts {
		result = append(result, model.KeyCount{Key: key, Count: count})
	}

	slices.SortFunc(result, func(a, b model.KeyCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	if limit > 0 && len(result) > limit {
		return result[:limit]
	}
	return result
}

// ReferrerKey returns the bucket key for a referrer: its hostname when it
// parses as an absolute URL, otherwise the raw value unchanged.
func ReferrerKey(ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil || parsed.Hostname() == "" {
		return ref
	}
	return parsed.Hostname()
}

// ReferrerBreakdown buckets referrers by domain.
func ReferrerBreakdown(referrers []string, limit int) []model.KeyCount {
	counts := make(counter, len(referrers))
	for _, ref := range referrers {
		counts[ReferrerKey(ref)]++
	}
	return TopN(counts, limit)
}

// ProjectBreakdown counts project views per slug, labelled with the first title seen.
func ProjectBreakdown(refs []model.ProjectRef, limit int) []model.KeyCount {
	counts := make(counter, len(refs))
	titles := make(map[string]string, len(refs))
	for _, ref := range refs {
		counts[ref.Slug]++
		if _, ok := titles[ref.Slug]; !ok {
			titles[ref.Slug] = ref.Title
		}
	}

	top := TopN(counts, limit)
	for i := range top {
		top[i].Label = titles[top[i].Key]
	}
	return top
}

// DeviceBreakdowns splits device triples into device type, browser and OS lists.
// Empty components are skipped.
func DeviceBreakdowns(devices []model.DeviceInfo) (types, browsers, systems []model.KeyCount) {
	typeCounts := make(counter)
	browserCounts := make(counter)
	osCounts := make(counter)

	for _, d := range devices {
		if d.DeviceType != "" {
			typeCounts[d.DeviceType]++
		}
		if d.Browser != "" {
			browserCounts[d.Browser]++
		}
		if d.OS != "" {
			osCounts[d.OS]++
		}
	}

	return TopN(typeCounts, NoLimit), TopN(browserCounts, TopBrowsers), TopN(osCounts, TopOS)
}

// DailySeries buckets visits by UTC calendar date, ascending.
func DailySeries(visits []model.Visit) []model.DailyPoint {
	type bucket struct {
		views    int64
		visitors map[string]struct{}
	}

	buckets := make(map[string]*bucket)
	for _, v := range visits {
		day := v.ViewedAt.UTC().Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &bucket{visitors: make(map[string]struct{})}
			buckets[day] = b
		}
		b.views++
		b.visitors[v.VisitorID] = struct{}{}
	}

	series := make([]model.DailyPoint, 0, len(buckets))
	for day, b := range buckets {
		series = append(series, model.DailyPoint{
			Date:           day,
			Views:          b.views,
			UniqueVisitors: int64(len(b.visitors)),
		})
	}

	slices.SortFunc(series, func(a, b model.DailyPoint) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return series
}

// UniqueCount returns the number of distinct IDs.
func UniqueCount(ids []string) int64 {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return int64(len(seen))
}

// BounceRate is bounces over flagged rows as a percentage with 2 decimals.
// Rows without a bounce flag are ignored; no flagged rows yields 0.
func BounceRate(rows []model.EngagementRow) float64 {
	var flagged, bounces int64
	for _, row := range rows {
		if row.IsBounce == nil {
			continue
		}
		flagged++
		if *row.IsBounce {
			bounces++
		}
	}
	if flagged == 0 {
		return 0
	}
	return roundTo(float64(bounces)/float64(flagged)*100, 2)
}

// AvgDuration is the mean of strictly positive durations rounded to whole seconds.
func AvgDuration(rows []model.EngagementRow) int64 {
	var sum float64
	var n int64
	for _, row := range rows {
		if row.DurationSeconds == nil || *row.DurationSeconds <= 0 {
			continue
		}
		sum += *row.DurationSeconds
		n++
	}
	if n == 0 {
		return 0
	}
	return int64(math.Round(sum / float64(n)))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
