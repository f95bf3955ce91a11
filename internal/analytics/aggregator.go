package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/folio/folio/internal/metrics"
	"github.com/folio/folio/internal/model"
)

// ErrSourceUnavailable is returned when the event store cannot be reached
// before any dimension is queried.
var ErrSourceUnavailable = errors.New("event source unavailable")

// EventSource is the read side of the event store.
// Every read covers the inclusive window [start, end].
type EventSource interface {
	Ping(ctx context.Context) error
	CountPageViews(ctx context.Context, start, end time.Time) (int64, error)
	VisitorIDs(ctx context.Context, start, end time.Time) ([]string, error)
	PagePaths(ctx context.Context, start, end time.Time) ([]string, error)
	Countries(ctx context.Context, start, end time.Time) ([]string, error)
	Referrers(ctx context.Context, start, end time.Time) ([]string, error)
	Devices(ctx context.Context, start, end time.Time) ([]model.DeviceInfo, error)
	Visits(ctx context.Context, start, end time.Time) ([]model.Visit, error)
	ProjectViews(ctx context.Context, start, end time.Time) ([]model.ProjectRef, error)
	Engagement(ctx context.Context, start, end time.Time) ([]model.EngagementRow, error)
}

// Aggregator computes dashboard summaries from raw events.
type Aggregator struct {
	source  EventSource
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAggregator creates a new Aggregator.
func NewAggregator(source EventSource, logger *slog.Logger, recorder metrics.Recorder) *Aggregator {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Aggregator{
		source:  source,
		logger:  logger.With("component", "analytics.aggregator"),
		metrics: recorder,
		now:     time.Now,
	}
}

// dimensions holds the raw reads of one stats request.
type dimensions struct {
	total      int64
	visitors   []string
	pages      []string
	countries  []string
	referrers  []string
	devices    []model.DeviceInfo
	visits     []model.Visit
	projects   []model.ProjectRef
	engagement []model.EngagementRow
}

// ComputeStats builds the summary for the given period token.
// Individual read failures are logged and leave that slice empty;
// only an unreachable store fails the whole computation.
func (a *Aggregator) ComputeStats(ctx context.Context, period string) (*model.StatsSummary, error) {
	start := time.Now()
	window := ResolvePeriod(period, a.now())

	if err := a.source.Ping(ctx); err != nil {
		a.metrics.IncStatsRequest("error")
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	dims := a.fetch(ctx, window)
	summary := summarize(window, dims)

	a.metrics.IncStatsRequest("success")
	a.metrics.ObserveStatsDuration(time.Since(start))
	return summary, nil
}

// fetch runs every dimension read concurrently. No read cancels another.
func (a *Aggregator) fetch(ctx context.Context, w Window) *dimensions {
	d := &dimensions{}
	var g errgroup.Group

	read(&g, a, "total_views", func() (err error) {
		d.total, err = a.source.CountPageViews(ctx, w.Start, w.End)
		return err
	})
	read(&g, a, "visitors", func() (err error) {
		d.visitors, err = a.source.VisitorIDs(ctx, w.Start, w.End)
		return err
	})
	read(&g, a, "pages", func() (err error) {
		d.pages, err = a.source.PagePaths(ctx, w.Start, w.End)
		return err
	})
	read(&g, a, "countries", func() (err error) {
		d.countries, err = a.source.Countries(ctx, w.Start, w.End)
		return err
	})
	read(&g, a, "referrers", func() (err error) {
		d.referrers, err = a.source.Referrers(ctx, w.Start, w.End)
		return err
	})
	read(&g, a, "devices", func() (err error) {
		d.devices, err = a.source.Devices(ctx, w.Start, w.End)
		return err
	})
	read(&g, a, "visits", func() (err error) {
		d.visits, err = a.source.Visits(ctx, w.Start, w.End)
		return err
	})
	read(&g, a, "projects", func() (err error) {
		d.projects, err = a.source.ProjectViews(ctx, w.Start, w.End)
		return err
	})
	read(&g, a, "engagement", func() (err error) {
		d.engagement, err = a.source.Engagement(ctx, w.Start, w.End)
		return err
	})

	// Readers never return errors to the group.
	_ = g.Wait()
	return d
}

// read schedules fn and swallows its error after logging it, so a failed
// dimension keeps its zero value.
func read(g *errgroup.Group, a *Aggregator, dimension string, fn func() error) {
	g.Go(func() error {
		if err := fn(); err != nil {
			a.logger.Warn("dimension read failed, using empty result",
				slog.String("dimension", dimension),
				slog.String("error", err.Error()),
			)
			a.metrics.IncStatsDimensionFailure(dimension)
		}
		return nil
	})
}

// summarize is the pure aggregation step.
func summarize(w Window, d *dimensions) *model.StatsSummary {
	deviceTypes, browsers, systems := DeviceBreakdowns(d.devices)

	return &model.StatsSummary{
		Period:    w.Period,
		StartDate: w.StartISO(),
		EndDate:   w.EndISO(),

		TotalViews:     d.total,
		UniqueVisitors: UniqueCount(d.visitors),
		BounceRate:     BounceRate(d.engagement),
		AvgDuration:    AvgDuration(d.engagement),

		PopularPages:     TopN(countValues(d.pages), TopPages),
		TopCountries:     TopN(countValues(d.countries), TopCountries),
		TopReferrers:     ReferrerBreakdown(d.referrers, TopReferrers),
		TopProjects:      ProjectBreakdown(d.projects, TopProjects),
		DeviceTypes:      deviceTypes,
		Browsers:         browsers,
		OperatingSystems: systems,

		DailyViews: DailySeries(d.visits),
	}
}
