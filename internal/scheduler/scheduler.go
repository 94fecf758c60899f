package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-normalizer/internal/imagery"
	"github.com/i474232898/weather-normalizer/internal/weather"
)

// jobTimeout bounds one warm-up run.
const jobTimeout = 30 * time.Second

// SnapshotFetcher is the part of weather.Service the scheduler drives.
type SnapshotFetcher interface {
	GetBatchSnapshots(ctx context.Context, locs []weather.Location) []*weather.Snapshot
}

// TimelineFetcher is the part of imagery.Manager the scheduler drives.
type TimelineFetcher interface {
	GetTimeline(ctx context.Context, layer imagery.Layer) (imagery.Timeline, error)
}

// Scheduler periodically refreshes the caches for configured locations and
// the imagery manifest, so interactive requests are served warm.
type Scheduler struct {
	scheduler *gocron.Scheduler
	snapshots SnapshotFetcher
	timelines TimelineFetcher
	locations []weather.Location
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. timelines may be nil.
func New(locations []weather.Location, interval time.Duration, snapshots SnapshotFetcher, timelines TimelineFetcher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		snapshots: snapshots,
		timelines: timelines,
		locations: locations,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 && s.timelines == nil {
		s.logger.Info("nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.run); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.logger.Info("running cache warm-up job", "locations", len(s.locations))

	if len(s.locations) > 0 {
		failed := 0
		for i, snap := range s.snapshots.GetBatchSnapshots(ctx, s.locations) {
			if snap == nil {
				failed++
				s.logger.Warn("warm-up failed", "location", s.locations[i].Key())
			}
		}
		s.logger.Info("snapshots refreshed", "ok", len(s.locations)-failed, "failed", failed)
	}

	if s.timelines != nil {
		for _, layer := range []imagery.Layer{imagery.LayerRadar, imagery.LayerSatellite} {
			if _, err := s.timelines.GetTimeline(ctx, layer); err != nil {
				s.logger.Warn("imagery warm-up failed", "layer", layer, "error", err)
			}
		}
	}

	s.logger.Info("completed cache warm-up job")
}
