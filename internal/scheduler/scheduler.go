// Package scheduler runs the background jobs: fixed-interval loops (fetch,
// purge) and a wall-clock daily task (report push). A failing or panicking
// run is logged and counted; it never ends its loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

// ErrBadClock is returned for a malformed "HH:MM" value.
var ErrBadClock = errors.New("invalid clock time, want HH:MM")

var (
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coronabot_job_runs_total",
			Help: "Background job runs by job and outcome.",
		},
		[]string{"job", "outcome"},
	)
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coronabot_job_duration_seconds",
			Help:    "Background job run duration.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func init() {
	prometheus.MustRegister(jobRuns, jobDuration)
}

// now is overridden in tests.
var now = time.Now

// Every runs job immediately and then once per interval until ctx is done.
// Runs never overlap: a slow run delays the next tick.
func Every(ctx context.Context, name string, interval time.Duration, job Job) {
	if interval <= 0 {
		log.Error().Str("job", name).Dur("interval", interval).Msg("job not scheduled: interval must be positive")
		return
	}
	log.Info().Str("job", name).Dur("interval", interval).Msg("job scheduled")
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		Run(ctx, name, job)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// DailyAt runs job every day at clock ("HH:MM") in loc until ctx is done.
func DailyAt(ctx context.Context, name, clock string, loc *time.Location, job Job) error {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return err
	}
	if loc == nil {
		loc = time.UTC
	}
	for {
		next := NextRun(now(), hour, minute, loc)
		log.Info().Str("job", name).Time("next", next).Msg("job scheduled")
		t := time.NewTimer(next.Sub(now()))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		Run(ctx, name, job)
	}
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadClock, s)
	}
	return hour, minute, nil
}

// NextRun is the first hour:minute in loc strictly after t.
func NextRun(t time.Time, hour, minute int, loc *time.Location) time.Time {
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Run executes job once, recovering panics. The outcome is logged and
// exported; the error is returned for callers that run jobs by hand.
func Run(ctx context.Context, name string, job Job) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
		d := time.Since(start)
		jobDuration.WithLabelValues(name).Observe(d.Seconds())
		switch {
		case err == nil:
			jobRuns.WithLabelValues(name, "ok").Inc()
			log.Debug().Str("job", name).Dur("duration", d).Msg("job finished")
		case errors.Is(err, context.Canceled):
			jobRuns.WithLabelValues(name, "canceled").Inc()
		default:
			jobRuns.WithLabelValues(name, "error").Inc()
			log.Error().Err(err).Str("job", name).Dur("duration", d).Msg("job failed")
		}
	}()
	return job(ctx)
}
