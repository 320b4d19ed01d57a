// SPDX-License-Identifier: MIT
package render

import "time"

// ProgressSample is one progress callback payload. Percent is monotonic
// and deduplicated within a render. ETA is unknown (ETAKnown false)
// until at least one column has completed; it is never reported as zero
// or negative in place of unknown.
type ProgressSample struct {
	Percent  int
	ETA      time.Duration
	ETAKnown bool
}

// progressTracker turns column completions into deduplicated percent
// notifications with an elapsed-rate ETA estimate.
type progressTracker struct {
	totalColumns int
	startedAt    time.Time
	lastPercent  int
	now          func() time.Time
	emit         func(ProgressSample)
}

func newProgressTracker(totalColumns int, emit func(ProgressSample), now func() time.Time) *progressTracker {
	if now == nil {
		now = time.Now
	}
	return &progressTracker{
		totalColumns: totalColumns,
		startedAt:    now(),
		lastPercent:  -1,
		now:          now,
		emit:         emit,
	}
}

// column records that columnsDone columns have completed and emits a
// sample if the integer percentage advanced. The 100% sample is left to
// finish so it is only ever emitted for an uncancelled render.
func (p *progressTracker) column(columnsDone int) {
	if p.emit == nil {
		return
	}

	percent := columnsDone * 100 / p.totalColumns
	if percent >= 100 || percent == p.lastPercent {
		return
	}
	p.lastPercent = percent

	sample := ProgressSample{Percent: percent}
	if columnsDone > 0 {
		elapsed := p.now().Sub(p.startedAt)
		sample.ETA = elapsed * time.Duration(p.totalColumns-columnsDone) / time.Duration(columnsDone)
		sample.ETAKnown = true
	}
	p.emit(sample)
}

// finish emits the single terminal 100%/0 sample.
func (p *progressTracker) finish() {
	if p.emit == nil {
		return
	}
	p.lastPercent = 100
	p.emit(ProgressSample{Percent: 100, ETA: 0, ETAKnown: true})
}
