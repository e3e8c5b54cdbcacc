package dataset

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/stretchr/testify/assert"

	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
)

// TestCategorizeFailure checks the failure taxonomy
func TestCategorizeFailure(t *testing.T) {
	mc := NewMetricsCalculator(&logging.NoOpLogger{})

	decode := audio.NewDecodeError("a.wav", audio.ErrCodeEmpty, "empty", audio.ErrEmptyWaveform)
	assert.Equal(t, FailureDecode, mc.CategorizeFailure(fmt.Errorf("wrapped: %w", decode)))
	assert.Equal(t, FailureInvalid, mc.CategorizeFailure(fmt.Errorf("x: %w", features.ErrInvalidVector)))
	assert.Equal(t, FailureExtraction, mc.CategorizeFailure(features.ErrWaveformTooShort))
	assert.Equal(t, FailureCanceled, mc.CategorizeFailure(context.Canceled))
	assert.Equal(t, FailureExtraction, mc.CategorizeFailure(errors.New("other")))
}

// TestCalculateStats checks the timing statistics
func TestCalculateStats(t *testing.T) {
	mc := NewMetricsCalculator(nil)

	stats := mc.calculateStats([]float64{4, 1, 3, 2, 5})
	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 5.0, stats.Max)
	assert.Equal(t, 3.0, stats.Mean)
	assert.Equal(t, 3.0, stats.Median)
	assert.InDelta(t, 4.8, stats.P95, 1e-9)
	assert.InDelta(t, 1.41421356, stats.StdDev, 1e-6)

	assert.Equal(t, 0, mc.calculateStats(nil).Count)
	assert.Equal(t, 7.0, mc.percentile([]float64{7}, 99))
}

// TestSummarize checks counts and throughput
func TestSummarize(t *testing.T) {
	mc := NewMetricsCalculator(nil)
	table := NewTable(1)
	table.Rows = []Row{{Label: "a"}, {Label: "a"}, {Label: "b"}}

	results := []Result{
		{Elapsed: time.Millisecond},
		{Elapsed: time.Millisecond},
		{Elapsed: time.Millisecond},
		{Err: features.ErrEmptyInput, Elapsed: time.Millisecond},
	}
	start := time.Now()
	summary := mc.Summarize(results, table, start, start.Add(2*time.Second))

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, summary.Labels)
	assert.Equal(t, 1, summary.Failures[FailureExtraction])
	assert.InDelta(t, 2.0, summary.FilesPerSecond, 1e-9)
	assert.InDelta(t, 1.0, summary.ProcessingTime.Mean, 1e-9)
}
