package dataset

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
)

// Failure categories
const (
	FailureDecode     = "decode"
	FailureExtraction = "extraction"
	FailureInvalid    = "invalid"
	FailureCanceled   = "canceled"
)

// TimingStats summarises per-file processing times in milliseconds
type TimingStats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95" yaml:"p95"`
	P99    float64 `json:"p99" yaml:"p99"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Count  int     `json:"count" yaml:"count"`
}

// Summary reports the outcome of one batch run
type Summary struct {
	Total          int            `json:"total" yaml:"total"`
	Succeeded      int            `json:"succeeded" yaml:"succeeded"`
	Failed         int            `json:"failed" yaml:"failed"`
	Failures       map[string]int `json:"failures" yaml:"failures"`
	Labels         map[string]int `json:"labels" yaml:"labels"`
	Dimension      int            `json:"dimension" yaml:"dimension"`
	ProcessingTime *TimingStats   `json:"processing_time_ms" yaml:"processing_time_ms"`
	StartTime      time.Time      `json:"start_time" yaml:"start_time"`
	EndTime        time.Time      `json:"end_time" yaml:"end_time"`
	TotalDuration  time.Duration  `json:"total_duration" yaml:"total_duration"`
	FilesPerSecond float64        `json:"files_per_second" yaml:"files_per_second"`
}

// MetricsCalculator derives run statistics from worker results
type MetricsCalculator struct {
	logger logging.Logger
}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator(logger logging.Logger) *MetricsCalculator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &MetricsCalculator{
		logger: logger,
	}
}

// Summarize builds the run summary from every result and the final table
func (mc *MetricsCalculator) Summarize(results []Result, table *Table, start, end time.Time) *Summary {
	summary := &Summary{
		Total:     len(results),
		Failures:  make(map[string]int),
		Labels:    table.LabelCounts(),
		Dimension: table.Dimension,
		StartTime: start,
		EndTime:   end,
	}

	var timings []float64
	for _, r := range results {
		timings = append(timings, float64(r.Elapsed.Microseconds())/1000.0)
		if r.Err != nil {
			summary.Failures[mc.CategorizeFailure(r.Err)]++
		}
	}
	summary.Succeeded = table.Len()
	summary.Failed = summary.Total - summary.Succeeded
	summary.ProcessingTime = mc.calculateStats(timings)
	summary.TotalDuration = end.Sub(start)
	if secs := summary.TotalDuration.Seconds(); secs > 0 {
		summary.FilesPerSecond = float64(summary.Total) / secs
	}
	return summary
}

// CategorizeFailure maps a per-file error onto a failure category
func (mc *MetricsCalculator) CategorizeFailure(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCanceled
	case errors.Is(err, features.ErrInvalidVector):
		return FailureInvalid
	case audio.IsDecodeError(err):
		return FailureDecode
	default:
		return FailureExtraction
	}
}

// calculateStats calculates statistical measures for a dataset
func (mc *MetricsCalculator) calculateStats(data []float64) *TimingStats {
	if len(data) == 0 {
		return &TimingStats{Count: 0}
	}

	sortedData := slices.Clone(data)
	slices.Sort(sortedData)

	stats := &TimingStats{
		Count:  len(data),
		Min:    sortedData[0],
		Max:    sortedData[len(sortedData)-1],
		Median: mc.percentile(sortedData, 50),
		P95:    mc.percentile(sortedData, 95),
		P99:    mc.percentile(sortedData, 99),
	}

	sum := 0.0
	for _, value := range data {
		sum += value
	}
	stats.Mean = sum / float64(len(data))

	sumSquaredDiffs := 0.0
	for _, value := range data {
		diff := value - stats.Mean
		sumSquaredDiffs += diff * diff
	}
	stats.StdDev = math.Sqrt(sumSquaredDiffs / float64(len(data)))

	return stats
}

// percentile interpolates the p-th percentile of sorted data
func (mc *MetricsCalculator) percentile(sortedData []float64, p float64) float64 {
	if len(sortedData) == 0 {
		return 0
	}
	if len(sortedData) == 1 {
		return sortedData[0]
	}

	index := (p / 100.0) * float64(len(sortedData)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if upper >= len(sortedData) {
		return sortedData[len(sortedData)-1]
	}

	weight := index - float64(lower)
	return sortedData[lower]*(1-weight) + sortedData[upper]*weight
}

// PublishMetrics sends the run counters to the configured metrics collector
func PublishMetrics(summary *Summary, tags []string) {
	if summary == nil {
		return
	}

	rootcollector.Metric("speech_emotion.dataset.files.total", int64(summary.Total), tags)
	rootcollector.Metric("speech_emotion.dataset.files.succeeded", int64(summary.Succeeded), tags)
	rootcollector.Metric("speech_emotion.dataset.files.failed", int64(summary.Failed), tags)
	rootcollector.Metric("speech_emotion.dataset.duration.milliseconds", summary.TotalDuration.Milliseconds(), tags)

	for category, n := range summary.Failures {
		rootcollector.Metric("speech_emotion.dataset.failures", int64(n), append(slices.Clone(tags), "reason:"+category))
	}
	for label, n := range summary.Labels {
		rootcollector.Metric("speech_emotion.dataset.samples", int64(n), append(slices.Clone(tags), "emotion:"+label))
	}
	if summary.ProcessingTime != nil && summary.ProcessingTime.Count > 0 {
		rootcollector.Metric("speech_emotion.dataset.file.p95.milliseconds", int64(summary.ProcessingTime.P95), tags)
	}
}
