package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/output"
	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/tunein/go-logging/v7/pkg/logger"
	"github.com/tunein/go-logging/v7/pkg/logger/logtypes"
	"github.com/tunein/go-logging/v7/pkg/rootlogger"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/speech-emotion/configs"
	"github.com/RyanBlaney/speech-emotion/internal/dataset"
	"github.com/RyanBlaney/speech-emotion/internal/inference"
	"github.com/RyanBlaney/speech-emotion/internal/server"
	"github.com/RyanBlaney/speech-emotion/pkg/audio"
	"github.com/RyanBlaney/speech-emotion/pkg/audio/features"
	"github.com/RyanBlaney/speech-emotion/pkg/corpus"
)

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile   string
	OutputFile   string
	OutputFormat string
	LogLevel     string
	Verbose      bool

	// Batch build overrides
	InputDir     string
	Metadata     string
	MetadataBase string
	Out          string
	Format       string
	Workers      int
	LabelPolicy  string

	// Inference overrides
	ModelPath string
	Addr      string
	Backend   string

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// App handles the application lifecycle
type App struct {
	ctx       *Context
	config    *configs.Config
	logger    logging.Logger
	loader    *audio.Loader
	extractor *features.Extractor
}

// NewApp creates a new application from the merged configuration
func NewApp(ctx *Context) (*App, error) {
	config, err := loadAndMergeConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx.Config = config

	logger := setupLogging(ctx, config)
	ctx.Logger = logger

	extractor, err := features.NewExtractor(&config.Features, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature extractor: %w", err)
	}

	logger.Debug("Application initialized", logging.Fields{
		"config_file":   ctx.ConfigFile,
		"output_format": config.OutputFormat,
		"backend":       config.Audio.Backend,
		"dimension":     extractor.Dimension(),
	})

	return &App{
		ctx:       ctx,
		config:    config,
		logger:    logger,
		loader:    audio.NewLoader(&config.Audio, logger),
		extractor: extractor,
	}, nil
}

// Config returns the merged configuration
func (app *App) Config() *configs.Config {
	return app.config
}

// Extract builds a labelled feature table from a directory or a metadata
// file and writes it to the configured sink. A run where no file yields
// features still writes the header-only table.
func (app *App) Extract(ctx context.Context) (*dataset.Summary, error) {
	batch := app.config.Batch

	tasks, err := app.tasks(batch)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		app.logger.Warn("No audio files found", logging.Fields{
			"input_dir": batch.InputDir,
			"metadata":  batch.Metadata,
		})
	}

	sink, err := dataset.NewSink(batch.Format, batch.Out)
	if err != nil {
		return nil, err
	}

	builder := dataset.NewBuilder(app.loader, app.extractor, batch.Workers, app.logger)
	table, summary, err := builder.Build(ctx, tasks)
	if err != nil {
		return summary, fmt.Errorf("feature extraction failed: %w", err)
	}
	if table.Len() == 0 && len(tasks) > 0 {
		app.logger.Warn("No valid features were extracted", logging.Fields{
			"files":    len(tasks),
			"failures": summary.Failures,
		})
	}

	if err := sink.Write(ctx, table); err != nil {
		return summary, fmt.Errorf("failed to write dataset: %w", err)
	}
	app.logger.Info("Dataset written", logging.Fields{
		"path":   sink.Path(),
		"rows":   table.Len(),
		"format": batch.Format,
	})

	app.collectMetrics(summary)

	return summary, app.outputResults(map[string]any{
		"dataset": map[string]any{
			"path":    sink.Path(),
			"format":  batch.Format,
			"rows":    table.Len(),
			"columns": len(table.Columns()),
		},
		"summary": app.cleanSummary(summary),
	})
}

func (app *App) tasks(batch configs.BatchConfig) ([]dataset.Task, error) {
	if batch.Metadata != "" {
		tasks, err := dataset.MetadataSource(batch.Metadata, batch.MetadataBase)
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata: %w", err)
		}
		return tasks, nil
	}

	if batch.InputDir == "" {
		return nil, fmt.Errorf("an input directory or a metadata file is required")
	}
	resolver, err := corpus.NewResolver(batch.LabelPolicy)
	if err != nil {
		return nil, err
	}
	tasks, err := dataset.DirectorySource(batch.InputDir, batch.Extensions, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to list input files: %w", err)
	}
	return tasks, nil
}

// Predict classifies each file and writes the predictions. Files that
// cannot be classified are reported alongside the successful ones.
func (app *App) Predict(ctx context.Context, paths []string) ([]*inference.Prediction, error) {
	svc, err := app.service()
	if err != nil {
		return nil, err
	}

	var predictions []*inference.Prediction
	var results []map[string]any
	failed := 0
	for _, path := range paths {
		pred, err := svc.PredictFile(ctx, path)
		if err != nil {
			failed++
			app.logger.Warn("Prediction failed", logging.Fields{"path": path, "error": err.Error()})
			results = append(results, map[string]any{"source": path, "error": err.Error()})
			continue
		}
		predictions = append(predictions, pred)
		results = append(results, app.cleanPrediction(pred))
	}

	report := map[string]any{
		"model":       app.config.Model.Path,
		"predictions": results,
	}
	if app.config.Output.Timestamps {
		report["timestamp"] = time.Now()
	}
	if err := app.outputResults(report); err != nil {
		return predictions, err
	}

	if failed == len(paths) && failed > 0 {
		return predictions, fmt.Errorf("all %d predictions failed", failed)
	}
	return predictions, nil
}

// LabelResult shows both label policies for one path
type LabelResult struct {
	Path   string `json:"path" yaml:"path"`
	Source string `json:"source" yaml:"source"`
	Raw    string `json:"raw" yaml:"raw"`
	Mapped string `json:"mapped" yaml:"mapped"`
}

// Labels resolves every path with the raw and the mapped policy
func (app *App) Labels(paths []string) ([]LabelResult, error) {
	raw, mapped := corpus.RawResolver{}, corpus.MappedResolver{}

	results := make([]LabelResult, 0, len(paths))
	rows := make([]map[string]any, 0, len(paths))
	for _, p := range paths {
		r := LabelResult{
			Path:   p,
			Source: string(corpus.DetectSource(p)),
			Raw:    raw.Resolve(p),
			Mapped: mapped.Resolve(p),
		}
		results = append(results, r)
		rows = append(rows, map[string]any{
			"path":   r.Path,
			"source": r.Source,
			"raw":    r.Raw,
			"mapped": app.title(r.Mapped),
		})
	}

	return results, app.outputResults(map[string]any{"labels": rows})
}

// Serve runs the HTTP surface until ctx is cancelled
func (app *App) Serve(ctx context.Context) error {
	svc, err := app.service()
	if err != nil {
		return err
	}

	handler := server.NewHandler(svc, &app.config.Server, app.logger)
	return server.Serve(ctx, handler, app.logger)
}

// service loads the model bundle and wires the inference pipeline
func (app *App) service() (*inference.Service, error) {
	if app.config.Model.Path == "" {
		return nil, fmt.Errorf("a model bundle is required")
	}

	bundle, err := inference.LoadBundle(app.config.Model.Path)
	if err != nil {
		return nil, err
	}
	if bundle.Scaler.Dimension() != app.extractor.Dimension() {
		return nil, fmt.Errorf("model expects %d features but the extractor produces %d",
			bundle.Scaler.Dimension(), app.extractor.Dimension())
	}
	if bundle.LabelPolicy != "" && app.ctx.LabelPolicy != "" && !strings.EqualFold(bundle.LabelPolicy, app.ctx.LabelPolicy) {
		app.logger.Warn("Model was trained with a different label policy", logging.Fields{
			"model_policy":     bundle.LabelPolicy,
			"requested_policy": app.ctx.LabelPolicy,
		})
	}

	app.logger.Debug("Model bundle loaded", logging.Fields{
		"path":    app.config.Model.Path,
		"name":    bundle.Name,
		"classes": len(bundle.Classes),
	})

	return inference.NewServiceFromBundle(app.loader, app.extractor, bundle, app.logger)
}

// setupLogging configures the process logger from the log level. The
// global logger is replaced so library code logs through it too.
func setupLogging(ctx *Context, config *configs.Config) logging.Logger {
	if ctx.Logger != nil {
		return ctx.Logger
	}

	l := logging.NewDefaultLogger()
	l.SetLevel(parseLevel(config.LogLevel, config.Verbose))
	logging.SetGlobalLogger(l)
	return l
}

func parseLevel(level string, verbose bool) logging.Level {
	if verbose {
		return logging.DebugLevel
	}
	switch strings.ToLower(level) {
	case "debug":
		return logging.DebugLevel
	case "warn", "warning":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.InfoLevel
	}
}

// collectMetrics sends the batch run metrics to rootcollector
func (app *App) collectMetrics(summary *dataset.Summary) {
	if !app.config.Metrics.Enabled || summary == nil {
		return
	}

	err := rootlogger.Configure(logger.LogOptions{
		Out:          app.config.Metrics.LogFile,
		ReopenSignal: syscall.SIGHUP,
		Level:        logtypes.InfoLevel,
	})
	if err != nil {
		app.logger.Error(err, "Failed configuring log writer")
	}

	tags := append([]string{"policy:" + app.config.Batch.LabelPolicy}, app.config.Metrics.Tags...)
	dataset.PublishMetrics(summary, tags)
}

// outputResults formats data with the configured formatter and writes it
// to the output file or stdout
func (app *App) outputResults(data map[string]any) error {
	formatter := newFormatter(app.config.OutputFormat)

	formattedData, err := formatter.Format(data, true)
	if err != nil {
		return fmt.Errorf("failed to format output data: %w", err)
	}

	if app.config.Output.File != "" {
		return app.writeToFile(formattedData)
	}

	_, err = os.Stdout.Write(formattedData)
	return err
}

func newFormatter(format string) output.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return &output.JSONFormatter{}
	case "yaml":
		return &output.YAMLFormatter{}
	case "csv":
		return &output.CSVFormatter{}
	case "table":
		return &output.TableFormatter{}
	default:
		return &output.JSONFormatter{}
	}
}

// cleanPrediction flattens a prediction for the formatters
func (app *App) cleanPrediction(pred *inference.Prediction) map[string]any {
	probabilities := make(map[string]any, len(pred.Probabilities))
	for _, p := range pred.Probabilities {
		probabilities[app.title(p.Label)] = p.Percentage
	}
	return map[string]any{
		"source":        pred.Source,
		"label":         app.title(pred.Label),
		"confidence":    roundTo(pred.Confidence, app.config.Output.Precision+2),
		"probabilities": probabilities,
	}
}

// cleanSummary keeps the reportable part of a batch summary
func (app *App) cleanSummary(summary *dataset.Summary) map[string]any {
	clean := map[string]any{
		"total":            summary.Total,
		"succeeded":        summary.Succeeded,
		"failed":           summary.Failed,
		"failures":         summary.Failures,
		"labels":           summary.Labels,
		"dimension":        summary.Dimension,
		"total_duration":   summary.TotalDuration.Seconds(),
		"files_per_second": summary.FilesPerSecond,
	}
	if app.config.Output.Timestamps {
		clean["start_time"] = summary.StartTime
		clean["end_time"] = summary.EndTime
	}
	if summary.ProcessingTime != nil {
		clean["processing_time_ms"] = summary.ProcessingTime
	}
	return clean
}

// title renders a label for display when title_labels is set
func (app *App) title(label string) string {
	if !app.config.Output.TitleLabels {
		return label
	}
	return cases.Title(language.English).String(label)
}

func roundTo(v float64, digits int) float64 {
	if digits < 0 {
		return v
	}
	p := 1.0
	for range digits {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}

// writeToFile writes data to the configured output file
func (app *App) writeToFile(data []byte) error {
	file := app.config.Output.File

	// Ensure directory exists
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": file,
		"size_bytes":  len(data),
	})

	return nil
}
