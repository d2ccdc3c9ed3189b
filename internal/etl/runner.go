// =============================================================================
// CSV Document Loader - Run Orchestrator
// =============================================================================
//
// The runner loads every CSV file of the input directory, one at a time and
// in name order, into the collection its name maps to.
//
// FAILURE LEVELS:
//   - run:  the input directory is missing; nothing is processed
//   - file: the file's error is recorded and the next file is processed
//   - row:  handled by the file's strict or lenient mode
//
// After the files, the runner optionally writes a summary log and a
// Prometheus textfile.
//
// =============================================================================

package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/csvload/internal/config"
	"github.com/ginjaninja78/csvload/internal/converter"
	"github.com/ginjaninja78/csvload/internal/logging"
	"github.com/ginjaninja78/csvload/internal/metrics"
	"github.com/ginjaninja78/csvload/internal/store"
	"github.com/ginjaninja78/csvload/pkg/utils"
)

// ErrInputDirMissing aborts a run whose input directory does not exist.
var ErrInputDirMissing = errors.New("input directory not found")

// MessageNoFiles is the report message of a run with no input files.
const MessageNoFiles = "no CSV files found"

// =============================================================================
// REPORT
// =============================================================================

// CollectionSummary aggregates the files loaded into one collection.
type CollectionSummary struct {
	// Processed is the number of documents inserted.
	Processed  int
	Duplicates int
	Modified   int

	// Errors holds every row and record error, in order.
	Errors []string

	// Error joins the file-level failures, empty when there were none.
	Error string
}

// Report is the result of a run.
type Report struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time

	// Success is true when files were found and none failed at file level.
	Success bool

	// Message explains an unsuccessful run that processed no file.
	Message string

	// Files holds one result per input file, in processing order.
	Files []*converter.Result

	// Collections maps collection names to their summaries.
	Collections map[string]*CollectionSummary

	archived map[string]string
	order    []string
}

// CollectionNames returns the collections in order of first appearance.
func (r *Report) CollectionNames() []string {
	return r.order
}

func (r *Report) collection(name string) *CollectionSummary {
	if r.Collections == nil {
		r.Collections = make(map[string]*CollectionSummary)
	}
	s, ok := r.Collections[name]
	if !ok {
		s = &CollectionSummary{}
		r.Collections[name] = s
		r.order = append(r.order, name)
	}
	return s
}

func (r *Report) add(res *converter.Result) {
	r.Files = append(r.Files, res)
	s := r.collection(res.Collection)

	if res.Outcome != nil {
		s.Processed += res.Outcome.Inserted
		s.Duplicates += res.Outcome.Duplicates
		s.Modified += res.Outcome.Modified
		s.Errors = append(s.Errors, res.Outcome.Errors...)
	}
	if res.Err != nil {
		msg := fmt.Sprintf("%s: %v", filepath.Base(res.File), res.Err)
		if s.Error == "" {
			s.Error = msg
		} else {
			s.Error += "; " + msg
		}
	}
}

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes a load run.
type Runner struct {
	// InputDir overrides the configured input directory when set.
	InputDir string

	Config   *config.MainConfig
	Registry *config.Registry

	// Store is opened and closed by the caller.
	Store store.Store

	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics

	// DryRun disables archiving.
	DryRun bool
}

// Run processes every CSV file of the input directory.
//
// RETURNS:
//   - The run report. A run with no files returns a report with
//     Success false and MessageNoFiles.
//   - An error wrapping ErrInputDirMissing when the input directory does
//     not exist, or a discovery error.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	logger := r.logger()
	registry := r.Registry
	if registry == nil {
		registry = config.NewRegistry()
	}
	m := r.Metrics
	if m == nil {
		m = metrics.New()
	}

	inputDir := r.InputDir
	if inputDir == "" {
		inputDir = r.Config.InputDir
	}
	if !utils.DirExists(inputDir) {
		return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, inputDir)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
		archived:  make(map[string]string),
	}
	logger = logger.WithField("run_id", report.RunID)

	files := utils.NewFileManager(inputDir, r.archiveDir())
	files.UseTimestampSubdirs = r.Config.ArchiveDateSubdirs
	paths, err := files.DiscoverInputFiles("*.csv")
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		report.Message = MessageNoFiles
		logger.Warnf("No CSV files found in %s", inputDir)
	} else {
		logger.Infof("Files to process: %s", strings.Join(baseNames(paths), ", "))
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		collCfg := registry.ForFile(path)
		fileLogger := logger.WithFields(logrus.Fields{
			"file":       filepath.Base(path),
			"collection": collCfg.Collection,
		})

		res := converter.New(path, collCfg, r.Store.Collection(collCfg.Collection), fileLogger).Run(ctx)
		report.add(res)
		r.observe(m, res)

		switch {
		case res.Failed():
			fileLogger.Errorf("Failed: %v", res.Err)
		case res.NoData:
		default:
			archived, err := files.ArchiveInputFile(path)
			if err != nil {
				fileLogger.Warnf("Failed to archive file: %v", err)
			} else if archived != path {
				report.archived[path] = archived
				fileLogger.Debugf("Archived to %s", archived)
			}
		}
	}

	report.EndTime = time.Now()
	report.Success = len(paths) > 0
	for _, res := range report.Files {
		if res.Failed() {
			report.Success = false
		}
	}
	m.SetRunResult(report.Success, report.EndTime)

	r.writeArtifacts(report, m, logger)
	return report, nil
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logging.Nop()
	}
	return r.Logger
}

func (r *Runner) archiveDir() string {
	if r.DryRun {
		return ""
	}
	return r.Config.ArchiveDir
}

func (r *Runner) observe(m *metrics.Metrics, res *converter.Result) {
	status := fileStatus(res)
	m.ObserveFile(res.Collection, status, res.Rows, res.RowErrors, res.Outcome, res.Duration)
	if res.WriteErrors > 0 {
		m.ObserveWriteErrors(res.Collection, res.WriteErrors)
	}
}

// writeArtifacts writes the summary log and the metrics textfile. Failures
// are logged; they do not change the run result.
func (r *Runner) writeArtifacts(report *Report, m *metrics.Metrics, logger logrus.FieldLogger) {
	if r.Config.ReportDir != "" {
		path, err := utils.WriteSummaryLog(report.processingSummary(), r.Config.ReportDir)
		if err != nil {
			logger.Warnf("Failed to write summary log: %v", err)
		} else {
			logger.Infof("Summary written to %s", path)
		}
	}

	if r.Config.MetricsFile != "" {
		if err := m.WriteTextfile(r.Config.MetricsFile); err != nil {
			logger.Warnf("Failed to write metrics: %v", err)
		}
	}
}

// =============================================================================
// SUMMARY OUTPUT
// =============================================================================

// Print writes the human-readable run summary. At most errorCap errors are
// shown per collection.
func (r *Report) Print(w io.Writer, errorCap int) {
	fmt.Fprintln(w, "--- Files ---")
	for _, res := range r.Files {
		fmt.Fprintln(w, FileLine(res))
	}
	if r.Message != "" {
		fmt.Fprintln(w, r.Message)
	}

	fmt.Fprintln(w, "\n--- ETL summary ---")
	for _, name := range r.order {
		s := r.Collections[name]
		fmt.Fprintf(w, "Collection: %s\n", name)
		fmt.Fprintf(w, "- Processed documents: %d\n", s.Processed)
		fmt.Fprintf(w, "- Duplicates: %d\n", s.Duplicates)
		fmt.Fprintf(w, "- Modified: %d\n", s.Modified)
		fmt.Fprintf(w, "- Errors: %d\n", len(s.Errors))
		for i, e := range s.Errors {
			if i == errorCap {
				fmt.Fprintf(w, "  ... and %d more\n", len(s.Errors)-errorCap)
				break
			}
			fmt.Fprintf(w, "  * %s\n", e)
		}
		if s.Error != "" {
			fmt.Fprintf(w, "- General error: %s\n", s.Error)
		}
	}

	status := "SUCCESS"
	if !r.Success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "\nResult: %s\n", status)
}

// FileLine is the one-line outcome of a file.
func FileLine(res *converter.Result) string {
	name := filepath.Base(res.File)
	switch {
	case res.Failed():
		return fmt.Sprintf("%s -> %s: failed: %v", name, res.Collection, res.Err)
	case res.NoData:
		return fmt.Sprintf("%s -> %s: skipped (no data)", name, res.Collection)
	default:
		o := res.Outcome
		return fmt.Sprintf("%s -> %s: %s, inserted %d, modified %d, duplicates %d, errors %d",
			name, res.Collection, res.Strategy, o.Inserted, o.Modified, o.Duplicates, len(o.Errors))
	}
}

func (r *Report) processingSummary() utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		RunID:     r.RunID,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Success:   r.Success,
		Message:   r.Message,
	}
	for _, res := range r.Files {
		f := utils.FileSummary{
			InputFile:   res.File,
			Collection:  res.Collection,
			Status:      fileStatus(res),
			Strategy:    res.Strategy,
			Rows:        res.Rows,
			ArchivePath: r.archived[res.File],
			ProcessTime: res.Duration,
		}
		if res.Outcome != nil {
			f.Inserted = res.Outcome.Inserted
			f.Modified = res.Outcome.Modified
			f.Duplicates = res.Outcome.Duplicates
			f.Errors = res.Outcome.Errors
		}
		if res.Err != nil {
			f.Failure = res.Err.Error()
		}
		summary.Files = append(summary.Files, f)
	}
	return summary
}

func fileStatus(res *converter.Result) string {
	switch {
	case res.Failed():
		return metrics.FileFailed
	case res.NoData:
		return metrics.FileSkipped
	default:
		return metrics.FileLoaded
	}
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}
