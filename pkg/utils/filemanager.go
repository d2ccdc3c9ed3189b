// =============================================================================
// CSV Document Loader - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the loader, including:
//   - Input file discovery
//   - Archival of loaded files
//   - The run summary log
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to the archive after a successful load
//   - An archived file is never overwritten; a name clash gets a timestamp
//     suffix (and a counter if that is taken too)
//   - Failed and skipped files remain in their original location
//   - Summary logs are written to the report directory
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the loader.
type FileManager struct {
	// InputDir is the directory where input files are placed.
	InputDir string

	// ArchiveDir is the directory for archived input files. Empty disables
	// archival.
	ArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: archive/2024/01/15/empleados.csv
	UseTimestampSubdirs bool

	// now is replaced in tests.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, archiveDir string) *FileManager {
	return &FileManager{
		InputDir:   inputDir,
		ArchiveDir: archiveDir,
		now:        time.Now,
	}
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching the pattern.
//
// PARAMETERS:
//   - pattern: A glob pattern to match files (e.g., "*.csv").
//              If empty, defaults to "*.csv".
//
// RETURNS:
//   - The matching regular files, sorted by name.
//   - An error if the pattern is malformed.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.csv"
	}

	files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			result = append(result, file)
		}
	}

	sort.Strings(result)
	return result, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file (filePath itself when archival is off).
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if fm.ArchiveDir == "" {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath, err := fm.freeArchivePath(archivePath)
	if err != nil {
		return "", err
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// If rename fails (e.g., cross-device), try copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := fm.clock()
		return filepath.Join(
			fm.ArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}

	return filepath.Join(fm.ArchiveDir, fileName)
}

// freeArchivePath returns archivePath if nothing exists there, otherwise the
// first of name_<timestamp>.ext, name_<timestamp>_2.ext, ... that is free.
func (fm *FileManager) freeArchivePath(archivePath string) (string, error) {
	candidate := archivePath
	ext := filepath.Ext(archivePath)
	base := strings.TrimSuffix(archivePath, ext) + "_" + fm.clock().Format("20060102_150405")

	for n := 1; ; n++ {
		_, err := os.Lstat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check archive path: %w", err)
		}

		if n == 1 {
			candidate = base + ext
		} else {
			candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
	}
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a run.
type ProcessingSummary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
	Message   string
	Files     []FileSummary
}

// FileSummary describes the processing of one input file.
type FileSummary struct {
	InputFile   string
	Collection  string
	Status      string
	Strategy    string
	Rows        int
	Inserted    int
	Modified    int
	Duplicates  int
	Errors      []string
	Failure     string
	ArchivePath string
	ProcessTime time.Duration
}

// WriteSummaryLog writes a run summary to a text file. Unlike the console
// summary it lists every recorded error.
//
// PARAMETERS:
//   - summary: The run summary.
//   - outputDir: The directory to write the summary file (created if needed).
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	summaryFileName := fmt.Sprintf("etl_summary_%s.txt", summary.StartTime.Format("20060102_150405"))
	if len(summary.RunID) >= 8 {
		summaryFileName = fmt.Sprintf("etl_summary_%s_%s.txt", summary.StartTime.Format("20060102_150405"), summary.RunID[:8])
	}
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writeSummary(writer, summary)

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

func writeSummary(w io.Writer, summary ProcessingSummary) {
	loaded, failed := 0, 0
	for _, f := range summary.Files {
		if f.Failure != "" {
			failed++
		} else {
			loaded++
		}
	}

	fmt.Fprintf(w, "CSV Document Loader - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Success:        %t\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		summary.Success)
	if summary.Message != "" {
		fmt.Fprintf(w, "  Message:        %s\n", summary.Message)
	}
	fmt.Fprintf(w, "\nStatistics:\n"+
		"  Total Files:    %d\n"+
		"  Processed:      %d\n"+
		"  Failed:         %d\n\n",
		len(summary.Files), loaded, failed)

	if len(summary.Files) > 0 {
		fmt.Fprintf(w, "Files:\n")
		fmt.Fprintf(w, "--------------------------------------------------------------------------------\n")
	}
	for _, f := range summary.Files {
		fmt.Fprintf(w, "  Input:        %s\n", f.InputFile)
		fmt.Fprintf(w, "  Collection:   %s\n", f.Collection)
		fmt.Fprintf(w, "  Status:       %s\n", f.Status)
		if f.Strategy != "" {
			fmt.Fprintf(w, "  Strategy:     %s\n", f.Strategy)
		}
		fmt.Fprintf(w, "  Rows:         %d\n", f.Rows)
		fmt.Fprintf(w, "  Inserted:     %d\n", f.Inserted)
		fmt.Fprintf(w, "  Modified:     %d\n", f.Modified)
		fmt.Fprintf(w, "  Duplicates:   %d\n", f.Duplicates)
		if f.ArchivePath != "" {
			fmt.Fprintf(w, "  Archived to:  %s\n", f.ArchivePath)
		}
		fmt.Fprintf(w, "  Process Time: %s\n", f.ProcessTime.String())
		if f.Failure != "" {
			fmt.Fprintf(w, "  Failure:      %s\n", f.Failure)
		}
		if len(f.Errors) > 0 {
			fmt.Fprintf(w, "  Errors (%d):\n", len(f.Errors))
			for _, e := range f.Errors {
				fmt.Fprintf(w, "    - %s\n", e)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "================================================================================\n"+
		"End of Summary\n")
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
