// =============================================================================
// CSV Document Loader - Main Entry Point
// =============================================================================
//
// USAGE:
//   csvload run        - Load all CSV files of the input directory
//   csvload validate   - Validate configuration files without loading
//   csvload inspect    - Show the documents a CSV file would produce
//   csvload clean      - Delete every document of a collection
//   csvload version    - Display the application version
//
// LAYOUT:
//   cmd/           : CLI command definitions (Cobra)
//   internal/      : Parsing, conversion, loading and orchestration
//   pkg/           : Shared file utilities
//   configs/       : Per-collection YAML configurations
//   templates/     : XLSX schema templates
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/csvload/cmd"
)

func main() {
	cmd.Execute()
}
