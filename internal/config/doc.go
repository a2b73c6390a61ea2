// Package config provides centralized configuration management for napsidx.
// It loads configuration from several sources, validates it, and resolves
// the on-disk layout of the archive and its derived artifacts.
//
// # Configuration Sources
//
// Sources are applied in increasing order of precedence:
//
//	1. Default values (Default)
//	2. YAML file (NAPS_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Environment variables, including a .env file when present
//
// # Environment Variables
//
// All environment variables follow the pattern NAPS_<SECTION>_<FIELD>:
//
//	NAPS_LOGGING_LEVEL=debug
//	NAPS_PATHS_DATA_DIR=/srv/naps/data
//	NAPS_ARCHIVE_FIRST_YEAR=2010
//	NAPS_SERVER_PORT=8081
//
// NAPS_DATA_DIR is also honoured as a shorthand for the data root.
//
// # Path Management
//
// Paths is the single source of truth for file locations:
//
//	paths, err := cfg.GetPaths()
//	indexCSV := paths.IndexCSV
//	out := paths.ProcessedCSV(2008, 60104, false)
package config
