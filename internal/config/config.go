// Package config holds the small set of global constants shared across
// the storage engine: default buffer pool size and the names used by
// the CLI. The page size lives in diskfile.PageSize.
package config

// DBName names the engine, used as the default directory/log prefix and
// the CLI prompt.
const DBName = "pagedb"

// Prompt is printed by the CLI when run interactively.
const Prompt = DBName + "> "

// DefaultNumBufs is the number of frames a Manager is given if the CLI
// doesn't override it.
const DefaultNumBufs = 32

// LogFileName is the default name of the engine's diagnostic log file.
const LogFileName = "pagedb.log"

// GetPrompt returns Prompt if requested, else the empty string.
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
