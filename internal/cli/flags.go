package cli

import "database/sql"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ScanCommand — scan a collection and report its event grouping.
type ScanCommand struct {
	Refresh   bool `long:"refresh" description:"Ignore any cached snapshot and rescan from disk"`
	NoGeocode bool `long:"no-geocode" description:"Skip reverse geocoding for this run"`
	Workers   int  `long:"workers" description:"Override scan worker count (0 = auto)"`

	Args struct {
		Source string `positional-arg-name:"SOURCE" description:"Collection directory to scan" required:"yes"`
	} `positional-args:"yes"`

	globals *GlobalFlags
	version string
}

// StatusCommand — show cache health, run history, and database stats.
type StatusCommand struct {
	Runs int `long:"runs" description:"Number of recent runs to list" default:"5"`

	globals *GlobalFlags
	version string
}

// PurgeCommand — delete all cached snapshots and location data with safety
// confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	db      *sql.DB // injectable for testing; nil means open default DB
}
