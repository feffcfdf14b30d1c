package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/runnerr0/snapsort/internal/media"
	"github.com/runnerr0/snapsort/internal/pipeline"
	"github.com/runnerr0/snapsort/internal/snapshot"
)

// scanJSON is the JSON output structure for the scan command.
type scanJSON struct {
	Source     string              `json:"source"`
	FromCache  bool                `json:"from_cache"`
	Files      int                 `json:"files"`
	Photos     int                 `json:"photos"`
	Videos     int                 `json:"videos"`
	GPSTagged  int                 `json:"gps_tagged"`
	Duplicates int                 `json:"duplicates"`
	Events     int                 `json:"events"`
	Ungrouped  int                 `json:"ungrouped"`
	Errors     []media.FileError   `json:"errors,omitempty"`
	Groups     map[string][]string `json:"groups"`
	DurationMS int64               `json:"duration_ms"`
}

// Execute implements the go-flags Commander interface for ScanCommand.
func (c *ScanCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Workers > 0 {
		cfg.Scan.Workers = c.Workers
	}
	if c.NoGeocode {
		cfg.Geocoding.Enabled = false
	}

	log, err := buildLogger(cfg, c.globals != nil && c.globals.Verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	snapDir, err := snapshotDirFor(cfg)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	pipe, err := pipeline.New(cfg, snapshot.NewStore(snapDir), store, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := pipe.Run(ctx, c.Args.Source, c.Refresh)
	if err != nil {
		if ctx.Err() != nil && res != nil {
			log.Warn("scan interrupted, partial progress saved",
				zap.Int("files", len(res.Records)))
		}
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(res)
	}
	return c.printHuman(res)
}

func (c *ScanCommand) printHuman(res *pipeline.Result) error {
	folders := sortedFolders(res.Groups)

	for _, folder := range folders {
		fmt.Printf("%s  (%s)\n", folder, describeMembers(res.Groups[folder]))
	}
	if un, ok := res.Groups[media.UngroupedBucket]; ok {
		fmt.Printf("%s  (%s)\n", media.UngroupedBucket, describeMembers(un))
	}

	photos, videos, tagged := tally(res.Records)

	fmt.Println()
	fmt.Printf("Files:       %d (%d photos, %d videos)\n", len(res.Records), photos, videos)
	fmt.Printf("GPS:         %d/%d files\n", tagged, len(res.Records))
	fmt.Printf("Duplicates:  %d\n", res.Duplicates)
	fmt.Printf("Events:      %d\n", res.EventCount())
	if places := topPlaces(res.Records, 3); len(places) > 0 {
		fmt.Printf("Places:      %s\n", strings.Join(places, ", "))
	}
	if res.FromCache {
		fmt.Println("Source:      snapshot cache")
	} else {
		fmt.Printf("Geocoding:   %d requests, %d cache hits, %d unresolved\n",
			res.Geocode.Requests, res.Geocode.CacheHits+res.Geocode.StoreHits, res.Geocode.Unresolved)
	}
	if len(res.Errors) > 0 {
		fmt.Printf("Errors:      %d\n", len(res.Errors))
		for _, fe := range res.Errors {
			fmt.Printf("  %s: %s\n", fe.Path, fe.Err)
		}
	}
	fmt.Printf("Duration:    %s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return nil
}

// describeMembers summarizes one folder for the preview line: counts plus the
// time range the members span.
func describeMembers(members []*media.Record) string {
	photos := 0
	videos := 0
	for _, m := range members {
		if m.IsVideo {
			videos++
		} else {
			photos++
		}
	}

	desc := fmt.Sprintf("%d photos", photos)
	if videos > 0 {
		desc += fmt.Sprintf(", %d videos", videos)
	}
	if len(members) > 0 {
		first := members[0].Timestamp
		last := members[len(members)-1].Timestamp
		if first.Format("15:04") != last.Format("15:04") {
			desc += fmt.Sprintf(", %s - %s", first.Format("15:04"), last.Format("15:04"))
		}
	}
	return desc
}

// tally counts photos, videos, and GPS-tagged records.
func tally(records []*media.Record) (photos, videos, tagged int) {
	for _, r := range records {
		if r.IsVideo {
			videos++
		} else {
			photos++
		}
		if r.GPS != nil {
			tagged++
		}
	}
	return photos, videos, tagged
}

// topPlaces returns the most frequent place names as "Name (count)" strings,
// ties broken by first occurrence.
func topPlaces(records []*media.Record, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		if !r.HasPlace() {
			continue
		}
		if _, seen := counts[r.PlaceName]; !seen {
			order = append(order, r.PlaceName)
		}
		counts[r.PlaceName]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	out := make([]string, len(order))
	for i, name := range order {
		out[i] = fmt.Sprintf("%s (%d)", name, counts[name])
	}
	return out
}

func (c *ScanCommand) printJSON(res *pipeline.Result) error {
	photos, videos, tagged := tally(res.Records)
	out := scanJSON{
		Source:     res.SourceIdentity,
		FromCache:  res.FromCache,
		Files:      len(res.Records),
		Photos:     photos,
		Videos:     videos,
		GPSTagged:  tagged,
		Duplicates: res.Duplicates,
		Events:     res.EventCount(),
		Errors:     res.Errors,
		Groups:     make(map[string][]string, len(res.Groups)),
		DurationMS: res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	}
	for folder, recs := range res.Groups {
		paths := make([]string, len(recs))
		for i, r := range recs {
			paths[i] = r.Path
		}
		out.Groups[folder] = paths
	}
	out.Ungrouped = len(res.Groups[media.UngroupedBucket])

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// sortedFolders returns the event folder names in lexical order, which for
// the date-prefixed naming scheme is also chronological order. The ungrouped
// bucket is excluded so callers can print it last.
func sortedFolders(groups media.EventGroups) []string {
	folders := make([]string, 0, len(groups))
	for folder := range groups {
		if folder == media.UngroupedBucket {
			continue
		}
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders
}
