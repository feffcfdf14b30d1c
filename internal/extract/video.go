package extract

import (
	"encoding/json"
	"os/exec"
	"time"
)

// videoTimeFunc reads the embedded creation time of a video container.
// Injectable so tests do not need ffprobe on the PATH.
type videoTimeFunc func(path string) (time.Time, bool)

// creationTimeLayouts covers the creation_time variants containers carry in
// the wild: ISO with fractional seconds, plain ISO, and space-separated.
var creationTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// ffprobeFormat mirrors the format block of ffprobe's JSON output.
type ffprobeFormat struct {
	Format struct {
		Tags struct {
			CreationTime string `json:"creation_time"`
		} `json:"tags"`
	} `json:"format"`
}

// ffprobeCreationTime shells out to ffprobe for the container-level
// creation_time tag. A missing ffprobe binary, an unreadable container, or
// an absent tag all mean no embedded metadata, never an error.
func ffprobeCreationTime(path string) (time.Time, bool) {
	out, err := exec.Command("ffprobe",
		"-v", "quiet", "-print_format", "json", "-show_format", path).Output()
	if err != nil {
		return time.Time{}, false
	}
	return parseCreationTime(out)
}

// parseCreationTime extracts and parses creation_time from ffprobe JSON.
func parseCreationTime(out []byte) (time.Time, bool) {
	var probe ffprobeFormat
	if err := json.Unmarshal(out, &probe); err != nil {
		return time.Time{}, false
	}
	raw := probe.Format.Tags.CreationTime
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range creationTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
