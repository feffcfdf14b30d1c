package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers: 0, // auto
			PhotoExtensions: []string{
				".jpg", ".jpeg", ".png", ".tiff", ".tif", ".heic",
			},
			VideoExtensions: []string{
				".mov", ".mp4", ".avi", ".vid",
			},
			SkipDirs: []string{
				".stfolder",       // Syncthing
				".Trashes",        // macOS trash
				".Spotlight-V100", // macOS Spotlight index
				"PRIVATE",         // camera system folder
				"THMBNL",          // Sony thumbnails
			},
		},
		Cluster: ClusterConfig{
			SameDayHours:   12,
			EventMaxDays:   3,
			GeoRadiusKm:    10.0,
			MinEventPhotos: 10,
		},
		Geocoding: GeocodingConfig{
			Enabled:            true,
			Endpoint:           "https://nominatim.openstreetmap.org/reverse",
			MinIntervalSeconds: 1.0,
			TimeoutSeconds:     10,
			MaxRetries:         3,
		},
		Cache: CacheConfig{
			Dir: "~/.cache/snapsort",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Patterns: DefaultPatterns(),
	}
}
