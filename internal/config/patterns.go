package config

// DefaultPatterns returns the built-in filename pattern table. Patterns are
// tried in this order; the first structural match wins. Six-group patterns
// carry a full timestamp, three-group patterns a bare date (time resolves to
// noon), so the full-timestamp forms come first.
func DefaultPatterns() []PatternSpec {
	return []PatternSpec{
		// 2024-06-19 14.30.25 / 2024-06-19 14-30-25 / 2024-06-19 14:30:25
		{
			Name:   "iso-datetime-space",
			Regexp: `(\d{4})-(\d{2})-(\d{2})\s+(\d{2})[.\-:](\d{2})[.\-:](\d{2})`,
			Groups: 6,
		},
		// 2024-06-19_14.30.25 and separator variants
		{
			Name:   "iso-datetime-underscore",
			Regexp: `(\d{4})-(\d{2})-(\d{2})_(\d{2})[.\-:](\d{2})[.\-:](\d{2})`,
			Groups: 6,
		},
		// 20240619_143025, also matches IMG_20240619_143025 camera names
		{
			Name:   "compact-datetime",
			Regexp: `(\d{4})(\d{2})(\d{2})_(\d{2})(\d{2})(\d{2})`,
			Groups: 6,
		},
		// signal-2024-06-19-143025
		{
			Name:   "signal",
			Regexp: `signal-(\d{4})-(\d{2})-(\d{2})-(\d{2})(\d{2})(\d{2})`,
			Groups: 6,
		},
		// Screenshot_2024-06-19-14-30-25
		{
			Name:   "screenshot",
			Regexp: `Screenshot_(\d{4})-(\d{2})-(\d{2})-(\d{2})-(\d{2})-(\d{2})`,
			Groups: 6,
		},
		// 2024-06-19 (date only)
		{
			Name:   "iso-date",
			Regexp: `(\d{4})-(\d{2})-(\d{2})`,
			Groups: 3,
		},
		// 20240619 anywhere in the name; covers WhatsApp IMG-20240619-WA0001
		{
			Name:   "compact-date",
			Regexp: `(\d{4})(\d{2})(\d{2})`,
			Groups: 3,
		},
	}
}
