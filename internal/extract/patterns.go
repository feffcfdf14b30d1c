package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/runnerr0/snapsort/internal/config"
)

// Pattern is one compiled entry of the filename pattern table.
type Pattern struct {
	Name   string
	Re     *regexp.Regexp
	Groups int
}

// CompileTable compiles an ordered pattern table. The arity contract (3 or 6
// capture groups, matching the declaration) is enforced again here so the
// table cannot be constructed in an invalid state even outside config loading.
func CompileTable(specs []config.PatternSpec) ([]Pattern, error) {
	table := make([]Pattern, 0, len(specs))
	for i, s := range specs {
		if s.Groups != 3 && s.Groups != 6 {
			return nil, fmt.Errorf("pattern %q (index %d): group arity must be 3 or 6, got %d", s.Name, i, s.Groups)
		}
		re, err := regexp.Compile(s.Regexp)
		if err != nil {
			return nil, fmt.Errorf("pattern %q (index %d): %w", s.Name, i, err)
		}
		if re.NumSubexp() != s.Groups {
			return nil, fmt.Errorf("pattern %q (index %d): regexp captures %d groups, declared %d", s.Name, i, re.NumSubexp(), s.Groups)
		}
		table = append(table, Pattern{Name: s.Name, Re: re, Groups: s.Groups})
	}
	return table, nil
}

// MatchTimestamp tries each pattern in order against a file's base name
// (extension stripped) and returns the first valid timestamp. A pattern that
// matches structurally but yields an impossible date (month 13, day 32) is
// treated as non-matching and the search continues.
func MatchTimestamp(table []Pattern, name string) (time.Time, bool) {
	for _, p := range table {
		m := p.Re.FindStringSubmatch(name)
		if m == nil {
			continue
		}

		nums := make([]int, p.Groups)
		ok := true
		for i := 0; i < p.Groups; i++ {
			n, err := strconv.Atoi(m[i+1])
			if err != nil {
				ok = false
				break
			}
			nums[i] = n
		}
		if !ok {
			continue
		}

		var t time.Time
		switch p.Groups {
		case 6:
			t = time.Date(nums[0], time.Month(nums[1]), nums[2], nums[3], nums[4], nums[5], 0, time.Local)
		case 3:
			// Date-only patterns resolve to noon.
			t = time.Date(nums[0], time.Month(nums[1]), nums[2], 12, 0, 0, 0, time.Local)
		}

		if !dateRoundTrips(t, nums) {
			continue
		}
		return t, true
	}
	return time.Time{}, false
}

// dateRoundTrips reports whether the constructed time carries exactly the
// captured components. time.Date normalizes out-of-range values (month 13
// becomes January), so a mismatch means the capture was not a real date.
func dateRoundTrips(t time.Time, nums []int) bool {
	if t.Year() != nums[0] || int(t.Month()) != nums[1] || t.Day() != nums[2] {
		return false
	}
	if len(nums) == 6 {
		return t.Hour() == nums[3] && t.Minute() == nums[4] && t.Second() == nums[5]
	}
	return true
}
