// Copyright (c) 2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
package provider

// In this file: the limit expression micro-language.

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LimitKind discriminates the three forms of a limit expression.
type LimitKind uint8

const (
	// LimitCount is an absolute item count, e.g. "50".
	LimitCount LimitKind = iota
	// LimitWindow is a relative time window, e.g. "1d", "2w", "1m", "1q".
	LimitWindow
	// LimitCursor is an opaque continuation cursor from a prior page.
	LimitCursor
)

// Limit is a parsed limit expression.  Exactly the fields relevant to
// Kind are set.
type Limit struct {
	Kind   LimitKind
	Count  int
	Oldest time.Time
	Latest time.Time
	Cursor string
}

// DefHistoryLimit is the default history limit expression.
const DefHistoryLimit = "1d"

// windowCount is the page size used when a time window is requested.
const windowCount = 100

var (
	countRe  = regexp.MustCompile(`^\d+$`)
	windowRe = regexp.MustCompile(`^(\d+)([dwmq])$`)
)

// timeNow is a variable to allow tests to pin the clock.
var timeNow = time.Now

// ParseLimit translates a limit expression into pagination parameters.
// Numeric-looking strings are always counts (clamped to [minCount,
// maxCount]); a digit run with a d/w/m/q suffix is a relative window
// ending now; anything else must be a base64 continuation cursor, which is
// passed through unvalidated — the remote service is authoritative on
// cursor validity.  The empty expression defaults to [DefHistoryLimit].
func ParseLimit(raw string, minCount, maxCount int) (Limit, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefHistoryLimit
	}

	if countRe.MatchString(raw) {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Limit{}, &InvalidLimitError{Value: raw}
		}
		return Limit{Kind: LimitCount, Count: max(min(n, maxCount), minCount)}, nil
	}

	if m := windowRe.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n == 0 {
			return Limit{}, &InvalidLimitError{Value: raw}
		}
		now := timeNow().UTC()
		startOfToday := now.Truncate(24 * time.Hour)
		var oldest time.Time
		switch m[2] {
		case "d":
			oldest = startOfToday.AddDate(0, 0, -(n - 1))
		case "w":
			oldest = startOfToday.AddDate(0, 0, -n*7+1)
		case "m":
			oldest = startOfToday.AddDate(0, 0, -n*30)
		case "q":
			oldest = startOfToday.AddDate(0, 0, -n*90)
		}
		return Limit{Kind: LimitWindow, Count: windowCount, Oldest: oldest, Latest: now}, nil
	}

	if _, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return Limit{Kind: LimitCursor, Cursor: raw}, nil
	}

	return Limit{}, &InvalidLimitError{Value: raw}
}
