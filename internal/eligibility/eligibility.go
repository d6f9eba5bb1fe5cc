// Package eligibility decides which listing items can actually be played and removes duplicates.
//
// Every function is pure: inputs are never modified and results preserve input order.
package eligibility

import (
	"strings"

	"github.com/desertthunder/pagewalk/internal/models"
)

// Reason names the first eligibility rule an item failed.
type Reason int

const (
	Eligible Reason = iota
	NotStreamable
	NoStreamURL
	GeoBlocked
	RestrictedAccess
)

func (r Reason) String() string {
	switch r {
	case Eligible:
		return "eligible"
	case NotStreamable:
		return "not_streamable"
	case NoStreamURL:
		return "no_stream_url"
	case GeoBlocked:
		return "geo_blocked"
	case RestrictedAccess:
		return "restricted_access"
	default:
		return "unknown"
	}
}

// Check applies the rules in order and returns the first one that fails, or [Eligible].
func Check(item models.Item) Reason {
	switch {
	case !item.Streamable:
		return NotStreamable
	case item.StreamURL == "":
		return NoStreamURL
	case strings.EqualFold(item.Policy, "BLOCK"):
		return GeoBlocked
	case strings.EqualFold(item.Access, "blocked"), strings.EqualFold(item.Access, "preview"):
		return RestrictedAccess
	}
	return Eligible
}

// IsEligible reports whether item passes every rule.
func IsEligible(item models.Item) bool {
	return Check(item) == Eligible
}

// FilterEligible returns the eligible items in their original order.
func FilterEligible(items []models.Item) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if IsEligible(item) {
			out = append(out, item)
		}
	}
	return out
}

// Deduplicate keeps the first occurrence of each item ID.
func Deduplicate(items []models.Item) []models.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// FilterAndDeduplicate filters first, then deduplicates.
func FilterAndDeduplicate(items []models.Item) []models.Item {
	return Deduplicate(FilterEligible(items))
}

// Tally counts items per [Reason].
func Tally(items []models.Item) map[Reason]int {
	counts := make(map[Reason]int)
	for _, item := range items {
		counts[Check(item)]++
	}
	return counts
}
