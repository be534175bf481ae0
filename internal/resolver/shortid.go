// Package resolver resolves short plan ID prefixes to full UUIDs so CLI
// users can say `easel log 5f3a21c0` instead of pasting a whole UUID.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/easel/pkg/journal"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
// Set to 6 characters to balance usability with collision avoidance.
const MinShortIDLength = 6

// ResolvePlanID resolves a short ID prefix to a full plan UUID.
// Returns the full UUID if exactly one match is found.
//
// The function handles three cases:
//  1. Input is already a full UUID (36 chars, 4 hyphens) - returned as-is
//  2. Input is too short (< 6 chars) - returns validation error
//  3. Input is a short prefix - scans known plans for a unique match
func ResolvePlanID(ctx context.Context, jnl *journal.Client, shortID string) (string, error) {
	if len(shortID) == 36 && strings.Count(shortID, "-") == 4 {
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	planIDs, err := jnl.ListPlans(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to search for plan: %w", err)
	}

	var matches []string
	for _, id := range planIDs {
		if strings.HasPrefix(id, shortID) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no plans matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no plans found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple plans matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d plans", e.ShortID, len(e.Matches))
}
