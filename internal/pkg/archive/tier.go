package archive

import (
	"fmt"
	"strings"
	"time"
)

// Retrieval tiers supported by the archival backend
const (
	TierStandard = "Standard"
	TierBulk     = "Bulk"
)

// Estimated completion times per retrieval tier
const (
	StandardRetrievalTime = 12 * time.Hour
	BulkRetrievalTime     = 48 * time.Hour
)

// NormalizeTier maps a caller-supplied tier name to its canonical form.
// An empty value defaults to Standard.
func NormalizeTier(tier string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "", "standard":
		return TierStandard, nil
	case "bulk":
		return TierBulk, nil
	default:
		return "", fmt.Errorf("unsupported retrieval tier: %s", tier)
	}
}

// EstimatedReady returns the expected availability time for a restore
// started now with the given tier.
func EstimatedReady(tier string, now time.Time) time.Time {
	if tier == TierBulk {
		return now.Add(BulkRetrievalTime)
	}
	return now.Add(StandardRetrievalTime)
}
