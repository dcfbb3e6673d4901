package archive

import (
	"strings"
	"time"
)

// RestoreStatus is the parsed form of the x-amz-restore header returned
// by HeadObject. A nil Ongoing means no restore has ever been requested.
type RestoreStatus struct {
	Ongoing *bool
	Expiry  *time.Time
}

// ParseRestoreHeader parses an x-amz-restore header value, e.g.
//
//	ongoing-request="true"
//	ongoing-request="false", expiry-date="Fri, 21 Dec 2012 00:00:00 GMT"
func ParseRestoreHeader(header string) RestoreStatus {
	var status RestoreStatus
	if header == "" {
		return status
	}

	for _, part := range splitHeaderParts(header) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)

		switch key {
		case "ongoing-request":
			ongoing := value == "true"
			status.Ongoing = &ongoing
		case "expiry-date":
			if t, err := time.Parse(time.RFC1123, value); err == nil {
				utc := t.UTC()
				status.Expiry = &utc
			}
		}
	}
	return status
}

// splitHeaderParts splits on commas outside of quoted values, since the
// expiry-date value itself contains a comma.
func splitHeaderParts(header string) []string {
	var parts []string
	var sb strings.Builder
	inQuotes := false
	for _, r := range header {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			sb.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}
