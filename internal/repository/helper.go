package repository

import (
	"database/sql"
	"fmt"
	"time"
)

// ParseTime parses a date string in "2006-01-02", RFC3339, or SQLite
// datetime format. Note: mirrors validation.ParseTime; both are intentionally
// kept local to avoid cross-layer imports.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, str); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %q", str)
}

// formatDate renders a time for storage in a date column.
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// formatDatePtr renders a nullable date for storage, nil when absent.
func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

// scanDatePtr parses a nullable date column into a *time.Time.
func scanDatePtr(str sql.NullString) (*time.Time, error) {
	if !str.Valid || str.String == "" {
		return nil, nil
	}
	parsed, err := ParseTime(str.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// formatTimestamp renders a full timestamp for storage in a created_at /
// updated_at column.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
