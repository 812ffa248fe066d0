package storage

import "testing"

func TestSchemaSQLCreatesRecordedVideosTable(t *testing.T) {
	if !contains(schemaSQL, "CREATE TABLE IF NOT EXISTS recorded_videos") {
		t.Fatal("schema missing recorded_videos table")
	}
	if !contains(schemaSQL, "division_id") {
		t.Fatal("schema missing division_id column")
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
