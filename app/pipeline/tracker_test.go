package pipeline

import (
	"testing"
	"time"

	"github.com/okhotin/pagepress/app/storage"
)

func TestTracker_ShouldSkip(t *testing.T) {
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracker := NewTracker(map[string]string{
		"ex.com/h1/page.html": "2024-01-01T00:00:00Z",
	})

	tests := []struct {
		name string
		obj  storage.Object
		skip bool
	}{
		{
			"exact timestamp match",
			storage.Object{Key: "ex.com/h1/page.html", LastModified: modified},
			true,
		},
		{
			"newer timestamp",
			storage.Object{Key: "ex.com/h1/page.html", LastModified: modified.Add(time.Second)},
			false,
		},
		{
			"older timestamp",
			storage.Object{Key: "ex.com/h1/page.html", LastModified: modified.Add(-time.Second)},
			false,
		},
		{
			"unknown path",
			storage.Object{Key: "ex.com/h2/page.html", LastModified: modified},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tracker.ShouldSkip(tt.obj); got != tt.skip {
				t.Errorf("Expected skip=%v, got %v", tt.skip, got)
			}
		})
	}
}

func TestTracker_NonUTCTimestampNormalized(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	tracker := NewTracker(map[string]string{
		"ex.com/h1/page.html": "2024-01-01T00:00:00Z",
	})

	// Same instant expressed in a different zone must still match
	obj := storage.Object{
		Key:          "ex.com/h1/page.html",
		LastModified: time.Date(2024, 1, 1, 1, 0, 0, 0, loc),
	}
	if !tracker.ShouldSkip(obj) {
		t.Error("Expected identical instants to match regardless of zone")
	}
}

func TestTracker_NilIndex(t *testing.T) {
	tracker := NewTracker(nil)

	obj := storage.Object{Key: "ex.com/h1/page.html", LastModified: time.Now()}
	if tracker.ShouldSkip(obj) {
		t.Error("Empty index must never skip")
	}
}
