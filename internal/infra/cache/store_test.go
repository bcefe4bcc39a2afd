package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
)

var testKey = Key{
	Drive:     "drive1",
	Filter:    photo.AlbumFilter{},
	Partition: MonthPartition(2024, time.May),
}

func record(id string, date int64) photo.Record {
	return photo.Record{FileID: id, Created: date}
}

func TestStore_FetchPage_AppendsAndTracksCursor(t *testing.T) {
	store := NewStore()

	entry, err := store.FetchPage(testKey, 0, func(cursor string) (Page, bool, error) {
		if cursor != "" {
			t.Errorf("Expected empty cursor on first page, got %q", cursor)
		}
		return Page{Records: []photo.Record{record("a", 100)}, NextCursor: "c1"}, true, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entry.Pages) != 1 || !entry.HasMore {
		t.Fatalf("Expected one page with more, got %+v", entry)
	}

	entry, err = store.FetchPage(testKey, 1, func(cursor string) (Page, bool, error) {
		if cursor != "c1" {
			t.Errorf("Expected continuation cursor c1, got %q", cursor)
		}
		return Page{Records: []photo.Record{record("b", 90)}, NextCursor: "c2"}, false, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entry.Pages) != 2 || entry.HasMore {
		t.Fatalf("Expected two pages without more, got %+v", entry)
	}
	if got := entry.Records(); len(got) != 2 || got[0].FileID != "a" || got[1].FileID != "b" {
		t.Errorf("Expected flattened records [a b], got %+v", got)
	}
}

func TestStore_FetchPage_SkipsAlreadyFetched(t *testing.T) {
	store := NewStore()

	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100)}}, false, nil
	})

	called := false
	entry, err := store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		called = true
		return Page{}, false, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if called {
		t.Error("Expected fetch skipped when the page is already cached")
	}
	if len(entry.Pages) != 1 {
		t.Errorf("Expected cached entry returned, got %+v", entry)
	}
}

func TestStore_FetchPage_DeduplicatesRecords(t *testing.T) {
	store := NewStore()

	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100), record("b", 90)}, NextCursor: "c1"}, true, nil
	})
	entry, _ := store.FetchPage(testKey, 1, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("b", 90), record("c", 80)}}, false, nil
	})

	if got := entry.Records(); len(got) != 3 {
		t.Errorf("Expected 3 unique records, got %d", len(got))
	}
}

func TestStore_FetchPage_ErrorLeavesLastGoodState(t *testing.T) {
	store := NewStore()

	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100)}, NextCursor: "c1"}, true, nil
	})

	wantErr := errors.New("network down")
	_, err := store.FetchPage(testKey, 1, func(string) (Page, bool, error) {
		return Page{}, false, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected fetch error surfaced, got %v", err)
	}

	entry, ok := store.Get(testKey)
	if !ok || len(entry.Pages) != 1 || !entry.HasMore {
		t.Errorf("Expected entry at last good state, got %+v (ok=%v)", entry, ok)
	}
}

func TestStore_FetchPage_ConcurrentCallersShareOneFetch(t *testing.T) {
	store := NewStore()

	var mu sync.Mutex
	fetches := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
				mu.Lock()
				fetches++
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				return Page{Records: []photo.Record{record("a", 100)}}, false, nil
			})
		}()
	}
	wg.Wait()

	entry, _ := store.Get(testKey)
	if len(entry.Records()) != 1 {
		t.Errorf("Expected no duplicate pages, got %d records", len(entry.Records()))
	}
	if fetches > 2 {
		t.Errorf("Expected overlapping fetches collapsed, got %d", fetches)
	}
}

func TestStore_Invalidate(t *testing.T) {
	store := NewStore()
	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100)}}, false, nil
	})

	store.Invalidate(testKey)

	if _, ok := store.Get(testKey); ok {
		t.Error("Expected entry dropped")
	}
}

func TestStore_RemoveRecord_OnlyMatchingKeys(t *testing.T) {
	store := NewStore()
	binKey := Key{Drive: "drive1", Filter: photo.AlbumFilter{Kind: photo.ViewBin}, Partition: StreamPartition}

	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100), record("b", 90)}}, false, nil
	})
	_, _ = store.FetchPage(binKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100)}}, false, nil
	})

	store.RemoveRecord("drive1", "a", func(k Key) bool { return k.Filter.Kind != photo.ViewBin })

	entry, _ := store.Get(testKey)
	if _, found := entry.Find("a"); found {
		t.Error("Expected record removed from the matching view")
	}
	binEntry, _ := store.Get(binKey)
	if _, found := binEntry.Find("a"); !found {
		t.Error("Expected bin view untouched")
	}
}

func TestStore_InsertRecord_ChronologicalPosition(t *testing.T) {
	store := NewStore()
	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100), record("c", 80)}}, false, nil
	})

	store.InsertRecord(testKey, record("b", 90))

	entry, _ := store.Get(testKey)
	got := entry.Records()
	if len(got) != 3 || got[0].FileID != "a" || got[1].FileID != "b" || got[2].FileID != "c" {
		t.Errorf("Expected [a b c], got %+v", got)
	}

	// duplicate insert is a no-op
	store.InsertRecord(testKey, record("b", 90))
	entry, _ = store.Get(testKey)
	if len(entry.Records()) != 3 {
		t.Errorf("Expected duplicate insert ignored, got %d records", len(entry.Records()))
	}
}

func TestStore_InsertRecord_OlderThanCacheNeedsCompleteEntry(t *testing.T) {
	store := NewStore()
	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100)}, NextCursor: "c1"}, true, nil
	})

	// entry has more pages remotely; the true slot is unknown, so skip
	store.InsertRecord(testKey, record("z", 10))
	entry, _ := store.Get(testKey)
	if len(entry.Records()) != 1 {
		t.Errorf("Expected insert skipped on incomplete entry, got %d records", len(entry.Records()))
	}
}

func TestStore_UpdateRecord(t *testing.T) {
	store := NewStore()
	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100)}}, false, nil
	})

	updated := record("a", 100)
	updated.Tags = []string{"t1"}
	store.UpdateRecord("drive1", updated)

	entry, _ := store.Get(testKey)
	r, _ := entry.Find("a")
	if !r.HasTag("t1") {
		t.Error("Expected record rewritten with new tags")
	}
}

func TestStore_FindRecord(t *testing.T) {
	store := NewStore()
	_, _ = store.FetchPage(testKey, 0, func(string) (Page, bool, error) {
		return Page{Records: []photo.Record{record("a", 100)}}, false, nil
	})

	r, key, ok := store.FindRecord("drive1", "a")
	if !ok || r.FileID != "a" || key != testKey {
		t.Errorf("Expected record found under %v, got %v %v %v", testKey, r, key, ok)
	}

	if _, _, ok := store.FindRecord("drive1", "missing"); ok {
		t.Error("Expected miss for unknown id")
	}
}
