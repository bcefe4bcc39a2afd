// Package cache provides the in-memory query cache fronting the remote photo
// store: one independently-paginated entry per (drive, filter, partition).
// Entries live for the session only; nothing is persisted across restarts.
package cache

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
)

// Partition scopes a cache entry to one calendar month, or to the unbounded
// stream when zero.
type Partition struct {
	Year  int
	Month time.Month
}

// StreamPartition is the unbounded-stream sentinel.
var StreamPartition = Partition{}

// MonthPartition builds the partition for one calendar month.
func MonthPartition(year int, month time.Month) Partition {
	return Partition{Year: year, Month: month}
}

// IsStream reports whether this is the unbounded-stream partition.
func (p Partition) IsStream() bool {
	return p.Year == 0
}

// String renders the partition for keys and logs.
func (p Partition) String() string {
	if p.IsStream() {
		return "stream"
	}
	return strconv.Itoa(p.Year) + "-" + strconv.Itoa(int(p.Month))
}

// Key identifies one cached view partition.
type Key struct {
	Drive     string
	Filter    photo.AlbumFilter
	Partition Partition
}

// String renders a stable key representation for the in-flight guard.
func (k Key) String() string {
	return k.Drive + "|" + k.Filter.String() + "|" + k.Partition.String()
}

// Page is one fetched page plus the cursor to continue from. A nil/empty
// NextCursor means the remote signalled the end of the data.
type Page struct {
	Records    []photo.Record
	NextCursor string
}

// Entry is the cached state of one key: the ordered pages fetched so far and
// whether the remote likely has more.
type Entry struct {
	Pages   []Page
	HasMore bool
}

// Records flattens the entry's pages in fetch order.
func (e Entry) Records() []photo.Record {
	var out []photo.Record
	for _, p := range e.Pages {
		out = append(out, p.Records...)
	}
	return out
}

// Find returns the cached record with the given file id.
func (e Entry) Find(fileID string) (photo.Record, bool) {
	for _, p := range e.Pages {
		for _, r := range p.Records {
			if r.FileID == fileID {
				return r, true
			}
		}
	}
	return photo.Record{}, false
}

// NextCursor returns the cursor to continue the entry from.
func (e Entry) NextCursor() string {
	if len(e.Pages) == 0 {
		return ""
	}
	return e.Pages[len(e.Pages)-1].NextCursor
}

// Store owns the cache-entry map. Every update is atomic per key: readers
// see either the previous or the new page list, never a half-updated one.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
	group   singleflight.Group
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{entries: make(map[Key]*Entry)}
}

// Get returns a snapshot of the entry for key.
func (s *Store) Get(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return snapshot(entry), true
}

// FetchPage appends one page to key's entry, running fetch under a per-page
// in-flight guard: interleaved callers asking for the same next page share a
// single fetch. afterPages is the page count the caller has observed; when
// the entry already moved past it the cached state is returned unchanged. On
// fetch error the entry stays at its last good state.
func (s *Store) FetchPage(key Key, afterPages int, fetch func(nextCursor string) (Page, bool, error)) (Entry, error) {
	flight := key.String() + "#" + strconv.Itoa(afterPages)
	v, err, _ := s.group.Do(flight, func() (interface{}, error) {
		s.mu.RLock()
		var cursor string
		var have int
		if entry, ok := s.entries[key]; ok {
			have = len(entry.Pages)
			cursor = entry.NextCursor()
			if have > afterPages {
				snap := snapshot(entry)
				s.mu.RUnlock()
				return snap, nil
			}
		}
		s.mu.RUnlock()

		page, hasMore, err := fetch(cursor)
		if err != nil {
			return nil, err
		}
		return s.append(key, page, hasMore), nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

// append stores a page, dropping records already cached for the key so that
// re-fetching a page never duplicates entries.
func (s *Store) append(key Key, page Page, hasMore bool) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		entry = &Entry{}
		s.entries[key] = entry
	}

	known := make(map[string]struct{})
	for _, p := range entry.Pages {
		for _, r := range p.Records {
			known[r.FileID] = struct{}{}
		}
	}
	records := make([]photo.Record, 0, len(page.Records))
	for _, r := range page.Records {
		if _, dup := known[r.FileID]; dup {
			continue
		}
		records = append(records, r)
	}

	entry.Pages = append(entry.Pages, Page{Records: records, NextCursor: page.NextCursor})
	entry.HasMore = hasMore
	return snapshot(entry)
}

// Invalidate drops the entry for key.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// InvalidateMatching drops every entry whose key matches the predicate.
func (s *Store) InvalidateMatching(match func(Key) bool) {
	s.mu.Lock()
	for key := range s.entries {
		if match(key) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

// FindRecord searches every entry of a drive for a file id.
func (s *Store) FindRecord(drive, fileID string) (photo.Record, Key, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, entry := range s.entries {
		if key.Drive != drive {
			continue
		}
		if r, ok := entry.Find(fileID); ok {
			return r, key, true
		}
	}
	return photo.Record{}, Key{}, false
}

// RemoveRecord strips a record from every entry of the drive whose key
// matches the predicate. Used by mutations for which removal correctness is
// required.
func (s *Store) RemoveRecord(drive, fileID string, match func(Key) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if key.Drive != drive || !match(key) {
			continue
		}
		for i, page := range entry.Pages {
			filtered := make([]photo.Record, 0, len(page.Records))
			for _, r := range page.Records {
				if r.FileID != fileID {
					filtered = append(filtered, r)
				}
			}
			entry.Pages[i] = Page{Records: filtered, NextCursor: page.NextCursor}
		}
	}
}

// UpdateRecord rewrites a record wherever it is cached on the drive.
func (s *Store) UpdateRecord(drive string, updated photo.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if key.Drive != drive {
			continue
		}
		for i, page := range entry.Pages {
			for j, r := range page.Records {
				if r.FileID == updated.FileID {
					records := append([]photo.Record(nil), page.Records...)
					records[j] = updated
					entry.Pages[i] = Page{Records: records, NextCursor: page.NextCursor}
				}
			}
		}
	}
}

// InsertRecord places a record into key's entry at its approximate
// chronological position. Best effort only: with partially loaded pages the
// exact slot may not be cached yet, so membership is what's guaranteed, not
// position.
func (s *Store) InsertRecord(key Key, record photo.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return
	}
	if _, dup := entry.Find(record.FileID); dup {
		return
	}
	for i, page := range entry.Pages {
		for j, r := range page.Records {
			if photo.Less(record, r) {
				records := append([]photo.Record(nil), page.Records[:j]...)
				records = append(records, record)
				records = append(records, page.Records[j:]...)
				entry.Pages[i] = Page{Records: records, NextCursor: page.NextCursor}
				return
			}
		}
	}
	// older than everything cached; only append when the entry is complete
	if !entry.HasMore && len(entry.Pages) > 0 {
		last := len(entry.Pages) - 1
		page := entry.Pages[last]
		records := append(append([]photo.Record(nil), page.Records...), record)
		entry.Pages[last] = Page{Records: records, NextCursor: page.NextCursor}
	}
}

// snapshot copies the page list so callers never observe later appends.
func snapshot(entry *Entry) Entry {
	return Entry{
		Pages:   append([]Page(nil), entry.Pages...),
		HasMore: entry.HasMore,
	}
}
