// Package timeline implements the paged photo views of the library: month
// partitions and the unbounded stream, sibling and range resolution across
// partition boundaries, and cache synchronization for mutations.
package timeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/homebase-id/photo-library-backend/internal/domain/library"
	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
	"github.com/homebase-id/photo-library-backend/internal/infra/cache"
)

// PageSize is the fixed request size for every page fetch.
const PageSize = 100

// maxMonthPages caps how many pages a single month is allowed to span, as a
// guard against a remote that never stops returning full pages.
const maxMonthPages = 50

// Query is one page request against the remote store.
type Query struct {
	Drive       photo.Drive
	Filter      photo.AlbumFilter
	Cursor      string
	PageSize    int
	OldestFirst bool
}

// QueryResult is one page of records plus the continuation cursor. An empty
// cursor signals no more data.
type QueryResult struct {
	Records    []photo.Record
	NextCursor string
}

// Patch is the header mutation sent to the remote store for one record.
type Patch struct {
	ArchivalState *photo.ArchivalState
	AddTags       []string
	RemoveTags    []string
}

// RecordStore is the remote query/mutation surface the timeline depends on.
// Pages come back in descending effective-date order.
type RecordStore interface {
	QueryPage(ctx context.Context, q Query) (QueryResult, error)
	GetRecord(ctx context.Context, drive photo.Drive, fileID string) (photo.Record, error)
	UpdateRecord(ctx context.Context, drive photo.Drive, fileID string, patch Patch) (photo.Record, error)
}

// Service supplies the paged, cache-fronted photo views to the UI layer.
type Service struct {
	store   RecordStore
	cache   *cache.Store
	library *library.Service
}

// NewService creates a new timeline service on top of the given record
// store, cache store, and library index service.
func NewService(store RecordStore, cacheStore *cache.Store, libraryService *library.Service) *Service {
	return &Service{
		store:   store,
		cache:   cacheStore,
		library: libraryService,
	}
}

// MonthPhotos returns the loaded records of one calendar month, newest
// first, fetching the first page when the partition is empty. The second
// return reports whether the remote likely has more pages for the month.
func (s *Service) MonthPhotos(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, year int, month time.Month) ([]photo.Record, bool, error) {
	key := monthKey(drive, filter, year, month)
	if entry, ok := s.cache.Get(key); ok {
		return entry.Records(), entry.HasMore, nil
	}
	entry, err := s.fetchMonthPage(ctx, drive, filter, year, month, 0)
	if err != nil {
		return nil, false, err
	}
	return entry.Records(), entry.HasMore, nil
}

// FetchNextMonthPage loads one more page into the month partition when the
// remote has more, and returns the full loaded set.
func (s *Service) FetchNextMonthPage(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, year int, month time.Month) ([]photo.Record, bool, error) {
	key := monthKey(drive, filter, year, month)
	entry, ok := s.cache.Get(key)
	if !ok {
		return s.MonthPhotos(ctx, drive, filter, year, month)
	}
	if !entry.HasMore {
		return entry.Records(), false, nil
	}
	entry, err := s.fetchMonthPage(ctx, drive, filter, year, month, len(entry.Pages))
	if err != nil {
		return nil, false, err
	}
	return entry.Records(), entry.HasMore, nil
}

// StreamPhotos returns the loaded records of the unbounded stream, fetching
// the first page from the top of the timeline when empty.
func (s *Service) StreamPhotos(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter) ([]photo.Record, bool, error) {
	key := streamKey(drive, filter)
	if entry, ok := s.cache.Get(key); ok {
		return entry.Records(), entry.HasMore, nil
	}
	entry, err := s.fetchStreamPage(ctx, drive, filter, 0, 0)
	if err != nil {
		return nil, false, err
	}
	return entry.Records(), entry.HasMore, nil
}

// FetchNextStreamPage loads one more stream page when the remote has more.
func (s *Service) FetchNextStreamPage(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter) ([]photo.Record, bool, error) {
	key := streamKey(drive, filter)
	entry, ok := s.cache.Get(key)
	if !ok {
		return s.StreamPhotos(ctx, drive, filter)
	}
	if !entry.HasMore {
		return entry.Records(), false, nil
	}
	entry, err := s.fetchStreamPage(ctx, drive, filter, 0, len(entry.Pages))
	if err != nil {
		return nil, false, err
	}
	return entry.Records(), entry.HasMore, nil
}

// JumpStream repositions the stream at an arbitrary point in time, dropping
// whatever was loaded: the next fetch starts from a cursor synthesized for
// startMs. This backs the scrubber.
func (s *Service) JumpStream(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, startMs int64) ([]photo.Record, bool, error) {
	key := streamKey(drive, filter)
	s.cache.Invalidate(key)
	entry, err := s.fetchStreamPage(ctx, drive, filter, startMs, 0)
	if err != nil {
		return nil, false, err
	}
	return entry.Records(), entry.HasMore, nil
}

func (s *Service) fetchMonthPage(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, year int, month time.Month, afterPages int) (cache.Entry, error) {
	key := monthKey(drive, filter, year, month)
	return s.cache.FetchPage(key, afterPages, func(cursor string) (cache.Page, bool, error) {
		if cursor == "" {
			// the remote filter is cursor-bounded only; exact-month
			// filtering happens below
			begin := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			end := begin.AddDate(0, 1, 0).Add(-time.Millisecond)
			cursor = photo.BuildCursorRange(end.UnixMilli(), begin.UnixMilli())
		}

		res, err := s.store.QueryPage(ctx, Query{
			Drive:    drive,
			Filter:   filter,
			Cursor:   cursor,
			PageSize: PageSize,
		})
		if err != nil {
			return cache.Page{}, false, err
		}
		checkOrdering(key, res.Records)

		filtered := filterToMonth(res.Records, year, month)
		photo.SortRecords(filtered)

		hasMore := len(res.Records) >= PageSize && res.NextCursor != ""
		return cache.Page{Records: filtered, NextCursor: res.NextCursor}, hasMore, nil
	})
}

func (s *Service) fetchStreamPage(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, startMs int64, afterPages int) (cache.Entry, error) {
	key := streamKey(drive, filter)
	return s.cache.FetchPage(key, afterPages, func(cursor string) (cache.Page, bool, error) {
		if cursor == "" && startMs > 0 {
			cursor = photo.BuildCursor(startMs)
		}

		res, err := s.store.QueryPage(ctx, Query{
			Drive:    drive,
			Filter:   filter,
			Cursor:   cursor,
			PageSize: PageSize,
		})
		if err != nil {
			return cache.Page{}, false, err
		}
		checkOrdering(key, res.Records)

		hasMore := len(res.Records) >= PageSize && res.NextCursor != ""
		return cache.Page{Records: res.Records, NextCursor: res.NextCursor}, hasMore, nil
	})
}

// allMonthPhotos loads a month to completion. Boundary walking and range
// resolution need the month's full record set, not just the first page.
func (s *Service) allMonthPhotos(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, year int, month time.Month) ([]photo.Record, error) {
	records, hasMore, err := s.MonthPhotos(ctx, drive, filter, year, month)
	if err != nil {
		return nil, err
	}
	for i := 0; hasMore && i < maxMonthPages; i++ {
		records, hasMore, err = s.FetchNextMonthPage(ctx, drive, filter, year, month)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// monthPhotosThrough loads month pages until fileID shows up or the month is
// exhausted.
func (s *Service) monthPhotosThrough(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, year int, month time.Month, fileID string) ([]photo.Record, error) {
	records, hasMore, err := s.MonthPhotos(ctx, drive, filter, year, month)
	if err != nil {
		return nil, err
	}
	for i := 0; indexOf(records, fileID) < 0 && hasMore && i < maxMonthPages; i++ {
		records, hasMore, err = s.FetchNextMonthPage(ctx, drive, filter, year, month)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// currentRecord resolves a file id from any loaded cache entry of the drive,
// falling back to a direct header fetch. The fallback keeps direct links
// working before any page or index is populated.
func (s *Service) currentRecord(ctx context.Context, drive photo.Drive, fileID string) (photo.Record, error) {
	if r, _, ok := s.cache.FindRecord(drive.Alias, fileID); ok {
		return r, nil
	}
	return s.store.GetRecord(ctx, drive, fileID)
}

func monthKey(drive photo.Drive, filter photo.AlbumFilter, year int, month time.Month) cache.Key {
	return cache.Key{Drive: drive.Alias, Filter: filter, Partition: cache.MonthPartition(year, month)}
}

func streamKey(drive photo.Drive, filter photo.AlbumFilter) cache.Key {
	return cache.Key{Drive: drive.Alias, Filter: filter, Partition: cache.StreamPartition}
}

func filterToMonth(records []photo.Record, year int, month time.Month) []photo.Record {
	out := make([]photo.Record, 0, len(records))
	for _, r := range records {
		t := r.Time()
		if t.Year() == year && t.Month() == month {
			out = append(out, r)
		}
	}
	return out
}

func indexOf(records []photo.Record, fileID string) int {
	for i, r := range records {
		if r.FileID == fileID {
			return i
		}
	}
	return -1
}

// checkOrdering verifies the remote's descending-date contract. A violation
// is a remote bug that would skew sibling resolution; it is logged, not
// fatal, since the local re-sort covers month partitions.
func checkOrdering(key cache.Key, records []photo.Record) {
	for i := 1; i < len(records); i++ {
		if records[i-1].EffectiveDate() < records[i].EffectiveDate() {
			log.Warn().
				Str("key", key.String()).
				Str("fileId", records[i].FileID).
				Msg("Remote page out of descending date order")
			return
		}
	}
}
