package library

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
)

// RecordLister fetches the lightweight record summaries an index is built
// from.
type RecordLister interface {
	ListRecords(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, limit int) ([]photo.Record, error)
}

type indexKey struct {
	drive  string
	filter photo.AlbumFilter
}

// Service caches one Index per (drive, filter) view, rebuilding on demand
// from a capped bulk fetch. Published indexes are immutable; the single-day
// patch primitives swap in a fresh copy.
type Service struct {
	lister RecordLister

	mu      sync.RWMutex
	indexes map[indexKey]*Index
	group   singleflight.Group
}

// NewService creates a new library index service.
func NewService(lister RecordLister) *Service {
	return &Service{
		lister:  lister,
		indexes: make(map[indexKey]*Index),
	}
}

// Get returns the cached index for the view, rebuilding it when absent.
// Concurrent rebuilds of the same view are collapsed into one fetch.
func (s *Service) Get(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter) (*Index, error) {
	key := indexKey{drive: drive.Alias, filter: filter}

	s.mu.RLock()
	ix, ok := s.indexes[key]
	s.mu.RUnlock()
	if ok {
		return ix, nil
	}

	v, err, _ := s.group.Do(flightKey(key), func() (interface{}, error) {
		return s.rebuild(ctx, drive, filter)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// FlatMonths returns the view's descending month list for boundary walking.
func (s *Service) FlatMonths(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter) ([]FlatMonth, error) {
	ix, err := s.Get(ctx, drive, filter)
	if err != nil {
		return nil, err
	}
	return ix.FlatMonths(), nil
}

func (s *Service) rebuild(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter) (*Index, error) {
	records, err := s.lister.ListRecords(ctx, drive, filter, BuildCap)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	ix := BuildIndex(records)

	log.Debug().
		Str("drive", drive.Alias).
		Str("filter", filter.String()).
		Int("records", len(records)).
		Int("total", ix.TotalPhotoCount).
		Msg("Library index rebuilt")

	s.mu.Lock()
	s.indexes[indexKey{drive: drive.Alias, filter: filter}] = ix
	s.mu.Unlock()

	return ix, nil
}

// Invalidate drops the cached index for one view; the next Get rebuilds.
func (s *Service) Invalidate(drive photo.Drive, filter photo.AlbumFilter) {
	s.mu.Lock()
	delete(s.indexes, indexKey{drive: drive.Alias, filter: filter})
	s.mu.Unlock()
}

// InvalidateDrive drops every cached index for a drive.
func (s *Service) InvalidateDrive(drive photo.Drive) {
	s.mu.Lock()
	for key := range s.indexes {
		if key.drive == drive.Alias {
			delete(s.indexes, key)
		}
	}
	s.mu.Unlock()
}

// AddDay counts one more photo on date's day in the cached view, when it is
// loaded. Used after uploads and restores to avoid a full rebuild.
func (s *Service) AddDay(drive photo.Drive, filter photo.AlbumFilter, date time.Time) {
	key := indexKey{drive: drive.Alias, filter: filter}

	s.mu.Lock()
	defer s.mu.Unlock()
	ix, ok := s.indexes[key]
	if !ok {
		return
	}
	s.indexes[key] = AddDay(ix, date)
}

// SetDayCount overwrites date's day count in the cached view. Falls back to
// dropping the index when the day is unknown, forcing a rebuild on next use.
func (s *Service) SetDayCount(drive photo.Drive, filter photo.AlbumFilter, date time.Time, count int) {
	key := indexKey{drive: drive.Alias, filter: filter}

	s.mu.Lock()
	defer s.mu.Unlock()
	ix, ok := s.indexes[key]
	if !ok {
		return
	}
	updated := SetDayCount(ix, date, count)
	if updated == nil {
		delete(s.indexes, key)
		return
	}
	s.indexes[key] = updated
}

func flightKey(key indexKey) string {
	return key.drive + "|" + key.filter.String()
}
