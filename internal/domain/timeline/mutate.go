package timeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
	"github.com/homebase-id/photo-library-backend/internal/infra/cache"
)

// Mutations patch loaded pages optimistically before the remote call, so the
// grid reacts instantly. Remote failures are returned to the caller but the
// optimistic patch is never rolled back; the caches are invalidated on the
// remote side of the operation and reconcile on the next fetch.

// Archive moves a photo out of the main timeline into the archive.
func (s *Service) Archive(ctx context.Context, drive photo.Drive, fileID string) error {
	// archived records stay visible in album and favorite views
	s.cache.RemoveRecord(drive.Alias, fileID, func(k cache.Key) bool {
		return k.Filter.Kind == photo.ViewActive && k.Filter.AlbumTag == ""
	})

	state := photo.StateArchived
	updated, err := s.store.UpdateRecord(ctx, drive, fileID, Patch{ArchivalState: &state})
	if err != nil {
		return err
	}

	s.cache.UpdateRecord(drive.Alias, updated)
	s.cache.InvalidateMatching(func(k cache.Key) bool {
		return k.Drive == drive.Alias && k.Filter.Kind == photo.ViewArchive
	})
	s.library.Invalidate(drive, photo.AlbumFilter{})
	s.library.Invalidate(drive, photo.AlbumFilter{Kind: photo.ViewArchive})
	return nil
}

// Remove moves a photo to the bin. It disappears from every view except the
// bin itself.
func (s *Service) Remove(ctx context.Context, drive photo.Drive, fileID string) error {
	s.cache.RemoveRecord(drive.Alias, fileID, func(k cache.Key) bool {
		return k.Filter.Kind != photo.ViewBin
	})

	state := photo.StateBinned
	updated, err := s.store.UpdateRecord(ctx, drive, fileID, Patch{ArchivalState: &state})
	if err != nil {
		return err
	}

	s.cache.UpdateRecord(drive.Alias, updated)
	s.cache.InvalidateMatching(func(k cache.Key) bool {
		return k.Drive == drive.Alias && k.Filter.Kind == photo.ViewBin
	})
	s.library.InvalidateDrive(drive)
	return nil
}

// Restore brings a binned or archived photo back into the main timeline.
func (s *Service) Restore(ctx context.Context, drive photo.Drive, fileID string) error {
	s.cache.RemoveRecord(drive.Alias, fileID, func(k cache.Key) bool {
		return k.Filter.Kind == photo.ViewBin || k.Filter.Kind == photo.ViewArchive
	})

	state := photo.StateActive
	updated, err := s.store.UpdateRecord(ctx, drive, fileID, Patch{ArchivalState: &state})
	if err != nil {
		return err
	}

	t := updated.Time()
	s.cache.InsertRecord(monthKey(drive, photo.AlbumFilter{}, t.Year(), t.Month()), updated)
	s.cache.InsertRecord(streamKey(drive, photo.AlbumFilter{}), updated)
	s.library.AddDay(drive, photo.AlbumFilter{}, t)
	s.library.Invalidate(drive, photo.AlbumFilter{Kind: photo.ViewBin})
	s.library.Invalidate(drive, photo.AlbumFilter{Kind: photo.ViewArchive})
	return nil
}

// AddTags attaches tags to a photo. Album views for the new tags pick the
// record up in place when their pages are loaded.
func (s *Service) AddTags(ctx context.Context, drive photo.Drive, fileID string, tags []string) error {
	updated, err := s.store.UpdateRecord(ctx, drive, fileID, Patch{AddTags: tags})
	if err != nil {
		return err
	}

	s.cache.UpdateRecord(drive.Alias, updated)
	t := updated.Time()
	for _, tag := range tags {
		filter := filterForTag(tag)
		s.cache.InsertRecord(monthKey(drive, filter, t.Year(), t.Month()), updated)
		s.cache.InsertRecord(streamKey(drive, filter), updated)
		s.library.AddDay(drive, filter, t)
	}
	return nil
}

// RemoveTags detaches tags from a photo and drops it from the matching album
// views.
func (s *Service) RemoveTags(ctx context.Context, drive photo.Drive, fileID string, tags []string) error {
	for _, tag := range tags {
		filter := filterForTag(tag)
		s.cache.RemoveRecord(drive.Alias, fileID, func(k cache.Key) bool {
			return k.Filter == filter
		})
	}

	updated, err := s.store.UpdateRecord(ctx, drive, fileID, Patch{RemoveTags: tags})
	if err != nil {
		return err
	}

	s.cache.UpdateRecord(drive.Alias, updated)
	for _, tag := range tags {
		s.library.Invalidate(drive, filterForTag(tag))
	}
	return nil
}

// ArchiveAll archives a batch of photos, continuing past individual
// failures.
func (s *Service) ArchiveAll(ctx context.Context, drive photo.Drive, fileIDs []string) error {
	return s.each(ctx, drive, fileIDs, s.Archive)
}

// RemoveAll bins a batch of photos, continuing past individual failures.
func (s *Service) RemoveAll(ctx context.Context, drive photo.Drive, fileIDs []string) error {
	return s.each(ctx, drive, fileIDs, s.Remove)
}

// RestoreAll restores a batch of photos, continuing past individual
// failures.
func (s *Service) RestoreAll(ctx context.Context, drive photo.Drive, fileIDs []string) error {
	return s.each(ctx, drive, fileIDs, s.Restore)
}

// AddTagsAll attaches the same tags to a batch of photos, continuing past
// individual failures.
func (s *Service) AddTagsAll(ctx context.Context, drive photo.Drive, fileIDs []string, tags []string) error {
	return s.each(ctx, drive, fileIDs, func(ctx context.Context, drive photo.Drive, fileID string) error {
		return s.AddTags(ctx, drive, fileID, tags)
	})
}

// RemoveTagsAll detaches the same tags from a batch of photos, continuing
// past individual failures.
func (s *Service) RemoveTagsAll(ctx context.Context, drive photo.Drive, fileIDs []string, tags []string) error {
	return s.each(ctx, drive, fileIDs, func(ctx context.Context, drive photo.Drive, fileID string) error {
		return s.RemoveTags(ctx, drive, fileID, tags)
	})
}

func (s *Service) each(ctx context.Context, drive photo.Drive, fileIDs []string, op func(context.Context, photo.Drive, string) error) error {
	bulk := &photo.BulkError{}
	for _, id := range fileIDs {
		if err := op(ctx, drive, id); err != nil {
			log.Warn().Err(err).Str("fileId", id).Msg("Bulk mutation item failed")
			bulk.Add(id, err)
		}
	}
	return bulk.OrNil()
}

func filterForTag(tag string) photo.AlbumFilter {
	if tag == photo.FavoriteTag {
		return photo.AlbumFilter{Kind: photo.ViewFavorites}
	}
	return photo.AlbumFilter{AlbumTag: tag}
}
