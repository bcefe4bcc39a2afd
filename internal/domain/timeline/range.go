package timeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
)

// Range resolves every file id between two endpoint records, inclusive, in
// descending time order regardless of the argument order. The multi-select
// shift-click in the grid is backed by this. An endpoint that cannot be
// resolved yields an empty range, not an error.
func (s *Service) Range(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, fromID, toID string) ([]string, error) {
	if fromID == toID {
		return s.singletonRange(ctx, drive, fromID)
	}

	from, err := s.currentRecord(ctx, drive, fromID)
	if errors.Is(err, photo.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	to, err := s.currentRecord(ctx, drive, toID)
	if errors.Is(err, photo.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	// normalize so from is the newer endpoint
	if photo.Less(to, from) {
		from, to = to, from
	}

	fromTime, toTime := from.Time(), to.Time()
	if fromTime.Year() == toTime.Year() && fromTime.Month() == toTime.Month() {
		return s.sameMonthRange(ctx, drive, filter, from, to)
	}
	return s.crossMonthRange(ctx, drive, filter, from, to)
}

func (s *Service) singletonRange(ctx context.Context, drive photo.Drive, fileID string) ([]string, error) {
	if fileID == "" {
		return []string{}, nil
	}
	_, err := s.currentRecord(ctx, drive, fileID)
	if errors.Is(err, photo.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{fileID}, nil
}

func (s *Service) sameMonthRange(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, from, to photo.Record) ([]string, error) {
	t := from.Time()
	records, err := s.monthPhotosThrough(ctx, drive, filter, t.Year(), t.Month(), to.FileID)
	if err != nil {
		return nil, err
	}
	fromIdx := indexOf(records, from.FileID)
	toIdx := indexOf(records, to.FileID)
	if fromIdx < 0 || toIdx < 0 || fromIdx > toIdx {
		return []string{}, nil
	}
	return fileIDs(records[fromIdx : toIdx+1]), nil
}

// crossMonthRange stitches the tail of the newer endpoint's month, every
// non-empty month in between loaded to completion, and the head of the older
// endpoint's month. The in-between months fetch concurrently; the index says
// which ones hold photos at all, so empty ones cost nothing.
func (s *Service) crossMonthRange(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, from, to photo.Record) ([]string, error) {
	fromTime, toTime := from.Time(), to.Time()

	fromRecords, err := s.allMonthPhotos(ctx, drive, filter, fromTime.Year(), fromTime.Month())
	if err != nil {
		return nil, err
	}
	fromIdx := indexOf(fromRecords, from.FileID)
	if fromIdx < 0 {
		return []string{}, nil
	}

	toRecords, err := s.monthPhotosThrough(ctx, drive, filter, toTime.Year(), toTime.Month(), to.FileID)
	if err != nil {
		return nil, err
	}
	toIdx := indexOf(toRecords, to.FileID)
	if toIdx < 0 {
		return []string{}, nil
	}

	flat, err := s.library.FlatMonths(ctx, drive, filter)
	if err != nil {
		return nil, err
	}
	fromPos := findMonth(flat, fromTime.Year(), int(fromTime.Month()))
	toPos := findMonth(flat, toTime.Year(), int(toTime.Month()))

	var between [][]photo.Record
	if fromPos >= 0 && toPos > fromPos+1 {
		months := flat[fromPos+1 : toPos]
		between = make([][]photo.Record, len(months))
		g, gctx := errgroup.WithContext(ctx)
		for i, m := range months {
			if m.PhotosThisMonth == 0 {
				continue
			}
			i, m := i, m
			g.Go(func() error {
				records, err := s.allMonthPhotos(gctx, drive, filter, m.Year, time.Month(m.Month))
				if err != nil {
					return err
				}
				between[i] = records
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	ids := fileIDs(fromRecords[fromIdx:])
	for _, records := range between {
		ids = append(ids, fileIDs(records)...)
	}
	ids = append(ids, fileIDs(toRecords[:toIdx+1])...)
	return ids, nil
}

func fileIDs(records []photo.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.FileID
	}
	return ids
}
