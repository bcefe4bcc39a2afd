package timeline

import (
	"context"
	"errors"
	"time"

	"github.com/homebase-id/photo-library-backend/internal/domain/library"
	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
)

// Siblings is the chronological neighborhood of one record within a view.
// Previous is the next newer record, Next the next older one. Either is nil
// at the corresponding end of the view.
type Siblings struct {
	Current  *photo.Record
	Previous *photo.Record
	Next     *photo.Record
}

// Siblings resolves a record's chronological neighbors within a view,
// walking across month boundaries as needed. An unknown file id degrades to
// an empty result rather than an error; transient fetch failures propagate.
func (s *Service) Siblings(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, fileID string) (Siblings, error) {
	current, err := s.currentRecord(ctx, drive, fileID)
	if errors.Is(err, photo.ErrNotFound) {
		return Siblings{}, nil
	}
	if err != nil {
		return Siblings{}, err
	}

	t := current.Time()
	records, err := s.allMonthPhotos(ctx, drive, filter, t.Year(), t.Month())
	if err != nil {
		return Siblings{}, err
	}

	sib := Siblings{Current: &current}
	idx := indexOf(records, fileID)
	if idx < 0 {
		// record exists but is not part of this view
		return Siblings{}, nil
	}
	if idx > 0 {
		sib.Previous = &records[idx-1]
	}
	if idx < len(records)-1 {
		sib.Next = &records[idx+1]
	}
	if sib.Previous != nil && sib.Next != nil {
		return sib, nil
	}

	flat, err := s.library.FlatMonths(ctx, drive, filter)
	if err != nil {
		return Siblings{}, err
	}
	pos := findMonth(flat, t.Year(), int(t.Month()))
	if pos < 0 {
		return sib, nil
	}

	if sib.Previous == nil {
		prev, err := s.lastOfNewerMonth(ctx, drive, filter, flat, pos)
		if err != nil {
			return Siblings{}, err
		}
		sib.Previous = prev
	}
	if sib.Next == nil {
		next, err := s.firstOfOlderMonth(ctx, drive, filter, flat, pos)
		if err != nil {
			return Siblings{}, err
		}
		sib.Next = next
	}
	return sib, nil
}

// lastOfNewerMonth walks toward the present and returns the oldest record of
// the nearest non-empty month before pos. Months the index reports empty are
// never fetched.
func (s *Service) lastOfNewerMonth(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, flat []library.FlatMonth, pos int) (*photo.Record, error) {
	for i := pos - 1; i >= 0; i-- {
		if flat[i].PhotosThisMonth == 0 {
			continue
		}
		records, err := s.allMonthPhotos(ctx, drive, filter, flat[i].Year, time.Month(flat[i].Month))
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			last := records[len(records)-1]
			return &last, nil
		}
	}
	return nil, nil
}

// firstOfOlderMonth walks toward the past and returns the newest record of
// the nearest non-empty month after pos. The first page is enough since
// pages arrive newest first.
func (s *Service) firstOfOlderMonth(ctx context.Context, drive photo.Drive, filter photo.AlbumFilter, flat []library.FlatMonth, pos int) (*photo.Record, error) {
	for i := pos + 1; i < len(flat); i++ {
		if flat[i].PhotosThisMonth == 0 {
			continue
		}
		records, _, err := s.MonthPhotos(ctx, drive, filter, flat[i].Year, time.Month(flat[i].Month))
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			first := records[0]
			return &first, nil
		}
	}
	return nil, nil
}

func findMonth(flat []library.FlatMonth, year, month int) int {
	for i, m := range flat {
		if m.Year == year && m.Month == month {
			return i
		}
	}
	return -1
}
