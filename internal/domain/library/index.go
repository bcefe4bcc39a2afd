// Package library maintains the year→month→day photo index that backs the
// date-organized grid and its scrubber.
package library

import (
	"sort"
	"time"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
)

// BuildCap bounds the bulk fetch an index is built from. Libraries larger
// than the cap lose day counts for the oldest records, which skews only the
// scrubber, never the paginated views.
const BuildCap = 1200

// Day holds the photo count for one calendar day.
type Day struct {
	Day           int `json:"day"`
	PhotosThisDay int `json:"photosThisDay"`
}

// Month holds the per-day counts for one calendar month, days descending.
type Month struct {
	Month           int   `json:"month"`
	Days            []Day `json:"days"`
	PhotosThisMonth int   `json:"photosThisMonth"`
}

// Year holds the months with photos for one calendar year, descending.
type Year struct {
	Year   int     `json:"year"`
	Months []Month `json:"months"`
}

// FlatMonth is one month of the index with its year attached, used by the
// sibling and range resolvers to walk across month boundaries.
type FlatMonth struct {
	Year            int
	Month           int
	PhotosThisMonth int
}

// Index is the derived library structure for one (drive, filter) view. It is
// eventually consistent: mutations invalidate and rebuild rather than patch,
// except for the single-day primitives below.
type Index struct {
	YearsWithMonths []Year `json:"yearsWithMonths"`
	TotalPhotoCount int    `json:"totalPhotoCount"`
}

// PhotoWeight returns the scrubber display weight of a single photo, 0 for
// an empty index.
func (ix *Index) PhotoWeight() float64 {
	if ix.TotalPhotoCount == 0 {
		return 0
	}
	return 100 / float64(ix.TotalPhotoCount)
}

// FlatMonths flattens the index into a descending month list.
func (ix *Index) FlatMonths() []FlatMonth {
	var flat []FlatMonth
	for _, y := range ix.YearsWithMonths {
		for _, m := range y.Months {
			flat = append(flat, FlatMonth{Year: y.Year, Month: m.Month, PhotosThisMonth: m.PhotosThisMonth})
		}
	}
	return flat
}

// BuildIndex groups records by the UTC calendar date of their effective date
// into the year→month→day count structure, years, months, and days all
// descending. Duplicate file ids are counted once. Empty input yields an
// empty, valid index.
func BuildIndex(records []photo.Record) *Index {
	seen := make(map[string]struct{}, len(records))
	counts := make(map[int]map[int]map[int]int)
	total := 0

	for _, r := range records {
		if _, dup := seen[r.FileID]; dup {
			continue
		}
		seen[r.FileID] = struct{}{}

		t := r.Time()
		y, m, d := t.Year(), int(t.Month()), t.Day()
		if counts[y] == nil {
			counts[y] = make(map[int]map[int]int)
		}
		if counts[y][m] == nil {
			counts[y][m] = make(map[int]int)
		}
		counts[y][m][d]++
		total++
	}

	years := make([]Year, 0, len(counts))
	for y, monthCounts := range counts {
		months := make([]Month, 0, len(monthCounts))
		for m, dayCounts := range monthCounts {
			days := make([]Day, 0, len(dayCounts))
			monthTotal := 0
			for d, n := range dayCounts {
				days = append(days, Day{Day: d, PhotosThisDay: n})
				monthTotal += n
			}
			sort.Slice(days, func(i, j int) bool { return days[i].Day > days[j].Day })
			months = append(months, Month{Month: m, Days: days, PhotosThisMonth: monthTotal})
		}
		sort.Slice(months, func(i, j int) bool { return months[i].Month > months[j].Month })
		years = append(years, Year{Year: y, Months: months})
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year > years[j].Year })

	return &Index{YearsWithMonths: years, TotalPhotoCount: total}
}

// AddDay returns a copy of the index with one more photo counted on date's
// day, creating the year, month, and day nodes as needed. The input index is
// not modified; published indexes stay immutable.
func AddDay(ix *Index, date time.Time) *Index {
	date = date.UTC()
	y, m, d := date.Year(), int(date.Month()), date.Day()

	year := findYear(ix, y)
	if year == nil {
		year = &Year{Year: y}
	}
	month := findMonth(year, m)
	if month == nil {
		month = &Month{Month: m}
	}

	count := 1
	if day := findDay(month, d); day != nil {
		count = day.PhotosThisDay + 1
	}

	return patchDay(ix, y, m, d, count, true)
}

// SetDayCount returns a copy of the index with date's day count overwritten
// and the month total recomputed. It returns nil when the day is not present;
// callers fall back to a full rebuild.
func SetDayCount(ix *Index, date time.Time, count int) *Index {
	date = date.UTC()
	y, m, d := date.Year(), int(date.Month()), date.Day()

	year := findYear(ix, y)
	if year == nil {
		return nil
	}
	month := findMonth(year, m)
	if month == nil {
		return nil
	}
	if findDay(month, d) == nil {
		return nil
	}

	return patchDay(ix, y, m, d, count, false)
}

func findYear(ix *Index, y int) *Year {
	for i := range ix.YearsWithMonths {
		if ix.YearsWithMonths[i].Year == y {
			return &ix.YearsWithMonths[i]
		}
	}
	return nil
}

func findMonth(year *Year, m int) *Month {
	for i := range year.Months {
		if year.Months[i].Month == m {
			return &year.Months[i]
		}
	}
	return nil
}

func findDay(month *Month, d int) *Day {
	for i := range month.Days {
		if month.Days[i].Day == d {
			return &month.Days[i]
		}
	}
	return nil
}

// patchDay rebuilds the index with one day's count replaced. When create is
// set, missing year/month/day nodes are added along the way.
func patchDay(ix *Index, y, m, d, count int, create bool) *Index {
	oldCount := 0

	years := make([]Year, 0, len(ix.YearsWithMonths)+1)
	patchedYear := false
	for _, year := range ix.YearsWithMonths {
		if year.Year != y {
			years = append(years, year)
			continue
		}
		patchedYear = true

		months := make([]Month, 0, len(year.Months)+1)
		patchedMonth := false
		for _, month := range year.Months {
			if month.Month != m {
				months = append(months, month)
				continue
			}
			patchedMonth = true
			newMonth, prev := replaceDay(month, d, count)
			oldCount = prev
			months = append(months, newMonth)
		}
		if !patchedMonth && create {
			months = append(months, Month{
				Month:           m,
				Days:            []Day{{Day: d, PhotosThisDay: count}},
				PhotosThisMonth: count,
			})
		}
		sort.Slice(months, func(i, j int) bool { return months[i].Month > months[j].Month })
		years = append(years, Year{Year: y, Months: months})
	}
	if !patchedYear && create {
		years = append(years, Year{
			Year: y,
			Months: []Month{{
				Month:           m,
				Days:            []Day{{Day: d, PhotosThisDay: count}},
				PhotosThisMonth: count,
			}},
		})
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year > years[j].Year })

	return &Index{
		YearsWithMonths: years,
		TotalPhotoCount: ix.TotalPhotoCount - oldCount + count,
	}
}

// replaceDay swaps one day's count within a month and recomputes the month
// total, returning the new month and the previous day count.
func replaceDay(month Month, d, count int) (Month, int) {
	prev := 0
	days := make([]Day, 0, len(month.Days)+1)
	replaced := false
	for _, day := range month.Days {
		if day.Day != d {
			days = append(days, day)
			continue
		}
		prev = day.PhotosThisDay
		days = append(days, Day{Day: d, PhotosThisDay: count})
		replaced = true
	}
	if !replaced {
		days = append(days, Day{Day: d, PhotosThisDay: count})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day > days[j].Day })

	total := 0
	for _, day := range days {
		total += day.PhotosThisDay
	}
	return Month{Month: month.Month, Days: days, PhotosThisMonth: total}, prev
}
