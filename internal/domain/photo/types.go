// Package photo defines the core media record model shared by the library
// index, the timeline cache, and the record-store client.
package photo

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind represents the media type of a record.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// ArchivalState mirrors the remote store's archival status values.
type ArchivalState int

const (
	StateActive   ArchivalState = 0
	StateArchived ArchivalState = 1
	StateBinned   ArchivalState = 2
	StateFromApps ArchivalState = 3
)

// MediaFileType is the remote file type shared by photo and video items.
const MediaFileType = 0

// Drive identifies a target drive on the remote store.
type Drive struct {
	Alias string `json:"alias"`
	Type  string `json:"type"`
}

// Well-known identifiers, derived deterministically from their names the same
// way the remote store derives them.
var (
	// FavoriteTag marks favorite photos.
	FavoriteTag = GuidID("favorite")

	// PhotoDrive is the default photos drive.
	PhotoDrive = Drive{
		Alias: GuidID("standard_photos_drive"),
		Type:  GuidID("photos_drive"),
	}
)

// GuidID derives a deterministic guid from a well-known name.
func GuidID(name string) string {
	id := uuid.NewMD5(uuid.NameSpaceOID, []byte(name))
	return strings.ReplaceAll(id.String(), "-", "")
}

// Record is one media item as known to the library core. Presentation
// metadata (dimensions) rides along but never participates in ordering.
type Record struct {
	FileID        string        `json:"fileId"`
	Created       int64         `json:"created"`            // epoch ms
	UserDate      int64         `json:"userDate,omitempty"` // epoch ms, 0 when unset
	Kind          Kind          `json:"kind"`
	Tags          []string      `json:"tags,omitempty"`
	ArchivalState ArchivalState `json:"archivalState"`
	Width         int           `json:"width,omitempty"`
	Height        int           `json:"height,omitempty"`
}

// EffectiveDate returns the user-assigned date when present, else the
// creation timestamp. Every ordering decision in the library uses this.
func (r Record) EffectiveDate() int64 {
	if r.UserDate > 0 {
		return r.UserDate
	}
	return r.Created
}

// Time returns the effective date as a UTC time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.EffectiveDate()).UTC()
}

// HasTag reports whether the record carries the given tag.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Less orders records newest first. Ties on the effective date are broken by
// descending file id so the order is stable across refetches.
func Less(a, b Record) bool {
	ad, bd := a.EffectiveDate(), b.EffectiveDate()
	if ad != bd {
		return ad > bd
	}
	return a.FileID > b.FileID
}

// SortRecords sorts records in place, newest first.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return Less(records[i], records[j]) })
}

// ViewKind selects which library view a query considers.
type ViewKind string

const (
	ViewActive    ViewKind = ""
	ViewArchive   ViewKind = "archive"
	ViewBin       ViewKind = "bin"
	ViewApps      ViewKind = "apps"
	ViewFavorites ViewKind = "favorites"
)

// AlbumFilter narrows which records a view considers: a typed view, an album
// tag, or the favorites view backed by its well-known tag.
type AlbumFilter struct {
	Kind     ViewKind `json:"kind,omitempty"`
	AlbumTag string   `json:"albumTag,omitempty"`
}

// ArchivalStates returns the archival status set queried for this filter.
// Album and favorite views keep showing archived and app-imported items; the
// main view shows active items only.
func (f AlbumFilter) ArchivalStates() []ArchivalState {
	switch {
	case f.Kind == ViewBin:
		return []ArchivalState{StateBinned}
	case f.Kind == ViewArchive:
		return []ArchivalState{StateArchived}
	case f.Kind == ViewApps:
		return []ArchivalState{StateFromApps}
	case f.AlbumTag != "" || f.Kind == ViewFavorites:
		return []ArchivalState{StateActive, StateArchived, StateFromApps}
	default:
		return []ArchivalState{StateActive}
	}
}

// Tags returns the tags-match-all terms for this filter.
func (f AlbumFilter) Tags() []string {
	if f.AlbumTag != "" {
		return []string{f.AlbumTag}
	}
	if f.Kind == ViewFavorites {
		return []string{FavoriteTag}
	}
	return nil
}

// Matches reports whether a record belongs to this filter's view.
func (f AlbumFilter) Matches(r Record) bool {
	stateOK := false
	for _, s := range f.ArchivalStates() {
		if r.ArchivalState == s {
			stateOK = true
			break
		}
	}
	if !stateOK {
		return false
	}
	for _, tag := range f.Tags() {
		if !r.HasTag(tag) {
			return false
		}
	}
	return true
}

// String renders a stable representation used in cache keys and logs.
func (f AlbumFilter) String() string {
	switch {
	case f.AlbumTag != "":
		return "album:" + f.AlbumTag
	case f.Kind == ViewActive:
		return "active"
	default:
		return string(f.Kind)
	}
}
