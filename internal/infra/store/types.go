package store

import (
	"strings"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
)

// Wire types for the drive query and file header endpoints.

type targetDrive struct {
	Alias string `json:"alias"`
	Type  string `json:"type"`
}

type queryParams struct {
	TargetDrive    targetDrive `json:"targetDrive"`
	FileType       []int       `json:"fileType,omitempty"`
	ArchivalStatus []int       `json:"archivalStatus,omitempty"`
	TagsMatchAll   []string    `json:"tagsMatchAll,omitempty"`
}

type resultOptions struct {
	CursorState           string `json:"cursorState,omitempty"`
	MaxRecords            int    `json:"maxRecords"`
	IncludeMetadataHeader bool   `json:"includeMetadataHeader"`
	Sorting               string `json:"sorting"`
	Ordering              string `json:"ordering"`
}

type queryBatchRequest struct {
	QueryParams   queryParams   `json:"queryParams"`
	ResultOptions resultOptions `json:"resultOptionsRequest"`
}

type queryBatchResponse struct {
	SearchResults []searchResult `json:"searchResults"`
	CursorState   string         `json:"cursorState"`
}

type previewThumbnail struct {
	PixelWidth  int `json:"pixelWidth"`
	PixelHeight int `json:"pixelHeight"`
}

type appData struct {
	UserDate         int64             `json:"userDate,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	ArchivalStatus   int               `json:"archivalStatus"`
	FileType         int               `json:"fileType"`
	PreviewThumbnail *previewThumbnail `json:"previewThumbnail,omitempty"`
}

type payloadDescriptor struct {
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

type fileMetadata struct {
	Created  int64               `json:"created"`
	Updated  int64               `json:"updated,omitempty"`
	AppData  appData             `json:"appData"`
	Payloads []payloadDescriptor `json:"payloads,omitempty"`
}

type searchResult struct {
	FileID       string       `json:"fileId"`
	FileMetadata fileMetadata `json:"fileMetadata"`
}

type updateHeaderRequest struct {
	TargetDrive  targetDrive  `json:"targetDrive"`
	FileID       string       `json:"fileId"`
	FileMetadata fileMetadata `json:"fileMetadata"`
}

// toRecord converts a wire search result into the domain record.
func toRecord(sr searchResult) photo.Record {
	meta := sr.FileMetadata
	r := photo.Record{
		FileID:        sr.FileID,
		Created:       meta.Created,
		UserDate:      meta.AppData.UserDate,
		Tags:          meta.AppData.Tags,
		ArchivalState: photo.ArchivalState(meta.AppData.ArchivalStatus),
		Kind:          photo.KindPhoto,
	}
	if t := meta.AppData.PreviewThumbnail; t != nil {
		r.Width = t.PixelWidth
		r.Height = t.PixelHeight
	}
	for _, p := range meta.Payloads {
		if strings.HasPrefix(p.ContentType, "video/") {
			r.Kind = photo.KindVideo
			break
		}
	}
	return r
}

func archivalInts(states []photo.ArchivalState) []int {
	out := make([]int, len(states))
	for i, s := range states {
		out[i] = int(s)
	}
	return out
}
