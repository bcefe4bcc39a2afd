package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/homebase-id/photo-library-backend/internal/domain/photo"
	"github.com/homebase-id/photo-library-backend/internal/domain/timeline"
	"github.com/homebase-id/photo-library-backend/internal/infra/store"
)

var testDrive = photo.Drive{Alias: "drive-alias", Type: "drive-type"}

func TestClientQueryPage(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/owner/v1/drive/query/batch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"searchResults": [
				{
					"fileId": "file-1",
					"fileMetadata": {
						"created": 1700000000000,
						"appData": {
							"userDate": 1700000500000,
							"tags": ["tag-a"],
							"archivalStatus": 0,
							"previewThumbnail": {"pixelWidth": 640, "pixelHeight": 480}
						},
						"payloads": [{"key": "main", "contentType": "image/jpeg"}]
					}
				},
				{
					"fileId": "file-2",
					"fileMetadata": {
						"created": 1690000000000,
						"appData": {"archivalStatus": 0},
						"payloads": [{"key": "main", "contentType": "video/mp4"}]
					}
				}
			],
			"cursorState": "next-cursor"
		}`))
	}))
	defer server.Close()

	client := store.NewClient(server.URL, store.WithToken("secret"))
	res, err := client.QueryPage(context.Background(), timeline.Query{
		Drive:    testDrive,
		Filter:   photo.AlbumFilter{AlbumTag: "tag-a"},
		Cursor:   "cur-0",
		PageSize: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NextCursor != "next-cursor" {
		t.Fatalf("expected cursor next-cursor, got %q", res.NextCursor)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}

	first := res.Records[0]
	if first.FileID != "file-1" || first.UserDate != 1700000500000 || first.Width != 640 || first.Kind != photo.KindPhoto {
		t.Fatalf("unexpected first record %+v", first)
	}
	if res.Records[1].Kind != photo.KindVideo {
		t.Fatalf("expected video kind, got %v", res.Records[1].Kind)
	}

	opts := gotBody["resultOptionsRequest"].(map[string]any)
	if opts["cursorState"] != "cur-0" || opts["maxRecords"] != float64(100) {
		t.Fatalf("unexpected result options %v", opts)
	}
	if opts["sorting"] != "userDate" || opts["ordering"] != "newestFirst" {
		t.Fatalf("unexpected sort options %v", opts)
	}
	params := gotBody["queryParams"].(map[string]any)
	tags := params["tagsMatchAll"].([]any)
	if len(tags) != 1 || tags[0] != "tag-a" {
		t.Fatalf("unexpected tagsMatchAll %v", tags)
	}
}

func TestClientQueryPageOldestFirst(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"searchResults": [], "cursorState": ""}`))
	}))
	defer server.Close()

	client := store.NewClient(server.URL)
	if _, err := client.QueryPage(context.Background(), timeline.Query{
		Drive:       testDrive,
		PageSize:    10,
		OldestFirst: true,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts := gotBody["resultOptionsRequest"].(map[string]any)
	if opts["ordering"] != "oldestFirst" {
		t.Fatalf("expected oldestFirst ordering, got %v", opts["ordering"])
	}
}

func TestClientQueryPageTemporaryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := store.NewClient(server.URL)
	_, err := client.QueryPage(context.Background(), timeline.Query{Drive: testDrive, PageSize: 10})
	if !errors.Is(err, photo.ErrTemporaryFailure) {
		t.Fatalf("expected temporary failure, got %v", err)
	}
}

func TestClientGetRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/owner/v1/drive/files/header" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("fileId"); got != "file-9" {
			t.Errorf("unexpected fileId %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"fileId": "file-9",
			"fileMetadata": {"created": 1700000000000, "appData": {"archivalStatus": 1, "tags": ["x"]}}
		}`))
	}))
	defer server.Close()

	client := store.NewClient(server.URL)
	r, err := client.GetRecord(context.Background(), testDrive, "file-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.FileID != "file-9" || r.ArchivalState != photo.StateArchived || !r.HasTag("x") {
		t.Fatalf("unexpected record %+v", r)
	}
}

func TestClientGetRecordNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := store.NewClient(server.URL)
	_, err := client.GetRecord(context.Background(), testDrive, "ghost")
	if !errors.Is(err, photo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientUpdateRecord(t *testing.T) {
	var updateBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/owner/v1/drive/files/header":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"fileId": "file-1",
				"fileMetadata": {"created": 1700000000000, "appData": {"archivalStatus": 0, "tags": ["keep", "drop"]}}
			}`))
		case "/api/owner/v1/drive/files/update":
			if err := json.NewDecoder(r.Body).Decode(&updateBody); err != nil {
				t.Errorf("decode update: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	state := photo.StateArchived
	client := store.NewClient(server.URL)
	r, err := client.UpdateRecord(context.Background(), testDrive, "file-1", timeline.Patch{
		ArchivalState: &state,
		AddTags:       []string{"new"},
		RemoveTags:    []string{"drop"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ArchivalState != photo.StateArchived {
		t.Fatalf("expected archived, got %v", r.ArchivalState)
	}
	if !r.HasTag("keep") || !r.HasTag("new") || r.HasTag("drop") {
		t.Fatalf("unexpected tags %v", r.Tags)
	}

	meta := updateBody["fileMetadata"].(map[string]any)
	app := meta["appData"].(map[string]any)
	if app["archivalStatus"] != float64(1) {
		t.Fatalf("expected archivalStatus 1 on the wire, got %v", app["archivalStatus"])
	}
}

func TestClientListRecordsDrainsPages(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		cursor, _ := body["resultOptionsRequest"].(map[string]any)["cursorState"].(string)
		if cursor == "" {
			// a full first page signals more data
			results := `[`
			for i := 0; i < 100; i++ {
				if i > 0 {
					results += ","
				}
				results += `{"fileId": "p` + string(rune('a'+i%26)) + `", "fileMetadata": {"created": 1, "appData": {"archivalStatus": 0}}}`
			}
			results += `]`
			w.Write([]byte(`{"searchResults": ` + results + `, "cursorState": "more"}`))
			return
		}
		w.Write([]byte(`{"searchResults": [{"fileId": "last", "fileMetadata": {"created": 1, "appData": {"archivalStatus": 0}}}], "cursorState": ""}`))
	}))
	defer server.Close()

	client := store.NewClient(server.URL)
	records, err := client.ListRecords(context.Background(), testDrive, photo.AlbumFilter{}, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 pages, got %d", calls)
	}
	if len(records) != 101 {
		t.Fatalf("expected 101 records, got %d", len(records))
	}
}
