package photo

import "testing"

func TestRecord_EffectiveDate(t *testing.T) {
	withOverride := Record{FileID: "a", Created: 100, UserDate: 50}
	if withOverride.EffectiveDate() != 50 {
		t.Errorf("Expected user date to win, got %d", withOverride.EffectiveDate())
	}

	withoutOverride := Record{FileID: "b", Created: 100}
	if withoutOverride.EffectiveDate() != 100 {
		t.Errorf("Expected created fallback, got %d", withoutOverride.EffectiveDate())
	}
}

func TestSortRecords_NewestFirstWithStableTieBreak(t *testing.T) {
	records := []Record{
		{FileID: "b", Created: 90},
		{FileID: "a", Created: 90},
		{FileID: "c", Created: 100},
		{FileID: "d", Created: 80, UserDate: 110},
	}

	SortRecords(records)

	want := []string{"d", "c", "b", "a"}
	for i, id := range want {
		if records[i].FileID != id {
			t.Fatalf("Expected %v at position %d, got %v", id, i, records[i].FileID)
		}
	}
}

func TestAlbumFilter_ArchivalStates(t *testing.T) {
	tests := []struct {
		name   string
		filter AlbumFilter
		want   []ArchivalState
	}{
		{"active", AlbumFilter{}, []ArchivalState{StateActive}},
		{"bin", AlbumFilter{Kind: ViewBin}, []ArchivalState{StateBinned}},
		{"archive", AlbumFilter{Kind: ViewArchive}, []ArchivalState{StateArchived}},
		{"apps", AlbumFilter{Kind: ViewApps}, []ArchivalState{StateFromApps}},
		{"favorites", AlbumFilter{Kind: ViewFavorites}, []ArchivalState{StateActive, StateArchived, StateFromApps}},
		{"album", AlbumFilter{AlbumTag: "tag1"}, []ArchivalState{StateActive, StateArchived, StateFromApps}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.ArchivalStates()
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestAlbumFilter_Matches(t *testing.T) {
	active := Record{FileID: "a", ArchivalState: StateActive}
	binned := Record{FileID: "b", ArchivalState: StateBinned}
	favorite := Record{FileID: "f", ArchivalState: StateActive, Tags: []string{FavoriteTag}}

	if !(AlbumFilter{}).Matches(active) {
		t.Error("Expected active record in main view")
	}
	if (AlbumFilter{}).Matches(binned) {
		t.Error("Expected binned record excluded from main view")
	}
	if !(AlbumFilter{Kind: ViewBin}).Matches(binned) {
		t.Error("Expected binned record in bin view")
	}
	if !(AlbumFilter{Kind: ViewFavorites}).Matches(favorite) {
		t.Error("Expected tagged record in favorites view")
	}
	if (AlbumFilter{Kind: ViewFavorites}).Matches(active) {
		t.Error("Expected untagged record excluded from favorites view")
	}
}

func TestGuidID_Deterministic(t *testing.T) {
	if GuidID("favorite") != FavoriteTag {
		t.Error("Expected stable favorite tag")
	}
	if len(FavoriteTag) != 32 {
		t.Errorf("Expected 32 hex chars, got %d", len(FavoriteTag))
	}
}
