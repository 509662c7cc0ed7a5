package api

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/relloyd/obspipe/stream"
)

func TestFormatDate(t *testing.T) {
	cases := map[time.Time]string{
		time.Date(2024, 3, 15, 14, 5, 0, 0, time.UTC):   "03/15/2024 02:05 PM",
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC):     "01/02/2024 12:00 AM",
		time.Date(2024, 12, 31, 12, 59, 0, 0, time.UTC): "12/31/2024 12:59 PM",
	}
	for in, expected := range cases {
		if got := FormatDate(in); got != expected {
			t.Fatalf("expected %q; got %q", expected, got)
		}
	}
}

func TestSiteFromRecord(t *testing.T) {
	r := stream.NewRecordFromMap(map[string]interface{}{
		"site_id":            json.Number("10"),
		"hco_id":             nil,
		"program_id":         "3",
		"site_name":          "Main",
		"has_active_license": "true",
		"updated_from":       "2024-03-01T00:00:00",
	})
	s, err := SiteFromRecord(r)
	if err != nil {
		t.Fatal(err)
	}
	if s.SiteID != 10 || s.HcoID != nil || s.ProgramID != 3 || !s.HasActiveLicense || s.SiteName != "Main" {
		t.Fatalf("unexpected site %+v", s)
	}
	if !s.UpdatedFrom.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected updated_from %v", s.UpdatedFrom)
	}
	if _, err := SiteFromRecord(stream.NewRecordFromMap(map[string]interface{}{"has_active_license": true})); err == nil {
		t.Fatal("expected an error for a record without site_id")
	}
	if _, err := SiteFromRecord(stream.NewRecordFromMap(map[string]interface{}{"site_id": 1})); err == nil {
		t.Fatal("expected an error for a record without has_active_license")
	}
}

func TestSessionString(t *testing.T) {
	s := Session{Token: "secret", UserID: "1"}
	if got := s.String(); got != "user_id=1 token=xxxxx" {
		t.Fatalf("token should be hidden; got %q", got)
	}
}
