package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"googlemaps.github.io/maps"
)

func TestToDealers(t *testing.T) {
	t.Parallel()

	open := true
	results := []maps.PlacesSearchResult{
		{Name: "Austin Toyota", FormattedAddress: "1 Main St", Rating: 4.6, UserRatingsTotal: 812, PlaceID: "p1", OpeningHours: &maps.OpeningHours{OpenNow: &open}},
		{Name: "  "},
		{Name: "Round Rock Honda", FormattedAddress: "2 Oak Ave", Rating: 4.2, PlaceID: "p2"},
		{Name: "Third", PlaceID: "p3"},
	}

	got := toDealers(results, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 dealers, got %d", len(got))
	}
	if got[0].Name != "Austin Toyota" || got[0].OpenNow == nil || !*got[0].OpenNow || got[0].TotalRatings != 812 {
		t.Fatalf("unexpected first dealer: %+v", got[0])
	}
	if got[1].Name != "Round Rock Honda" || got[1].OpenNow != nil {
		t.Fatalf("unexpected second dealer: %+v", got[1])
	}
}

func TestFindDealers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/place/textsearch/json") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("query"); q != "car dealership Austin, TX" {
			t.Errorf("unexpected query: %q", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"name": "Austin Toyota", "formatted_address": "1 Main St", "rating": 4.6, "user_ratings_total": 812, "place_id": "p1"}
			]
		}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	dealers, err := client.FindDealers(context.Background(), "Austin, TX")
	if err != nil {
		t.Fatalf("FindDealers() error = %v", err)
	}
	if len(dealers) != 1 || dealers[0].PlaceID != "p1" {
		t.Fatalf("unexpected dealers: %+v", dealers)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
