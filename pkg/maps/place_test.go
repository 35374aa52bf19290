package maps

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/parkfinder-backend/pkg/errors"
)

func TestPlaceDetailsAddress(t *testing.T) {
	details := PlaceDetails{
		FormattedAddress: "221 Market St, San Francisco, CA 94105, USA",
		Location:         LatLng{Latitude: 37.79, Longitude: -122.39},
		AddressComponents: []AddressComponent{
			{LongName: "221", ShortName: "221", Types: []string{"street_number"}},
			{LongName: "Market Street", ShortName: "Market St", Types: []string{"route"}},
			{LongName: "San Francisco", ShortName: "SF", Types: []string{"locality", "political"}},
			{LongName: "California", ShortName: "CA", Types: []string{"administrative_area_level_1", "political"}},
			{LongName: "94105", ShortName: "94105", Types: []string{"postal_code"}},
			{LongName: "United States", ShortName: "US", Types: []string{"country", "political"}},
		},
	}

	addr := details.Address()
	if addr.Street != "221 Market Street" {
		t.Fatalf("unexpected street %q", addr.Street)
	}
	if addr.City != "San Francisco" || addr.State != "CA" || addr.PostalCode != "94105" || addr.Country != "US" {
		t.Fatalf("unexpected address %+v", addr)
	}
	if addr.Formatted != details.FormattedAddress {
		t.Fatalf("unexpected formatted %q", addr.Formatted)
	}

	point := details.Point()
	if point.Lat != 37.79 || point.Lng != -122.39 {
		t.Fatalf("unexpected point %+v", point)
	}
}

func TestResolvePlaceNotFound(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader(`{}`)),
			Header:     http.Header{},
		}, nil
	})
	client, err := NewClient("key", WithBaseURL("http://maps.test/v1"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.ResolvePlace(context.Background(), "missing")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNilClientReportsDependencyError(t *testing.T) {
	var client *Client
	_, err := client.ResolvePlace(context.Background(), "place")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}
