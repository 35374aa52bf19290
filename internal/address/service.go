package address

import (
	"context"
	"strings"

	"github.com/angelmondragon/parkfinder-backend/pkg/errors"
	"github.com/angelmondragon/parkfinder-backend/pkg/geo"
	"github.com/angelmondragon/parkfinder-backend/pkg/maps"
	"github.com/angelmondragon/parkfinder-backend/pkg/types"
)

const maxQueryLength = 200

// Places is the Google Places surface the service needs.
type Places interface {
	Autocomplete(ctx context.Context, req maps.AutocompleteRequest) ([]maps.AutocompleteSuggestion, error)
	ResolvePlace(ctx context.Context, placeID string) (*maps.PlaceDetails, error)
}

// Service turns free-text search into place ids, and place ids into a point plus address.
type Service interface {
	Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error)
	Resolve(ctx context.Context, placeID string) (*Place, error)
}

type service struct {
	places Places
}

// NewService returns a service that reports a dependency error when places is nil.
func NewService(places Places) Service {
	return &service{places: places}
}

func (s *service) Suggest(ctx context.Context, req SuggestRequest) ([]Suggestion, error) {
	if s == nil || s.places == nil {
		return nil, errors.New(errors.CodeDependency, "place search unavailable")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" || len(query) > maxQueryLength {
		return nil, errors.New(errors.CodeValidation, "query is required").
			WithDetails(map[string]string{"input": "must be between 1 and 200 characters"})
	}

	payload := maps.AutocompleteRequest{Input: query}
	if region := strings.TrimSpace(req.Region); region != "" {
		payload.IncludedRegionCodes = []string{strings.ToLower(region)}
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		payload.LanguageCode = lang
	}

	resp, err := s.places.Autocomplete(ctx, payload)
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(resp))
	for _, item := range resp {
		suggestions = append(suggestions, Suggestion{
			PlaceID:     item.PlaceID,
			Description: item.Description,
		})
	}
	return suggestions, nil
}

func (s *service) Resolve(ctx context.Context, placeID string) (*Place, error) {
	if s == nil || s.places == nil {
		return nil, errors.New(errors.CodeDependency, "place search unavailable")
	}
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, errors.New(errors.CodeValidation, "placeId is required")
	}

	details, err := s.places.ResolvePlace(ctx, placeID)
	if err != nil {
		return nil, err
	}
	return toPlace(placeID, details)
}

func toPlace(placeID string, details *maps.PlaceDetails) (*Place, error) {
	if details == nil {
		return nil, errors.New(errors.CodeDependency, "place details missing")
	}
	if details.Location.Latitude == 0 && details.Location.Longitude == 0 {
		return nil, errors.New(errors.CodeDependency, "place location missing")
	}
	point := details.Point()
	if err := geo.ValidatePoint(point); err != nil {
		return nil, err
	}
	if details.PlaceID != "" {
		placeID = details.PlaceID
	}
	return &Place{PlaceID: placeID, Location: point, Address: details.Address()}, nil
}

type SuggestRequest struct {
	Query    string
	Region   string
	Language string
}

type Suggestion struct {
	PlaceID     string `json:"placeId"`
	Description string `json:"description"`
}

// Place is a resolved place ready to prefill a lot or request form.
type Place struct {
	PlaceID  string               `json:"placeId"`
	Location types.GeographyPoint `json:"location"`
	Address  types.Address        `json:"address"`
}
