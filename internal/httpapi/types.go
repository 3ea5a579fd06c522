package httpapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/bryan-besnyi/siteindex/internal/listing"
)

// listingRequest is the create/update payload.
type listingRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Category  string `json:"category" validate:"required,categoryletter"`
	URL       string `json:"url" validate:"required,url,max=2048"`
	Partition string `json:"partition" validate:"required,partition"`
}

func (r listingRequest) toListing() listing.Listing {
	return listing.Listing{
		Title:     r.Title,
		Category:  r.Category,
		URL:       r.URL,
		Partition: listing.Partition(r.Partition),
	}
}

// importRequest is the bulk-import payload.
type importRequest struct {
	Listings []listingRequest `json:"listings" validate:"required,min=1,max=500,dive"`
}

// invalidateRequest mirrors cache.Selector for the admin endpoint.
type invalidateRequest struct {
	Key     string   `json:"key,omitempty"`
	Keys    []string `json:"keys,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

type invalidateResponse struct {
	InvalidatedCount int `json:"invalidatedCount"`
}

type analyticsResponse struct {
	ByCategory  []listing.Counts `json:"byCategory"`
	ByPartition []listing.Counts `json:"byPartition"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

// requestValidator adapts go-playground/validator to echo's Validator
// interface, with the two domain rules registered.
type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	must(v.RegisterValidation("categoryletter", func(fl validator.FieldLevel) bool {
		return listing.ValidCategory(fl.Field().String())
	}))
	must(v.RegisterValidation("partition", func(fl validator.FieldLevel) bool {
		return listing.Partition(fl.Field().String()).Valid()
	}))
	return &requestValidator{v: v}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func (rv *requestValidator) Validate(i any) error {
	if err := rv.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
