package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/scope"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/sanitizer"
)

// PinRepository is what the pins controller needs from storage.
type PinRepository interface {
	Create(ctx context.Context, p *schema.Pin) error
	ByID(ctx context.Context, id string) (*schema.Pin, error)
	List(ctx context.Context, f store.PinFilter) ([]schema.Pin, error)
	Update(ctx context.Context, id string, patch store.PinPatch) (*schema.Pin, error)
	Delete(ctx context.Context, id string) error
}

// LatLng is a coordinate pair in request bodies.
type LatLng struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

func (ll *LatLng) point() *schema.Point {
	if ll == nil {
		return nil
	}
	return schema.NewPoint(ll.Lat, ll.Lng)
}

// PinInput is the POST /pins body.
type PinInput struct {
	Title       string   `json:"title"       validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	URL         string   `json:"url"         validate:"omitempty,url"`
	Tags        []string `json:"tags"        validate:"max=20,dive,max=40"`
	Location    *LatLng  `json:"location"`
	VenueID     string   `json:"venue_id"    validate:"max=64"`
}

// Sanitize strips markup so a title made only of tags fails required.
func (in *PinInput) Sanitize() {
	in.Title = sanitizer.Text(in.Title)
	in.Description = sanitizer.RichText(in.Description)
}

// PinUpdate is the PATCH /pins/{id} body.
type PinUpdate struct {
	Title       *string   `json:"title"       validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	URL         *string   `json:"url"         validate:"omitempty,url"`
	Tags        *[]string `json:"tags"        validate:"omitempty,max=20,dive,max=40"`
	Location    *LatLng   `json:"location"`
	VenueID     *string   `json:"venue_id"    validate:"omitempty,max=64"`
}

func (in *PinUpdate) Sanitize() {
	if in.Title != nil {
		t := sanitizer.Text(*in.Title)
		in.Title = &t
	}
	if in.Description != nil {
		d := sanitizer.RichText(*in.Description)
		in.Description = &d
	}
}

type pinsController struct {
	pins   PinRepository
	scopes scope.Set
}

// Pins returns the pins controller.
func Pins(pins PinRepository, scopes scope.Set) app.Controller {
	pc := &pinsController{pins: pins, scopes: scopes}
	return app.Controller{
		Name: "pins",
		Base: "/pins",
		Routes: []app.Route{
			{Method: http.MethodGet, Path: "/", Handler: pc.list},
			{Method: http.MethodGet, Path: "/{id}", Handler: pc.get},
			{Method: http.MethodPost, Path: "/", Scope: scope.PinsCreate, Handler: pc.create},
			{Method: http.MethodPatch, Path: "/{id}", Scope: scope.PinsWriteOwn, Handler: pc.update},
			{Method: http.MethodDelete, Path: "/{id}", Scope: scope.PinsDeleteOwn, Handler: pc.delete},
		},
	}
}

// parseNear reads "lat,lng".
func parseNear(raw string) (*schema.Point, error) {
	latS, lngS, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, app.ErrBadRequest("near must be lat,lng")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, app.ErrBadRequest("invalid latitude in near")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, app.ErrBadRequest("invalid longitude in near")
	}
	return schema.NewPoint(lat, lng), nil
}

func (pc *pinsController) list(c app.Context) error {
	limit, offset := page(c)
	f := store.PinFilter{
		UserID: c.Query("user"),
		Radius: app.QueryFloat(c, "radius", 0),
		Page:   store.Page{Limit: int64(limit), Offset: int64(offset)},
	}
	if raw := c.Query("near"); raw != "" {
		p, err := parseNear(raw)
		if err != nil {
			return err
		}
		f.Near = p
	}
	pins, err := pc.pins.List(c, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"pins": pins, "limit": limit, "offset": offset})
}

func (pc *pinsController) get(c app.Context) error {
	p, err := pc.pins.ByID(c, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (pc *pinsController) create(c app.Context) error {
	who, err := principal(c)
	if err != nil {
		return err
	}
	var in PinInput
	if err := app.Bind(c, &in); err != nil {
		return err
	}
	p := &schema.Pin{
		UserID:      who.Subject,
		Title:       in.Title,
		Description: in.Description,
		URL:         in.URL,
		Tags:        in.Tags,
		Location:    in.Location.point(),
		VenueID:     in.VenueID,
	}
	if err := pc.pins.Create(c, p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (pc *pinsController) owned(c app.Context, override string) (*schema.Pin, error) {
	p, err := pc.pins.ByID(c, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if _, err := ownerOr(c, pc.scopes, p.UserID, override); err != nil {
		return nil, err
	}
	return p, nil
}

func (pc *pinsController) update(c app.Context) error {
	p, err := pc.owned(c, scope.PinsWrite)
	if err != nil {
		return err
	}
	var in PinUpdate
	if err := app.Bind(c, &in); err != nil {
		return err
	}
	updated, err := pc.pins.Update(c, p.ID, store.PinPatch{
		Title:       in.Title,
		Description: in.Description,
		URL:         in.URL,
		Tags:        in.Tags,
		Location:    in.Location.point(),
		VenueID:     in.VenueID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (pc *pinsController) delete(c app.Context) error {
	p, err := pc.owned(c, scope.PinsDelete)
	if err != nil {
		return err
	}
	if err := pc.pins.Delete(c, p.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
