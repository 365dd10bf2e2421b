package routes

import (
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/schema"
)

// Search types.
const (
	SearchAll   = "all"
	SearchPins  = "pins"
	SearchUsers = "users"
)

// SearchResult is the GET /search body. Users are public profiles.
type SearchResult struct {
	Pins  []schema.Pin    `json:"pins"`
	Users []schema.Public `json:"users"`
}

// Search runs the pin text search and the user prefix search concurrently.
func Search(pins PinSearcher, users UserRepository) app.HandlerFunc {
	return func(c app.Context) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return app.ErrBadRequest("q is required")
		}
		if len(q) > 200 {
			return app.ErrBadRequest("q is too long")
		}
		kind := c.QueryDefault("type", SearchAll)
		if kind != SearchAll && kind != SearchPins && kind != SearchUsers {
			return app.ErrBadRequest("type must be one of all, pins, users")
		}
		limit := int64(app.QueryInt(c, "limit", 20, 1, 50))

		res := SearchResult{Pins: []schema.Pin{}, Users: []schema.Public{}}
		g, ctx := errgroup.WithContext(c)
		if kind != SearchUsers {
			g.Go(func() error {
				found, err := pins.Search(ctx, q, limit)
				if err != nil {
					return err
				}
				res.Pins = found
				return nil
			})
		}
		if kind != SearchPins {
			g.Go(func() error {
				found, err := users.Search(ctx, q, limit)
				if err != nil {
					return err
				}
				for i := range found {
					res.Users = append(res.Users, found[i].Public())
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	}
}
