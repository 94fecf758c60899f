package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-normalizer/internal/imagery"
	"github.com/i474232898/weather-normalizer/internal/weather"
	"github.com/i474232898/weather-normalizer/internal/weather/providers"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, images *imagery.Manager) {
	v1 := app.Group("/api/v1")

	v1.Get("/snapshot", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshot, err := service.GetSnapshot(c.UserContext(), loc)
		if err != nil {
			return upstreamError(err, "failed to fetch weather data")
		}
		return c.JSON(snapshot)
	})

	v1.Post("/snapshots", func(c *fiber.Ctx) error {
		var req batchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.JSON(fiber.Map{
			"snapshots": service.GetBatchSnapshots(c.UserContext(), req.Locations),
		})
	})

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		var req searchQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		locs, err := service.SearchLocation(c.UserContext(), req.Query, req.Limit)
		if err != nil {
			return upstreamError(err, "failed to search locations")
		}
		return c.JSON(fiber.Map{"locations": locs})
	})

	v1.Get("/locations/reverse", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		named, err := service.ReverseGeocode(c.UserContext(), loc)
		if err != nil {
			return upstreamError(err, "failed to reverse geocode location")
		}
		return c.JSON(named)
	})

	v1.Get("/imagery/timeline", func(c *fiber.Ctx) error {
		layer, err := imagery.ParseLayer(c.Query("layer"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		timeline, err := images.GetTimeline(c.UserContext(), layer)
		if err != nil {
			return upstreamError(err, "failed to fetch imagery timeline")
		}
		return c.JSON(timeline)
	})

	v1.Get("/imagery/tile", func(c *fiber.Ctx) error {
		var req tileQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		tile := imagery.Tile{X: req.X, Y: req.Y, Z: req.Zoom}
		if req.At != nil {
			tile = imagery.TileAt(req.At.Lat, req.At.Lon, req.Zoom)
		}
		if limit := 1 << tile.Z; tile.X >= limit || tile.Y >= limit {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("tile %d/%d out of range for zoom %d", tile.X, tile.Y, tile.Z))
		}

		style := req.Style.Normalize()
		return c.JSON(fiber.Map{
			"url":   images.TileURL(req.Layer, req.Timestamp, tile.Z, tile.X, tile.Y, style),
			"tile":  tile,
			"style": style,
		})
	})

	admin := v1.Group("/admin/cache")

	admin.Put("/ttl", func(c *fiber.Ctx) error {
		var req ttlRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		ttl, err := time.ParseDuration(req.TTL)
		if err != nil || ttl < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "ttl must be a non-negative duration such as 5m")
		}

		service.SetTTL(ttl)
		return c.JSON(fiber.Map{"ttl": ttl.String()})
	})

	admin.Delete("/", func(c *fiber.Ctx) error {
		service.ClearCache()
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// upstreamError maps service errors onto HTTP status codes.
func upstreamError(err error, msg string) error {
	switch {
	case errors.Is(err, weather.ErrEmptyQuery), errors.Is(err, imagery.ErrUnknownLayer):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, providers.ErrNoResults):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, weather.ErrNoGeocoder):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, providers.ErrTransport), errors.Is(err, providers.ErrParse):
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("%s: %v", msg, err))
	default:
		return fiber.NewError(fiber.StatusInternalServerError, msg)
	}
}

type batchRequest struct {
	Locations []weather.Location `json:"locations" validate:"required,min=1,max=50,dive"`
}

type ttlRequest struct {
	TTL string `json:"ttl"`
}

func parseLocationQuery(c *fiber.Ctx) (weather.Location, error) {
	lat, err := floatQuery(c, "lat")
	if err != nil {
		return weather.Location{}, err
	}
	lon, err := floatQuery(c, "lon")
	if err != nil {
		return weather.Location{}, err
	}

	loc := weather.Location{Lat: lat, Lon: lon}
	if err := validate.Struct(loc); err != nil {
		return weather.Location{}, err
	}
	return loc, nil
}

// searchQuery holds query parameters for the location search endpoint.
type searchQuery struct {
	Query string `validate:"required,max=200"`
	Limit int    `validate:"gte=0,lte=20"`
}

func (q *searchQuery) bind(c *fiber.Ctx) error {
	q.Query = c.Query("q")
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		q.Limit = n
	}
	return nil
}

// tileQuery holds query parameters for the tile URL endpoint. When At is
// set, x and y are derived from the coordinate.
type tileQuery struct {
	Layer     imagery.Layer
	Timestamp int64 `validate:"gt=0"`
	Zoom      int   `validate:"gte=0,lte=20"`
	X         int   `validate:"gte=0"`
	Y         int   `validate:"gte=0"`
	At        *weather.Location
	Style     imagery.TileStyle
}

func (q *tileQuery) bind(c *fiber.Ctx) error {
	layer, err := imagery.ParseLayer(c.Query("layer"))
	if err != nil {
		return err
	}
	q.Layer = layer

	ts, err := strconv.ParseInt(c.Query("ts"), 10, 64)
	if err != nil {
		return errors.New("ts must be a unix timestamp")
	}
	q.Timestamp = ts

	if q.Zoom, err = intQuery(c, "z"); err != nil {
		return err
	}

	if c.Query("lat") != "" || c.Query("lon") != "" {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return err
		}
		q.At = &loc
	} else {
		if q.X, err = intQuery(c, "x"); err != nil {
			return err
		}
		if q.Y, err = intQuery(c, "y"); err != nil {
			return err
		}
	}

	// Unparseable style values keep their default, like out-of-range ones.
	q.Style = imagery.DefaultTileStyle()
	for key, dst := range map[string]*int{
		"size":   &q.Style.Size,
		"color":  &q.Style.Color,
		"smooth": &q.Style.Smooth,
		"snow":   &q.Style.Snow,
	} {
		if v, err := strconv.Atoi(c.Query(key)); err == nil {
			*dst = v
		}
	}
	return nil
}

func floatQuery(c *fiber.Ctx, key string) (float64, error) {
	s := c.Query(key)
	if s == "" {
		return 0, fmt.Errorf("%s query parameter is required", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

func intQuery(c *fiber.Ctx, key string) (int, error) {
	s := c.Query(key)
	if s == "" {
		return 0, fmt.Errorf("%s query parameter is required", key)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}
