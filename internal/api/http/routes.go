package httpapi

import (
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/soeholm/vandstand/internal/stations"
	"github.com/soeholm/vandstand/internal/waterlevel"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *waterlevel.Service) {
	api := app.Group("/api")

	api.Get("/waterlevel/:station?", func(c *fiber.Ctx) error {
		req, err := parseStationParam(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		station, _ := stations.Lookup(req.station())
		resp, err := service.WaterLevel(c.UserContext(), station)
		if err != nil {
			return err
		}
		return c.JSON(resp)
	})

	api.Post("/refresh", func(c *fiber.Ctx) error {
		var q refreshQuery
		q.Station = c.Query("station")
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if q.Station == "" {
			service.InvalidateAll()
		} else {
			st, _ := stations.Lookup(q.Station)
			service.Invalidate(st.Name)
		}
		return c.JSON(fiber.Map{
			"status":  "cleared",
			"message": "Next request will fetch fresh data",
		})
	})

	api.Get("/stations", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"stations":       stations.All(),
			"defaultStation": stations.DefaultName,
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"cacheState": service.CacheState(stations.DefaultName),
			"timestamp":  time.Now().UTC(),
		})
	})
}

// ErrorHandler builds the centralized Fiber error handler. Client errors get
// a plain JSON error; anything unhandled becomes a 500 that still carries a
// simulated water-level payload, so consumers always see a valid shape.
func ErrorHandler(service *waterlevel.Service) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if e, ok := err.(*fiber.Error); ok && e.Code < fiber.StatusInternalServerError {
			return c.Status(e.Code).JSON(fiber.Map{
				"error":   true,
				"message": e.Message,
			})
		}

		station := stations.DefaultName
		if p, perr := parseStationParam(c); perr == nil {
			station = p.station()
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":    true,
			"message":  err.Error(),
			"fallback": service.Fallback(station),
		})
	}
}

// refreshQuery holds the optional query parameter of the refresh route.
type refreshQuery struct {
	Station string `validate:"omitempty,max=64"`
}

// stationParam holds the optional path parameter of the waterlevel route.
type stationParam struct {
	Station string `validate:"omitempty,max=64"`
}

func (p stationParam) station() string {
	if p.Station == "" {
		return stations.DefaultName
	}
	return p.Station
}

func parseStationParam(c *fiber.Ctx) (stationParam, error) {
	var p stationParam

	raw := c.Params("station")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	p.Station = raw

	if err := validate.Struct(p); err != nil {
		return p, err
	}
	return p, nil
}
