package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/yemble/pointcast/internal/fetchcache"
	"github.com/yemble/pointcast/internal/forecast"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, controller *forecast.Controller) {
	v1 := app.Group("/api/v1")

	// Without coordinates this returns the currently displayed snapshot;
	// with them it runs the pipeline for that point and returns the result.
	v1.Get("/forecast", func(c *fiber.Ctx) error {
		if c.Query("lat") == "" && c.Query("lng") == "" {
			return c.JSON(controller.CurrentSnapshot())
		}

		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snap, err := controller.Forecast(c.Context(), loc)
		if errors.Is(err, fetchcache.ErrInFlight) {
			// An earlier request for the same point is still outstanding.
			return c.Status(fiber.StatusAccepted).JSON(snap)
		}
		if err != nil {
			// The snapshot carries the per-stage error.
			return c.Status(fiber.StatusBadGateway).JSON(snap)
		}
		return c.JSON(snap)
	})

	// Location-change event: kicks off the pipeline in the background.
	v1.Post("/location", func(c *fiber.Ctx) error {
		var body locationBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc := forecast.Location{Lat: body.Lat, Lng: body.Lng}
		controller.SetLocation(loc)

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"locationHash": loc.Hash(),
		})
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		return c.JSON(controller.Settings())
	})

	v1.Put("/settings", func(c *fiber.Ctx) error {
		var body settingsBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if body.IntervalHours != nil {
			if err := controller.SetInterval(*body.IntervalHours); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if body.Units != nil {
			if err := controller.SetUnits(c.Context(), forecast.UnitSystem(*body.Units)); err != nil && !errors.Is(err, fetchcache.ErrInFlight) {
				var upstream *forecast.UpstreamError
				if errors.As(err, &upstream) {
					return fiber.NewError(fiber.StatusBadGateway, err.Error())
				}
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if body.DefaultLocation != nil {
			loc := forecast.Location{Lat: body.DefaultLocation.Lat, Lng: body.DefaultLocation.Lng}
			if err := controller.SetDefaultLocation(loc); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		return c.JSON(controller.Settings())
	})
}

type locationBody struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type settingsBody struct {
	DefaultLocation *locationBody `json:"defaultLocation" validate:"omitempty"`
	IntervalHours   *int          `json:"intervalHours" validate:"omitempty,min=1,max=3"`
	Units           *string       `json:"units" validate:"omitempty,oneof=imperial metric"`
}

func parseLocationQuery(c *fiber.Ctx) (forecast.Location, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return forecast.Location{}, errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		return forecast.Location{}, errors.New("lng must be a number")
	}

	q := locationBody{Lat: lat, Lng: lng}
	if err := validate.Struct(q); err != nil {
		return forecast.Location{}, err
	}
	return forecast.Location{Lat: lat, Lng: lng}, nil
}
