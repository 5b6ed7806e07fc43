package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/heejin-dev/pv-data-collection/internal/collect"
	"github.com/heejin-dev/pv-data-collection/internal/dates"
	"github.com/heejin-dev/pv-data-collection/internal/pipeline"
)

var validate = validator.New()

// collectRequest is the payload for a manually triggered run. Dates
// accept YYYYMMDD, YYYY-MM-DD or YYYY/MM/DD; endDate defaults to
// startDate, and both default to yesterday when startDate is omitted.
type collectRequest struct {
	OrgNo     string `json:"org" validate:"omitempty,alphanum,max=10"`
	HokiS     string `json:"hokiS" validate:"omitempty,numeric,max=3"`
	HokiE     string `json:"hokiE" validate:"omitempty,numeric,max=3"`
	StartDate string `json:"startDate" validate:"omitempty,min=8,max=10"`
	EndDate   string `json:"endDate" validate:"omitempty,min=8,max=10"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *pipeline.Service, defaults collect.Filters) {
	v1 := app.Group("/api/v1")

	v1.Post("/collect", func(c *fiber.Ctx) error {
		var req collectRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		job, err := buildJob(req, defaults)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runID, err := service.TryStart(job)
		if err != nil {
			if errors.Is(err, pipeline.ErrRunInProgress) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to start collection run")
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"runId": runID,
			"start": dates.Compact(job.Start),
			"end":   dates.Compact(job.End),
		})
	})

	v1.Get("/runs/last", func(c *fiber.Ctx) error {
		summary, ok := service.LastRun()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no run has completed yet")
		}
		return c.JSON(summary)
	})
}

// buildJob validates and normalizes the request into a pipeline job.
// Date validation happens here, before any network activity: an
// inverted range must fail fast.
func buildJob(req collectRequest, defaults collect.Filters) (pipeline.Job, error) {
	filters := defaults
	if req.OrgNo != "" {
		filters.OrgNo = req.OrgNo
	}
	if req.HokiS != "" {
		filters.HokiS = req.HokiS
	}
	if req.HokiE != "" {
		filters.HokiE = req.HokiE
	}

	var start, end time.Time
	var err error

	if req.StartDate == "" {
		start = dates.Yesterday(time.Now())
		end = start
	} else {
		if start, err = dates.Normalize(req.StartDate); err != nil {
			return pipeline.Job{}, fmt.Errorf("startDate: %w", err)
		}
		if req.EndDate == "" {
			end = start
		} else if end, err = dates.Normalize(req.EndDate); err != nil {
			return pipeline.Job{}, fmt.Errorf("endDate: %w", err)
		}
	}

	if end.Before(start) {
		return pipeline.Job{}, fmt.Errorf("%w: %s > %s", dates.ErrInvalidRange, dates.Compact(start), dates.Compact(end))
	}

	return pipeline.Job{Filters: filters, Start: start, End: end}, nil
}
