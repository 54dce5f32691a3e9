package sync

import (
	"membersync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the sync engine.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/runs", h.HandleStartRun)
	group.Get("/runs/:id", h.HandleGetRun)
	group.Delete("/runs/:id", h.HandleCancelRun)
}

// HandleStartRun enqueues a manual sync run and returns its id. If a manual
// run is already queued or executing, the existing run's id comes back; the
// engine never runs the manual job twice concurrently.
func (h *Handler) HandleStartRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	opts := DefaultOptions()
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&opts); err != nil {
			l.Warn("Rejected malformed run options", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "malformed run options",
			})
		}
	}

	run := h.service.RunManual(opts)
	l.Info("Manual sync requested", zap.String("run_id", run.ID))

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run_id": run.ID,
	})
}

// HandleGetRun returns the current state snapshot of a run.
func (h *Handler) HandleGetRun(c *fiber.Ctx) error {
	snap, ok := h.service.Observe(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "run not found",
		})
	}
	return c.JSON(snap)
}

// HandleCancelRun requests cancellation of a run. Cancellation takes effect
// at the run's next suspension point; the snapshot eventually reports
// cancelled.
func (h *Handler) HandleCancelRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	id := c.Params("id")
	if !h.service.Cancel(id) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "run not found",
		})
	}

	l.Info("Run cancellation requested", zap.String("run_id", id))
	return c.SendStatus(fiber.StatusNoContent)
}
