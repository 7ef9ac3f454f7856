package handlers

import "github.com/gofiber/fiber/v2"

const serviceName = "Woo Slack Store Tools"

// HealthHandler handles liveness requests. It never touches upstream.
type HealthHandler struct {
	Version  string
	Sessions func() int
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions func() int) *HealthHandler {
	return &HealthHandler{
		Version:  version,
		Sessions: sessions,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "OK",
		"service": serviceName,
		"version": h.Version,
	})
}

// Root describes the service and its endpoints.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	active := 0
	if h.Sessions != nil {
		active = h.Sessions()
	}
	return c.JSON(fiber.Map{
		"service":  serviceName,
		"version":  h.Version,
		"sessions": active,
		"endpoints": fiber.Map{
			"health":   "/health",
			"commands": "/slack/*",
			"interact": "/slack/interact",
		},
	})
}
