// Package agentsim serves a simulated planning agent for local development.
package agentsim

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/logger"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/models"
	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/validation"
)

// Options configures the simulated agent
type Options struct {
	// StepDelay is the time spent in each planning step
	StepDelay time.Duration
	// AccessLog receives one line per request; nil disables it
	AccessLog io.Writer
	Now       func() time.Time
}

type Server struct {
	app       *fiber.App
	sim       *Simulator
	editor    *Editor
	validator *validation.Validator
}

func New(opts Options) *Server {
	s := &Server{
		sim:       NewSimulator(opts.StepDelay, opts.Now),
		editor:    NewEditor(),
		validator: validation.New(),
	}

	app := fiber.New(fiber.Config{
		AppName:               constants.AppName + " agent simulator",
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if opts.AccessLog != nil {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output: opts.AccessLog,
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", s.Health)
	app.Get(constants.AgentDiscoveryPath, s.Discover)

	api := app.Group(constants.AgentAPIPath)
	api.Post("/create", s.Create)
	api.Get("/progress/:id", s.Progress)
	api.Get("/result/:id", s.Result)
	api.Post("/cancel/:id", s.Cancel)
	api.Post("/export/:id", s.Export)
	api.Get("/list", s.List)
	api.Delete("/:id", s.Delete)

	edit := app.Group(constants.AgentEditPath)
	edit.Post("/start_edit_session", s.StartEditSession)
	edit.Post("/chat", s.Chat)
	edit.Post("/end_edit_session", s.EndEditSession)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	logger.Info("Agent simulator listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Health handles GET /health
func (s *Server) Health(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"status":    "healthy",
		"timestamp": s.sim.now().Format(timeLayout),
	})
}

// Discover handles GET /api/agent-service-url/ the way the portal does
func (s *Server) Discover(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"status": "success",
		"url":    c.BaseURL(),
	})
}

// Create handles POST /api/travel-plan/create
func (s *Server) Create(c *fiber.Ctx) error {
	var req models.PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.SpecialRequirements == nil {
		req.SpecialRequirements = []string{}
	}

	if err := s.validator.ValidateRequest(&req); err != nil {
		return validationError(c, err.Error(), validation.FieldErrors(s.validator.Struct().Struct(&req)))
	}

	id := s.sim.Create(req)
	logger.Debug("Simulated plan created", "plan_id", id, "heritage_ids", req.HeritageIDs)

	return ok(c, models.PlanResponse{
		Success: true,
		PlanID:  id,
		Message: constants.MsgPlanStarted,
		Data: &models.PlanResponseData{
			PlanID:        id,
			TravelDays:    req.TravelDays,
			EstimatedTime: fmt.Sprintf("about %d seconds", int(s.sim.EstimatedTime().Seconds())),
		},
	})
}

// Progress handles GET /api/travel-plan/progress/:id
func (s *Server) Progress(c *fiber.Ctx) error {
	snap, err := s.sim.Snapshot(c.Params("id"))
	if err != nil {
		return notFound(c, err.Error())
	}
	return ok(c, snap)
}

// Result handles GET /api/travel-plan/result/:id
func (s *Server) Result(c *fiber.Ctx) error {
	id := c.Params("id")
	raw, snap, err := s.sim.Result(id)
	switch {
	case errors.Is(err, errJobNotFound):
		return notFound(c, "result does not exist")
	case err != nil:
		return err
	}

	switch snap.Status {
	case constants.StatusCompleted:
		return ok(c, models.ResultEnvelope{Success: true, PlanID: id, Data: raw})
	case constants.StatusError:
		return ok(c, models.ResultEnvelope{PlanID: id, Error: snap.ErrorMessage})
	default:
		return ok(c, models.ResultEnvelope{Status: string(snap.Status), Message: "in progress"})
	}
}

// Cancel handles POST /api/travel-plan/cancel/:id
func (s *Server) Cancel(c *fiber.Ctx) error {
	switch err := s.sim.Cancel(c.Params("id")); {
	case errors.Is(err, errJobNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, errJobFinished):
		return conflict(c, err.Error())
	case err != nil:
		return err
	}
	return ok(c, fiber.Map{"success": true, "message": constants.MsgPlanCancelled})
}

// Export handles POST /api/travel-plan/export/:id
func (s *Server) Export(c *fiber.Ctx) error {
	var body struct {
		Format string `json:"format"`
	}
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	format := strings.ToLower(strings.TrimSpace(body.Format))
	if format == "" {
		format = constants.ExportPDF
	}
	if format != constants.ExportPDF && format != constants.ExportJSON {
		return badRequest(c, "unsupported export format "+body.Format)
	}

	id := c.Params("id")
	raw, snap, err := s.sim.Result(id)
	switch {
	case errors.Is(err, errJobNotFound):
		return notFound(c, "plan does not exist")
	case err != nil:
		return err
	case snap.Status != constants.StatusCompleted:
		return badRequest(c, "plan is not completed")
	}

	c.Attachment(fmt.Sprintf("plan_%s.%s", id, format))
	if format == constants.ExportJSON {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(raw)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(fakePDF(id))
}

// List handles GET /api/travel-plan/list
func (s *Server) List(c *fiber.Ctx) error {
	plans := s.sim.List()
	return ok(c, fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total": len(plans),
			"plans": plans,
		},
	})
}

// Delete handles DELETE /api/travel-plan/:id
func (s *Server) Delete(c *fiber.Ctx) error {
	if err := s.sim.Delete(c.Params("id")); err != nil {
		return notFound(c, err.Error())
	}
	return ok(c, fiber.Map{"success": true, "message": "plan deleted"})
}

// StartEditSession handles POST /api/agent/start_edit_session
func (s *Server) StartEditSession(c *fiber.Ctx) error {
	var req models.EditSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	id, err := s.editor.Start(req.PlanData)
	if err != nil {
		return badRequest(c, err.Error())
	}
	logger.Debug("Simulated edit session started", "session_id", id, "plan_id", req.PlanID)
	return ok(c, models.EditSessionResponse{Success: true, SessionID: id, Message: constants.MsgEditSessionStarted})
}

// Chat handles POST /api/agent/chat. Unknown sessions are reported inside a
// successful envelope, as the agent does.
func (s *Server) Chat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct().Struct(&req); err != nil {
		return validationError(c, "invalid chat request", validation.FieldErrors(err))
	}

	reply, err := s.editor.Chat(req.SessionID, req.Message)
	switch {
	case errors.Is(err, errSessionNotFound):
		reply.Error = err.Error()
	case err != nil:
		return err
	}
	return ok(c, models.ChatResponse{Success: true, Data: reply, SessionID: reply.SessionID})
}

// EndEditSession handles POST /api/agent/end_edit_session
func (s *Server) EndEditSession(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := s.editor.End(req.SessionID); err != nil {
		return notFound(c, err.Error())
	}
	return ok(c, fiber.Map{"success": true, "message": "edit session ended"})
}

// fakePDF is a minimal single-page document naming the plan
func fakePDF(id string) []byte {
	return []byte("%PDF-1.4\n% " + constants.AppName + " simulated export\n% plan " + id + "\n%%EOF\n")
}
