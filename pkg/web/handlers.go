package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/dukex/flowforge/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// Dependencies are the services the handlers delegate to.
type Dependencies struct {
	Workflows     *services.Workflow
	Runs          *services.Run
	Documents     *services.Document
	ChatEvents    *services.ChatEvents
	Registry      *registry.Registry
	Gatherer      prometheus.Gatherer
	SigningSecret string
	Logger        *slog.Logger
}

type APIHandlers struct {
	workflowService *services.Workflow
	runService      *services.Run
	documentService *services.Document
	chatEvents      *services.ChatEvents
	registry        *registry.Registry
	gatherer        prometheus.Gatherer
	signingSecret   string
	validator       *validator.Validate
	logger          *slog.Logger
}

func NewAPIHandlers(deps Dependencies) *APIHandlers {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &APIHandlers{
		workflowService: deps.Workflows,
		runService:      deps.Runs,
		documentService: deps.Documents,
		chatEvents:      deps.ChatEvents,
		registry:        deps.Registry,
		gatherer:        gatherer,
		signingSecret:   deps.SigningSecret,
		validator:       validator.New(validator.WithRequiredStructEnabled()),
		logger:          logger.With("module", "web"),
	}
}

// Routes mounts every endpoint on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	router.Get("/node-types", h.GetNodeTypes)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/validate", h.ValidateWorkflow)
	w.Post("/:id/runs", h.RunWorkflow)

	router.Get("/runs/:id", h.GetRun)
	router.Post("/webhooks/:webhookId", h.TriggerWebhook)
	router.Post("/slack/events", h.SlackEvents)
	router.Post("/documents", h.IndexDocument)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(h.registry.Descriptors())
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), c.Query("user_id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req models.Workflow
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.workflowService.Create(c.Context(), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req models.Workflow
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	updated, err := h.workflowService.Update(c.Context(), c.Params("id"), &req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Validate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"valid": true})
}

func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	result, err := h.runService.Start(c.Context(), c.Params("id"), req.UserID, req.Input)

	return h.runResponse(c, result, err)
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	details, err := h.runService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(details)
}

// TriggerWebhook runs the workflow bound to the webhook id. A JSON object
// body with an "input" field uses that field as the run input; any other
// body is the input itself.
func (h *APIHandlers) TriggerWebhook(c fiber.Ctx) error {
	var input any

	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(RunResponse{Success: false, Error: err.Error()})
		}
	}

	if object, ok := input.(map[string]any); ok {
		if inner, ok := object["input"]; ok {
			input = inner
		}
	}

	result, err := h.runService.TriggerWebhook(c.Context(), c.Params("webhookId"), input)
	if persistence.IsWorkflowNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Invalid webhook"})
	}

	return h.runResponse(c, result, err)
}

func (h *APIHandlers) runResponse(c fiber.Ctx, result *services.RunResult, err error) error {
	if err != nil {
		var runErr *workflow.RunError
		if !errors.As(err, &runErr) {
			return handleServiceError(c, err)
		}

		return c.Status(fiber.StatusInternalServerError).JSON(RunResponse{
			Success: false,
			RunID:   result.RunID,
			Error:   err.Error(),
		})
	}

	return c.JSON(RunResponse{Success: true, RunID: result.RunID, Output: result.Output})
}

// SlackEvents answers url_verification challenges, verifies the request
// signature and dispatches event callbacks to matching chat triggers.
func (h *APIHandlers) SlackEvents(c fiber.Ctx) error {
	body := c.Body()

	var envelope chatEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if envelope.Type == slackevents.URLVerification {
		return c.JSON(fiber.Map{"challenge": envelope.Challenge})
	}

	header := http.Header{}
	for key, values := range c.GetReqHeaders() {
		for _, value := range values {
			header.Add(key, value)
		}
	}

	verifier, err := slack.NewSecretsVerifier(header, h.signingSecret)
	if err != nil {
		return badRequest(c, "Invalid timestamp.")
	}

	_, err = verifier.Write(body)
	if err == nil {
		err = verifier.Ensure()
	}

	if err != nil {
		return unauthorized(c, "Invalid signature.")
	}

	if envelope.Type != slackevents.CallbackEvent {
		return c.JSON(fiber.Map{"ok": true})
	}

	var raw any
	_ = json.Unmarshal(body, &raw)

	teamID := envelope.TeamID
	if teamID == "" {
		teamID = envelope.Event.Team
	}

	_, err = h.chatEvents.Dispatch(c.Context(), services.ChatEvent{
		TeamID:    teamID,
		EventID:   envelope.EventID,
		EventType: envelope.Event.Type,
		Subtype:   envelope.Event.Subtype,
		Channel:   envelope.Event.Channel,
		User:      envelope.Event.User,
		Text:      envelope.Event.Text,
		BotID:     envelope.Event.BotID,
		Raw:       raw,
	})
	if err != nil {
		h.logger.ErrorContext(c.Context(), "failed to dispatch chat event", "event_id", envelope.EventID, "error", err)
	}

	return c.JSON(fiber.Map{"ok": true})
}

func (h *APIHandlers) IndexDocument(c fiber.Ctx) error {
	var req services.IndexRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.documentService.Index(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}
