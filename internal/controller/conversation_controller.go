package controller

import (
	"genius-be/internal/dto"
	"genius-be/internal/pkg/serverutils"
	"genius-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IConversationController interface {
	RegisterRoutes(r fiber.Router)
	Get(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Usage(ctx *fiber.Ctx) error
}

type conversationController struct {
	service   service.IConversationService
	auth      fiber.Handler
	rateLimit fiber.Handler
}

// NewConversationController takes the auth middleware and the limiter applied
// to submissions. rateLimit may be nil.
func NewConversationController(service service.IConversationService, auth, rateLimit fiber.Handler) IConversationController {
	return &conversationController{service: service, auth: auth, rateLimit: rateLimit}
}

func (c *conversationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conversation", c.auth)
	h.Get("/", c.Get)
	h.Get("/usage", c.Usage)
	h.Delete("/", c.Delete)
	if c.rateLimit != nil {
		h.Post("/", c.rateLimit, c.Send)
	} else {
		h.Post("/", c.Send)
	}
}

// Get lists sessions, or returns one transcript when sessionId is given.
func (c *conversationController) Get(ctx *fiber.Ctx) error {
	userId := serverutils.UserId(ctx)

	if sessionId := ctx.Query("sessionId"); sessionId != "" {
		res, err := c.service.GetHistory(ctx.UserContext(), userId, sessionId)
		if err != nil {
			return err
		}
		return ctx.JSON(res)
	}

	res, err := c.service.ListSessions(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *conversationController) Send(ctx *fiber.Ctx) error {
	var req dto.SendConversationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return dto.NewInvalidInputError("Invalid request body")
	}

	res, err := c.service.Send(ctx.UserContext(), serverutils.UserId(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *conversationController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.UserContext(), serverutils.UserId(ctx), ctx.Query("sessionId")); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *conversationController) Usage(ctx *fiber.Ctx) error {
	res, err := c.service.Usage(ctx.UserContext(), serverutils.UserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
