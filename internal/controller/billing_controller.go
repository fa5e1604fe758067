package controller

import (
	"genius-be/internal/dto"
	"genius-be/internal/pkg/serverutils"
	"genius-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IBillingController interface {
	RegisterRoutes(r fiber.Router)
	Checkout(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
	GetStatus(ctx *fiber.Ctx) error
}

type billingController struct {
	service service.IBillingService
	auth    fiber.Handler
}

func NewBillingController(service service.IBillingService, auth fiber.Handler) IBillingController {
	return &billingController{service: service, auth: auth}
}

func (c *billingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/billing")
	// Midtrans signs the body; there is no bearer token.
	h.Post("/webhook", c.Webhook)

	h.Post("/checkout", c.auth, c.Checkout)
	h.Get("/status", c.auth, c.GetStatus)
}

func (c *billingController) Checkout(ctx *fiber.Ctx) error {
	res, err := c.service.Checkout(ctx.UserContext(), serverutils.UserId(ctx), serverutils.Email(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout created", res))
}

func (c *billingController) Webhook(ctx *fiber.Ctx) error {
	var req dto.MidtransWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		return dto.NewInvalidInputError("Invalid request body")
	}

	if err := c.service.HandleNotification(ctx.UserContext(), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Notification processed", nil))
}

func (c *billingController) GetStatus(ctx *fiber.Ctx) error {
	res, err := c.service.Status(ctx.UserContext(), serverutils.UserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching subscription status", res))
}
