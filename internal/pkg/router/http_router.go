package router

import (
	"github.com/ManuelReschke/TextFox/app/controllers"
	"github.com/ManuelReschke/TextFox/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.HealthRoute, controllers.HandleHealth)

	webhooks := app.Group(constants.WebhooksRoute)
	webhooks.Get(constants.ChatWebhookRoute, controllers.HandleChatWebhookVerify)
	webhooks.Post(constants.ChatWebhookRoute, controllers.HandleChatWebhook)
	webhooks.Post(constants.BillingWebhookRoute, controllers.HandleBillingWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
