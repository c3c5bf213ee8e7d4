// Package handlers contains the HTTP building blocks of the bot's side
// server: composite health checks, the Telegram webhook endpoint and a few
// reusable middlewares.
//
// # Health Checks
//
// Named checks run in parallel, each with its own timeout:
//
//	checker := handlers.NewCompositeHealthChecker("1.0.0")
//	checker.AddCheck("store", handlers.NewPingCheck(store))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    slog.Warn("health check failed", "message", status.Message)
//	}
//
// # Webhook Handling
//
// TelegramWebhook decodes updates posted by Telegram, checks the secret
// token header and hands each update to the bot:
//
//	r.Post("/telegram/webhook", handlers.NewTelegramWebhook(bot, secret, logger).ServeHTTP)
//
// Telegram retries any non-2xx answer, so processing failures are logged
// and still answered with 200.
package handlers
