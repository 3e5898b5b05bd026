package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/deskcore/backend/api/handler"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	User    *apiHandler.UserHandler
	Ticket  *apiHandler.TicketHandler
	Dataset *apiHandler.DatasetHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))

	// User routes
	r.GET("/api/v1/users", authMiddleware(handlers.User.List))
	r.GET("/api/v1/users/{id}", authMiddleware(handlers.User.Get))
	r.PUT("/api/v1/users/{id}", authMiddleware(handlers.User.Update))
	r.PUT("/api/v1/users/{id}/role", authMiddleware(handlers.User.ChangeRole))
	r.PUT("/api/v1/users/{id}/active", authMiddleware(handlers.User.SetActive))
	r.DELETE("/api/v1/users/{id}", authMiddleware(handlers.User.Delete))

	// Ticket routes
	r.GET("/api/v1/tickets", authMiddleware(handlers.Ticket.List))
	r.POST("/api/v1/tickets", authMiddleware(handlers.Ticket.Create))
	r.GET("/api/v1/tickets/{id}", authMiddleware(handlers.Ticket.Get))
	r.PUT("/api/v1/tickets/{id}", authMiddleware(handlers.Ticket.Update))
	r.DELETE("/api/v1/tickets/{id}", authMiddleware(handlers.Ticket.Delete))
	r.PUT("/api/v1/tickets/{id}/status", authMiddleware(handlers.Ticket.Transition))
	r.PUT("/api/v1/tickets/{id}/assign", authMiddleware(handlers.Ticket.Assign))
	r.POST("/api/v1/tickets/{id}/milestones", authMiddleware(handlers.Ticket.AddMilestone))
	r.PUT("/api/v1/tickets/{id}/milestones/{index}/complete", authMiddleware(handlers.Ticket.CompleteMilestone))
	r.POST("/api/v1/tickets/{id}/replies", authMiddleware(handlers.Ticket.AddReply))
	r.POST("/api/v1/tickets/{id}/attachments", authMiddleware(handlers.Ticket.AddAttachment))
	r.GET("/api/v1/tickets/{id}/attachments/{attachment_id}", authMiddleware(handlers.Ticket.DownloadAttachment))

	// Dataset routes
	r.GET("/api/v1/datasets", authMiddleware(handlers.Dataset.List))
	r.POST("/api/v1/datasets", authMiddleware(handlers.Dataset.Create))
	r.GET("/api/v1/datasets/{id}", authMiddleware(handlers.Dataset.Get))
	r.PUT("/api/v1/datasets/{id}", authMiddleware(handlers.Dataset.Update))
	r.DELETE("/api/v1/datasets/{id}", authMiddleware(handlers.Dataset.Delete))
	r.PUT("/api/v1/datasets/{id}/status", authMiddleware(handlers.Dataset.Transition))
	r.POST("/api/v1/datasets/{id}/rows", authMiddleware(handlers.Dataset.AddRow))
	r.PUT("/api/v1/datasets/{id}/rows/{row_id}", authMiddleware(handlers.Dataset.UpdateRow))
	r.DELETE("/api/v1/datasets/{id}/rows/{row_id}", authMiddleware(handlers.Dataset.RemoveRow))

	return r
}
