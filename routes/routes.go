package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/svanlaere/schaakclub-portal/handlers"
	"github.com/svanlaere/schaakclub-portal/middleware"
	"github.com/svanlaere/schaakclub-portal/models"
)

// SetupRoutes wires the scheduling subsystem's HTTP surface. Reads are
// public; every mutation sits behind the admin gate.
func SetupRoutes(
	router *chi.Mux,
	allowedOrigins []string,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	roundHandler *handlers.RoundHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	router.Post("/auth/login", authHandler.Login)

	router.Get("/tournaments", roundHandler.ListTournaments)

	router.Route("/tournamentRounds", func(r chi.Router) {
		r.Get("/", roundHandler.ListRounds)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(jwtSecret))
			r.Use(middleware.RequireRole(string(models.RoleAdmin)))

			r.Post("/makeup", roundHandler.CreateMakeupRound)
			r.Post("/postpone-game", roundHandler.PostponeGame)
			r.Post("/postpone-game/undo", roundHandler.UndoPostponement)
			r.Post("/{roundID}/games", roundHandler.AddGame)
			r.Put("/{roundID}/date", roundHandler.UpdateMakeupRoundDate)
			r.Delete("/{roundID}", roundHandler.DeleteMakeupRound)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
