package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"markregister/internal/ingest"
	"markregister/internal/server/handlers"
	"markregister/internal/server/util"
	"markregister/internal/shared"
)

// TokenValidator resolves a bearer token to the account behind it
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*shared.User, error)
}

// Services bundles everything the router needs
type Services struct {
	Auth       handlers.AuthService
	Marks      handlers.MarkService
	Registry   handlers.RegistryService
	Exports    handlers.ExportService
	Validator  TokenValidator
	Normalizer *ingest.Normalizer
}

// SetupRoutes configures the Chi router, middleware, and route handlers.
func SetupRoutes(config *shared.Config, services *Services) *chi.Mux {
	r := chi.NewRouter()

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS Configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.CORS.AllowedOrigins,
		AllowedMethods:   config.CORS.AllowedMethods,
		AllowedHeaders:   config.CORS.AllowedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           config.CORS.MaxAge,
	}))

	// 2. Initialize Handlers
	authHandler := &handlers.AuthHandler{Auth: services.Auth}
	markHandler := &handlers.MarkHandler{Marks: services.Marks, Normalizer: services.Normalizer}
	adminHandler := &handlers.AdminHandler{Registry: services.Registry}
	exportHandler := &handlers.ExportHandler{Exports: services.Exports}

	// 3. Define Routes (grouped by prefix)
	r.Route("/api", func(r chi.Router) {

		// --- Public Routes ---
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)

		// --- Protected Routes (Require Valid Token) ---
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(services.Validator))

			// Auth
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)
			r.Post("/auth/change-password", authHandler.ChangePassword)

			// Mark register
			r.Post("/upload", markHandler.UploadMarks)
			r.Get("/report/{rollNo}", markHandler.GetReport)
			r.Get("/students", markHandler.ListStudents)
			r.Get("/class-students/{classId}", markHandler.GetClassStudents)
			r.Get("/class-reports/{classId}", markHandler.GetClassReports)
			r.Get("/class-stats/{classId}", markHandler.GetClassStatistics)
			r.Get("/export-reports/{classId}", exportHandler.ExportClassReports)

			// Institutes
			r.Route("/institutes", func(r chi.Router) {
				r.Get("/", adminHandler.ListInstitutes)
				r.Post("/", adminHandler.CreateInstitute)
				r.Get("/{id}", adminHandler.GetInstitute)
				r.Put("/{id}", adminHandler.UpdateInstitute)
				r.Get("/{id}/classes", adminHandler.ListClassesByInstitute)
				r.Get("/{id}/incharges", adminHandler.ListIncharges)
			})

			// Classes
			r.Route("/classes", func(r chi.Router) {
				r.Post("/", adminHandler.CreateClass)
				r.Get("/mine", adminHandler.ListMyClasses)
				r.Get("/{id}", adminHandler.GetClass)
				r.Post("/{id}/assign-teacher", adminHandler.AssignClassTeacher)
			})

			// Admin Management
			r.Route("/admin", func(r chi.Router) {
				r.Get("/users", adminHandler.ListUsers)
				r.Patch("/users/{id}/status", adminHandler.ToggleUserStatus)
				r.Post("/users/{id}/reset-password", authHandler.AdminResetPassword)
				r.Get("/login-logs", authHandler.GetLoginLogs)
				r.Get("/visitors", authHandler.GetVisitors)
			})
		})
	})

	return r
}

// AuthMiddleware creates a middleware that validates JWT tokens and injects
// the resolved account into the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Extract Token
			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			// 2. Validate
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()

			user, err := validator.ValidateToken(ctx, tokenStr)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			// 3. Inject User into Context
			ctxWithUser := context.WithValue(r.Context(), "user", user)
			next.ServeHTTP(w, r.WithContext(ctxWithUser))
		})
	}
}
