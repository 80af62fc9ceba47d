package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gradesync/backend/internal/engine"
	"gradesync/backend/internal/gateway/handlers"
	"gradesync/backend/internal/gateway/util"
	"gradesync/backend/internal/shared"
)

// SetupRoutes configures the Chi router, middleware, and route handlers.
func SetupRoutes(eng *engine.Engine, config *shared.GatewayConfig) *chi.Mux {
	r := chi.NewRouter()

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS Configuration (Allow the course-management UI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.CORS.AllowedOrigins,
		AllowedMethods:   config.CORS.AllowedMethods,
		AllowedHeaders:   config.CORS.AllowedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           config.CORS.MaxAge,
	}))

	// 2. Initialize Handlers
	submissionHandler := &handlers.SubmissionHandler{Engine: eng}

	// 3. Define Routes
	r.Route("/api", func(r chi.Router) {

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			util.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
		})

		// --- Protected Routes (Require Valid Token) ---
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(config.JWTSecret))
			r.Use(RequireInstructor)

			r.Route("/submissions", func(r chi.Router) {
				r.Get("/track/{track_id}/course/{course_id}/assignment/{assignment_id}", submissionHandler.GetSubmissions)
				r.Get("/track/{track_id}/course/{course_id}/assignment/{assignment_id}/summary", submissionHandler.GetSummary)
			})

			r.Post("/evaluations", submissionHandler.SubmitEvaluation)
		})
	})

	return r
}

// RequireInstructor rejects callers whose token does not carry the
// instructor role. Grading is instructor-only.
func RequireInstructor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || user.Role != "instructor" {
			util.WriteJSONError(w, http.StatusForbidden, "Access denied: Only instructors can review submissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}
