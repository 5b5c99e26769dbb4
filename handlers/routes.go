package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"mapquester/middleware"
	"mapquester/services"

	"github.com/gorilla/mux"
)

// Services are the dev backend's collaborators.
type Services struct {
	Points *services.PointService
	Users  *services.UserService
	Tokens *services.TokenIssuer
}

// RouterConfig shapes the route table.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	// MediaDir, when set, is served under /media/.
	MediaDir string
}

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

// SetupRoutes builds the dev backend router.
func SetupRoutes(svc Services, cfg RouterConfig) *mux.Router {
	poiHandler := NewPOIHandler(svc.Points)
	interactionHandler := NewInteractionHandler(svc.Points)
	authHandler := NewAuthHandler(svc.Users)
	userHandler := NewUserHandler(svc.Users)

	r := mux.NewRouter()
	r.Use(middleware.ErrorMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.HandleFunc("/", RootHandler).Methods("GET")
	r.HandleFunc("/health", RootHandler).Methods("GET")
	r.HandleFunc("/api/token/refresh/", authHandler.RefreshToken).Methods("POST", "OPTIONS")
	if cfg.MediaDir != "" {
		r.PathPrefix("/media/").Handler(http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))
	}

	api := r.PathPrefix(strings.TrimRight(cfg.APIPrefix, "/")).Subrouter()

	// Auth routes
	api.HandleFunc("/users/signup/", authHandler.RegisterUser).Methods("POST", "OPTIONS")
	api.HandleFunc("/users/login/", authHandler.LoginUser).Methods("POST", "OPTIONS")

	// User routes
	userRouter := api.PathPrefix("/users").Subrouter()
	userRouter.Use(middleware.JWTMiddleware(svc.Tokens))
	userRouter.HandleFunc("/me/", userHandler.Me).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/ping/", userHandler.PingLocation).Methods("POST", "OPTIONS")

	// POI routes
	poiRouter := api.PathPrefix("/pois").Subrouter()
	poiRouter.Use(middleware.JWTMiddleware(svc.Tokens))
	poiRouter.HandleFunc("/get/{userId}", poiHandler.GetPoints).Methods("GET", "OPTIONS")
	poiRouter.HandleFunc("/create/", poiHandler.CreatePoint).Methods("POST", "OPTIONS")
	poiRouter.HandleFunc("/update/{id}/", poiHandler.UpdatePoint).Methods("PATCH", "OPTIONS")
	poiRouter.HandleFunc("/delete/{id}/", poiHandler.DeletePoint).Methods("PATCH", "OPTIONS")
	poiRouter.HandleFunc("/nearby/", poiHandler.GetNearbyPOIs).Methods("GET", "OPTIONS")
	poiRouter.HandleFunc("/interactions/create/", interactionHandler.CreateInteraction).Methods("POST", "OPTIONS")
	poiRouter.HandleFunc("/interactions/{id}/", interactionHandler.ListInteractions).Methods("GET", "OPTIONS")

	return r
}
