package handler

import (
	"reflect"
	"strings"

	"github.com/ecnc-ops/incident-tracker/backend/internal/config"
	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/ecnc-ops/incident-tracker/backend/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	service    *service.Service
	translator ut.Translator
	pages      pages

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, svc *service.Service) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report json field names in validation messages
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		service:    svc,
		translator: trans,
		pages:      pages,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Route("/reset-password", func(r chi.Router) {
				r.Post("/require", h.RequireResetPassword)
				r.Post("/confirm", h.ConfirmResetPassword)
			})
		})

		// everything below requires a valid token
		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.Use(h.currentUser)

			r.Get("/me", h.GetMe)
			r.With(h.RequiredRole(domain.RoleAdmin, domain.RoleManager)).Get("/users", h.GetAllUsers)

			r.Route("/incidents", func(r chi.Router) {
				r.Get("/", h.ListIncidents)
				r.Post("/", h.CreateIncident)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.incidentID)
					r.Get("/", h.GetIncident)
					r.Put("/", h.UpdateIncident)
					r.Post("/assign", h.AssignIncident)
					r.Post("/status", h.UpdateIncidentStatus)
					r.Get("/comments", h.GetComments)
					r.Post("/comments", h.CreateComment)
				})
			})
		})
	})

	h.Mux.Get("/", h.WebIndex)
	h.Mux.Get("/login", h.WebLoginPage)
	h.Mux.Post("/login", h.WebLogin)
	h.Mux.Get("/register", h.WebRegisterPage)
	h.Mux.Post("/register", h.WebRegister)
	h.Mux.Post("/logout", h.WebLogout)

	h.Mux.Group(func(r chi.Router) {
		r.Use(h.webAuth)

		r.Get("/dashboard", h.WebDashboard)
		r.Route("/incidents", func(r chi.Router) {
			r.Get("/", h.WebListIncidents)
			r.Get("/create", h.WebCreateIncidentPage)
			r.Post("/create", h.WebCreateIncident)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.webIncidentID)
				r.Get("/", h.WebViewIncident)
				r.Get("/edit", h.WebEditIncidentPage)
				r.Post("/edit", h.WebEditIncident)
				r.Post("/comment", h.WebAddComment)
				r.Get("/assign", h.WebAssignIncidentPage)
				r.Post("/assign", h.WebAssignIncident)
				r.Post("/status", h.WebUpdateStatus)
			})
		})
	})
}
