package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smartappt/voice-ai-platform/internal/appointments"
	"github.com/smartappt/voice-ai-platform/internal/calllog"
	"github.com/smartappt/voice-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/smartappt/voice-ai-platform/internal/http/middleware"
	"github.com/smartappt/voice-ai-platform/internal/prompts"
	"github.com/smartappt/voice-ai-platform/internal/reminders"
	"github.com/smartappt/voice-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	VoiceWebhook    *handlers.VoiceWebhookHandler
	ReminderWebhook *handlers.ReminderWebhookHandler
	AIAsk           *handlers.AIAskHandler

	Appointments *appointments.Handler
	CallLogs     *calllog.Handler
	Prompts      *prompts.Handler
	Reminders    *reminders.Handler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)

	// Telephony webhooks. The provider retries on non-2xx, so these always
	// answer 200 with TwiML; error handling happens inside the handlers.
	if cfg.VoiceWebhook != nil {
		r.Post("/twilio/webhook", cfg.VoiceWebhook.ServeVoiceTurn)
		r.Post("/twilio/status-callback", cfg.VoiceWebhook.ServeStatusCallback)
	}
	if cfg.ReminderWebhook != nil {
		r.Post("/twilio/reminder-webhook", cfg.ReminderWebhook.ServeReminder)
	}

	if cfg.AIAsk != nil {
		r.Post("/ai/ask", cfg.AIAsk.ServeAsk)
	}

	if cfg.Appointments != nil {
		r.Mount("/appointments", cfg.Appointments.Routes())
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/admin", func(admin chi.Router) {
			if cfg.CallLogs != nil {
				admin.Mount("/call-logs", cfg.CallLogs.Routes())
			}
			if cfg.Prompts != nil {
				admin.Mount("/prompts", cfg.Prompts.Routes())
			}
		})
		if cfg.Reminders != nil {
			api.Mount("/reminders", cfg.Reminders.Routes())
		}
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
