// ABOUTME: chi router, signature middleware, command and event handlers.
// ABOUTME: Commands ack synchronously; their work runs detached from the request.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/opsmith-io/wardroom/internal/commands"
	"github.com/opsmith-io/wardroom/internal/config"
	"github.com/opsmith-io/wardroom/internal/events"
	"github.com/opsmith-io/wardroom/internal/metrics"
	"github.com/opsmith-io/wardroom/internal/platform"
)

// Server is the inbound HTTP surface.
type Server struct {
	addr        string
	signing     string
	metricsPath string
	dispatcher  *commands.Dispatcher
	bus         *events.Bus
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates a server from the loaded configuration.
func New(cfg *config.Config, dispatcher *commands.Dispatcher, bus *events.Bus, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:       cfg.Server.HTTPAddr,
		signing:    cfg.Slack.SigningSecret,
		dispatcher: dispatcher,
		bus:        bus,
		metrics:    m,
		logger:     logger.With("component", "server"),
	}
	if cfg.Metrics.Enabled {
		s.metricsPath = cfg.Metrics.Path
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	if s.metricsPath != "" {
		r.Method(http.MethodGet, s.metricsPath, s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.verifySignature)
		r.Post("/commands/channel", s.handleCommand("/channel"))
		r.Post("/commands/util", s.handleCommand("/util"))
		r.Post("/events", s.handleEvents)
	})
	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

// verifySignature authenticates the request against the signing secret.
// The body is restored for downstream handlers.
func (s *Server) verifySignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		verifier, err := slackapi.NewSecretsVerifier(r.Header, s.signing)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := verifier.Ensure(); err != nil {
			s.logger.Warn("request signature rejected", "path", r.URL.Path)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCommand(command string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		req := commands.Request{
			Command:     command,
			Text:        r.PostFormValue("text"),
			UserID:      platform.UserID(r.PostFormValue("user_id")),
			ChannelID:   r.PostFormValue("channel_id"),
			ChannelName: r.PostFormValue("channel_name"),
		}

		ack, work, err := s.dispatcher.Dispatch(r.Context(), req)
		if err != nil {
			s.logger.Error("command dispatch failed", "command", command, "error", err)
			fmt.Fprint(w, "Oops something went wrong!")
			return
		}
		if work != nil {
			// The work outlives the request; only process shutdown stops it.
			go work(context.WithoutCancel(r.Context()))
		}
		if ack != "" {
			fmt.Fprint(w, ack)
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	evt, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch evt.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, challenge.Challenge)
	case slackevents.CallbackEvent:
		s.publish(evt.InnerEvent)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// publish fans a callback event onto the matching bus stream.
func (s *Server) publish(inner slackevents.EventsAPIInnerEvent) {
	switch ev := inner.Data.(type) {
	case *slackevents.FileSharedEvent:
		s.bus.FileShared.Publish(platform.FileSharedEvent{
			FileID:    ev.FileID,
			UserID:    platform.UserID(ev.UserID),
			ChannelID: ev.ChannelID,
		})
	case *slackevents.MessageEvent:
		ids := make([]string, 0, len(ev.Files))
		for _, f := range ev.Files {
			ids = append(ids, f.ID)
		}
		s.bus.Message.Publish(platform.MessageEvent{
			ChannelID: ev.Channel,
			Timestamp: ev.TimeStamp,
			UserID:    platform.UserID(ev.User),
			Subtype:   ev.SubType,
			FileIDs:   ids,
		})
	case *slackevents.ChannelCreatedEvent:
		s.bus.ChannelCreated.Publish(platform.ChannelCreatedEvent{
			Channel: platform.Channel{ID: ev.Channel.ID, Name: ev.Channel.Name},
			Creator: platform.UserID(ev.Channel.Creator),
		})
	default:
		s.logger.Debug("unhandled event type", "type", inner.Type)
	}
}
