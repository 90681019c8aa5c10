package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"ucrelay/pkg/config"
	"ucrelay/pkg/relay"
)

const (
	defaultHost     = "0.0.0.0"
	defaultPort     = 18790
	shutdownTimeout = 5 * time.Second
)

// Relay is the slice of the relay service the HTTP layer depends on.
type Relay interface {
	SendCommand(ctx context.Context, command string) (relay.CommandResult, error)
	SendTopup(ctx context.Context, prefix, uid, amount string) (relay.TopupOutcome, error)
	Status(ctx context.Context) (relay.Status, error)
	Ready() bool
}

// Server exposes the relay over HTTP for callers that cannot speak to
// the counterpart bot directly.
type Server struct {
	cfg   *config.Config
	relay Relay
	log   *slog.Logger
	app   *fiber.App
}

// NewServer builds the fiber app and registers all routes.
func NewServer(cfg *config.Config, r Relay, log *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if r == nil {
		return nil, errors.New("relay is required")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		cfg:   cfg,
		relay: r,
		log:   log.With("component", "api"),
		app:   fiber.New(fiber.Config{CaseSensitive: true}),
	}

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/api/status", s.handleStatus)
	s.app.Get("/api/send", s.handleSend)
	s.app.Post("/api/send", s.handleSend)
	s.app.Get("/api/send-raw", s.handleSendRaw)
	s.app.Post("/api/send-raw", s.handleSendRaw)

	return s, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.address()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server started", "address", addr)
		if err := s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			errCh <- fmt.Errorf("start api server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) address() string {
	host := strings.TrimSpace(s.cfg.API.Host)
	if host == "" {
		host = defaultHost
	}

	port := s.cfg.API.Port
	if port <= 0 {
		port = defaultPort
	}

	return host + ":" + strconv.Itoa(port)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStatus(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	status, err := s.relay.Status(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(status)
}

// sendRequest carries the parameters of both send endpoints, accepted
// as query parameters or a JSON body.
type sendRequest struct {
	Command string `json:"command"`
	Prefix  string `json:"prefix"`
	UID     string `json:"uid"`
	Amount  string `json:"amount"`
}

func parseSendRequest(c fiber.Ctx) sendRequest {
	var req sendRequest
	if len(c.Body()) > 0 {
		_ = c.Bind().Body(&req)
	}

	if value := c.Query("command"); value != "" {
		req.Command = value
	}
	if value := c.Query("prefix"); value != "" {
		req.Prefix = value
	}
	if value := c.Query("uid"); value != "" {
		req.UID = value
	}
	if value := c.Query("amount"); value != "" {
		req.Amount = value
	}

	return req
}

func (s *Server) handleSend(c fiber.Ctx) error {
	if !s.relay.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "transport not running"})
	}

	req := parseSendRequest(c)
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "command is required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Relay.RequestTimeout())
	defer cancel()

	result, err := s.relay.SendCommand(ctx, command)
	if err != nil {
		s.log.Error("Send command failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	payload := fiber.Map{
		"success":         true,
		"command":         command,
		"sent_message_id": result.SentSeq,
		"received":        result.Received,
	}
	if result.Received {
		payload["response"] = result.Response
		if result.Record != nil {
			payload["record"] = result.Record
		}
	}

	return c.JSON(payload)
}

func (s *Server) handleSendRaw(c fiber.Ctx) error {
	if !s.relay.Ready() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "transport not running"})
	}

	req := parseSendRequest(c)
	if strings.TrimSpace(req.Prefix) == "" || strings.TrimSpace(req.UID) == "" || strings.TrimSpace(req.Amount) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prefix, uid, and amount are required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Relay.RequestTimeout())
	defer cancel()

	outcome, err := s.relay.SendTopup(ctx, req.Prefix, req.UID, req.Amount)
	if err != nil {
		s.log.Error("Send topup failed", "uid", req.UID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	payload := fiber.Map{
		"success":         outcome.Success,
		"status":          outcome.Status,
		"uid":             outcome.UID,
		"sent_message_id": outcome.SentSeq,
	}
	if len(outcome.UsedCodes) > 0 {
		payload["usedUc"] = outcome.UsedCodes
	}

	return c.JSON(payload)
}
