package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/arcnova-labs/arcnova/internal/config"
	"github.com/arcnova-labs/arcnova/internal/httpc"
	"github.com/arcnova-labs/arcnova/pkg/llm"
)

type saveKeysRequest struct {
	APIKeys map[string]string `json:"api_keys"`
}

type validateKeyRequest struct {
	KeyName  string `json:"key_name"`
	KeyValue string `json:"key_value"`
}

func (s *Server) handleConfigStatus(c *fiber.Ctx) error {
	if s.keys == nil {
		return c.JSON(fiber.Map{})
	}
	return c.JSON(s.keys.Status())
}

func (s *Server) handleSaveKeys(c *fiber.Ctx) error {
	if s.keys == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "key store not configured"})
	}

	var req saveKeysRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Only recognized key names are persisted.
	filtered := make(map[string]string, len(req.APIKeys))
	for name, value := range req.APIKeys {
		if _, ok := config.ServiceNames[name]; ok {
			filtered[name] = value
		}
	}

	if err := s.keys.Save(filtered); err != nil {
		s.logger.Error("key save failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save keys"})
	}
	return c.JSON(fiber.Map{"success": true, "saved": len(filtered)})
}

func (s *Server) handleValidateKey(c *fiber.Ctx) error {
	var req validateKeyRequest
	if err := c.BodyParser(&req); err != nil || req.KeyName == "" || strings.TrimSpace(req.KeyValue) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "key_name and key_value are required"})
	}

	valid, message := s.validateKey(c.UserContext(), req.KeyName, strings.TrimSpace(req.KeyValue))
	return c.JSON(fiber.Map{"valid": valid, "message": message})
}

// validateKey probes the provider behind a key with a minimal live request.
// Murf has no cheap probe endpoint, so only its key format is checked.
func (s *Server) validateKey(ctx context.Context, name, value string) (bool, string) {
	switch name {
	case config.KeyGemini:
		g := llm.NewGemini(func() string { return value })
		if _, err := g.Generate(ctx, llm.DefaultModel, "Hello"); err != nil {
			return false, fmt.Sprintf("Invalid Gemini key: %s", truncateError(err))
		}
		return true, "Gemini API key is valid"

	case config.KeyAssemblyAI:
		status, err := s.probe(ctx, s.assemblyaiAccountURL, map[string]string{"Authorization": value})
		if err != nil {
			return false, fmt.Sprintf("Failed to validate AssemblyAI key: %s", truncateError(err))
		}
		if status != http.StatusOK {
			return false, fmt.Sprintf("Invalid AssemblyAI key: Status %d", status)
		}
		return true, "AssemblyAI API key is valid"

	case config.KeyMurf:
		if len(value) > 10 && strings.HasPrefix(value, "ap2_") {
			return true, "Murf API key format appears valid"
		}
		return false, "Invalid Murf API key format"

	case config.KeyNews:
		probeURL := s.newsProbeURL + "?" + url.Values{"country": {"us"}, "apiKey": {value}}.Encode()
		status, err := s.probe(ctx, probeURL, nil)
		if err != nil {
			return false, fmt.Sprintf("Failed to validate News key: %s", truncateError(err))
		}
		if status != http.StatusOK {
			return false, fmt.Sprintf("Invalid News API key: Status %d", status)
		}
		return true, "News API key is valid"

	case config.KeyOpenWeather:
		probeURL := s.weatherProbeURL + "?" + url.Values{"q": {"London"}, "appid": {value}}.Encode()
		status, err := s.probe(ctx, probeURL, nil)
		if err != nil {
			return false, fmt.Sprintf("Failed to validate Weather key: %s", truncateError(err))
		}
		if status != http.StatusOK {
			return false, fmt.Sprintf("Invalid OpenWeather key: Status %d", status)
		}
		return true, "OpenWeather API key is valid"
	}

	return false, "Unknown key type"
}

func (s *Server) probe(ctx context.Context, rawURL string, headers map[string]string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpc.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return msg
}
