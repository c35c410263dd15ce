package api

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-ledger/internal/engine"
	"github.com/insightdelivered/statement-ledger/internal/extractor"
	"github.com/insightdelivered/statement-ledger/internal/ledger"
	"github.com/insightdelivered/statement-ledger/internal/logger"
	"github.com/insightdelivered/statement-ledger/internal/models"
	"github.com/insightdelivered/statement-ledger/internal/normalizer"
	"github.com/insightdelivered/statement-ledger/internal/profile"
	"github.com/insightdelivered/statement-ledger/internal/writer"
)

// ConvertResponse is the JSON response from the /api/convert endpoint.
type ConvertResponse struct {
	Success     bool                `json:"success"`
	Error       string              `json:"error,omitempty"`
	RunID       string              `json:"runId,omitempty"`
	Profile     string              `json:"profile,omitempty"`
	Reports     []ledger.Report     `json:"reports,omitempty"`
	Diagnostics *models.Diagnostics `json:"diagnostics,omitempty"`
	Version     string              `json:"version,omitempty"`
}

// ProfileInfo describes one available institution profile.
type ProfileInfo struct {
	Name        string `json:"name"`
	Institution string `json:"institution,omitempty"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Engine   *engine.Engine
	Registry *profile.Registry
	// DefaultProfile is used when a request names none; empty auto-detects.
	DefaultProfile string
	Version        string
	StaticDir      string
	Log            zerolog.Logger
}

// RegisterRoutes sets up middleware and the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	app.Use(h.requestLogger)

	app.Get("/api/health", h.Health)
	app.Get("/api/profiles", h.Profiles)
	app.Post("/api/convert", h.Convert)

	// Serve the upload UI; unknown paths fall back to index.html
	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			return c.SendFile(filepath.Join(h.StaticDir, "index.html"))
		})
	}
}

func (h *Handler) requestLogger(c *fiber.Ctx) error {
	err := c.Next()
	h.Log.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Msg("request")
	return err
}

// Health reports liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": h.Version,
		"engine":  "fiber",
	})
}

// Profiles lists the institution profiles a request may name.
func (h *Handler) Profiles(c *fiber.Ctx) error {
	out := []ProfileInfo{}
	for _, p := range h.Registry.Profiles() {
		out = append(out, ProfileInfo{Name: p.Name, Institution: p.Institution})
	}
	return c.JSON(out)
}

// Convert runs the engine over an uploaded statement. The statement is either
// a file (PDF or plain text) or text the client already extracted.
func (h *Handler) Convert(c *fiber.Ctx) error {
	format := strings.ToLower(c.FormValue("format", "json"))
	if format != "json" && format != "csv" && format != "xlsx" {
		return h.writeError(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown format %q. Use json, csv or xlsx.", format))
	}

	pages, status, err := h.pages(c)
	if err != nil {
		return h.writeError(c, status, err.Error())
	}

	profileName := c.FormValue("profile", h.DefaultProfile)
	ctx := logger.WithContext(c.UserContext(), h.Log)
	run, err := h.Engine.Run(ctx, pages, profileName)
	if err != nil {
		var structural *models.StructuralError
		switch {
		case errors.As(err, &structural):
			return h.writeError(c, fiber.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, models.ErrUnknownProfile):
			return h.writeError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.Log.Error().Err(err).Msg("conversion failed")
			return h.writeError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	doc := ledger.NewDocument(run)
	switch format {
	case "csv":
		return h.attachment(c, doc, &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"},
			"text/csv", "ledger.csv")
	case "xlsx":
		return h.attachment(c, doc, &writer.XLSXWriter{},
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "ledger.xlsx")
	}

	return c.JSON(ConvertResponse{
		Success:     true,
		RunID:       doc.RunID,
		Profile:     doc.Profile,
		Reports:     doc.Reports,
		Diagnostics: &doc.Diagnostics,
		Version:     h.Version,
	})
}

// pages returns the statement pages of a request, preferring client-side
// extracted text over the uploaded file.
func (h *Handler) pages(c *fiber.Ctx) ([]normalizer.Page, int, error) {
	if text := c.FormValue("extractedText"); strings.TrimSpace(text) != "" {
		if pages := extractor.SplitPages(text, extractor.PageBreak); len(pages) > 0 {
			return pages, 0, nil
		}
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.StatusBadRequest, errors.New("No file uploaded. Use form field 'file' or 'extractedText'.")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" && ext != ".txt" {
		return nil, fiber.StatusBadRequest, errors.New("Only PDF and plain-text files are supported.")
	}

	tmpFile, err := os.CreateTemp("", "statement-*"+ext)
	if err != nil {
		return nil, fiber.StatusInternalServerError, errors.New("Failed to create temp file.")
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(header, tmpPath); err != nil {
		return nil, fiber.StatusInternalServerError, errors.New("Failed to save uploaded file.")
	}

	pages, err := extractor.Open(tmpPath)
	if err != nil {
		return nil, fiber.StatusUnprocessableEntity, fmt.Errorf("Extraction failed: %w", err)
	}
	return pages, 0, nil
}

func (h *Handler) attachment(c *fiber.Ctx, doc ledger.Document, w ledger.Writer, contentType, filename string) error {
	var buf bytes.Buffer
	if err := w.Write(&buf, doc); err != nil {
		return h.writeError(c, fiber.StatusInternalServerError, err.Error())
	}
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(buf.Bytes())
}

func (h *Handler) writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ConvertResponse{
		Success: false,
		Error:   msg,
		Version: h.Version,
	})
}
