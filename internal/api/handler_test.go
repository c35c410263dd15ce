package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-ledger/internal/engine"
	"github.com/insightdelivered/statement-ledger/internal/extractor"
	"github.com/insightdelivered/statement-ledger/internal/profile"
)

var statementText = strings.Join([]string{
	"01/02/24 OPENING BALANCE 1.000,00",
	"02/02/24 TRANSFER 500,00 1.500,00",
	"03/02/24 SERVICE FEE",
	"   120,00   1.380,00",
	"04/02/24 TAX WITHHOLDING 45,00",
	"CLOSING BALANCE 1.335,00",
}, "\n")

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	reg, err := profile.Builtin()
	require.NoError(t, err)
	h := &Handler{
		Engine:   engine.New(reg, engine.DefaultOptions()),
		Registry: reg,
		Version:  "test",
		Log:      zerolog.Nop(),
	}
	app := fiber.New()
	h.RegisterRoutes(app)
	return app
}

type part struct {
	field, filename, content string
}

func multipartRequest(t *testing.T, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := mw.CreateFormFile(p.field, p.filename)
			require.NoError(t, err)
			_, err = fw.Write([]byte(p.content))
			require.NoError(t, err)
			continue
		}
		require.NoError(t, mw.WriteField(p.field, p.content))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response) ConvertResponse {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out ConvertResponse
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", result["status"])
	}

	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %q", result["engine"])
	}
}

func TestProfilesEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/profiles", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var profiles []ProfileInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profiles))
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "generic")
	assert.Contains(t, names, "comafi")
}

func TestConvertEndpointRequiresFile(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest("POST", "/api/convert", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	// Should fail because no file in the body
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for missing file, got %d", resp.StatusCode)
	}
}

func TestConvertExtractedText(t *testing.T) {
	app := setupTestApp(t)

	req := multipartRequest(t,
		part{field: "extractedText", content: statementText},
		part{field: "profile", content: "generic"},
	)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	require.True(t, out.Success)
	assert.Equal(t, "generic", out.Profile)
	assert.NotEmpty(t, out.RunID)
	require.Len(t, out.Reports, 1)

	r := out.Reports[0]
	assert.Equal(t, "reconciled", string(r.State))
	assert.Len(t, r.Credits, 1)
	assert.Len(t, r.Debits, 2)
	assert.True(t, r.Control.IsZero())
	require.NotNil(t, out.Diagnostics)
	assert.Equal(t, 1, out.Diagnostics.AccountsReconciledCleanly)
}

func TestConvertExtractedTextPages(t *testing.T) {
	app := setupTestApp(t)

	lines := strings.Split(statementText, "\n")
	text := strings.Join(lines[:3], "\n") + extractor.PageBreak + strings.Join(lines[3:], "\n")
	resp, err := app.Test(multipartRequest(t,
		part{field: "extractedText", content: text},
		part{field: "profile", content: "generic"},
	))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	out := decode(t, resp)
	require.Len(t, out.Reports, 1)
	assert.Equal(t, "reconciled", string(out.Reports[0].State))
}

func TestConvertCSVFormat(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(multipartRequest(t,
		part{field: "extractedText", content: statementText},
		part{field: "profile", content: "generic"},
		part{field: "format", content: "csv"},
	))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ledger.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Account,Type,Date,Description,Amount,Flags")
	assert.Contains(t, string(body), "CREDIT,02/02/24,TRANSFER,500.00")
}

func TestConvertTextFileUpload(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(multipartRequest(t,
		part{field: "file", filename: "statement.txt", content: statementText},
		part{field: "profile", content: "generic"},
	))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, resp).Reports, 1)
}

func TestConvertErrors(t *testing.T) {
	tests := []struct {
		name   string
		parts  []part
		status int
	}{
		{
			name:   "empty text file",
			parts:  []part{{field: "file", filename: "empty.txt", content: "  \n\n "}},
			status: fiber.StatusUnprocessableEntity,
		},
		{
			name:   "unsupported extension",
			parts:  []part{{field: "file", filename: "statement.docx", content: "x"}},
			status: fiber.StatusBadRequest,
		},
		{
			name: "unknown profile",
			parts: []part{
				{field: "extractedText", content: statementText},
				{field: "profile", content: "no-such-bank"},
			},
			status: fiber.StatusBadRequest,
		},
		{
			name: "unknown format",
			parts: []part{
				{field: "extractedText", content: statementText},
				{field: "format", content: "pdf"},
			},
			status: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTestApp(t)
			resp, err := app.Test(multipartRequest(t, tt.parts...))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)

			out := decode(t, resp)
			assert.False(t, out.Success)
			assert.NotEmpty(t, out.Error)
		})
	}
}
