package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcutting/facturarator/internal/config"
	"github.com/jcutting/facturarator/internal/server"
	"github.com/jcutting/facturarator/internal/session"
)

const testUUID = "ad662d33-6934-459c-a128-bdf0393f0f44"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry := server.NewRegistry(config.Default())
	ts := httptest.NewServer(server.New(server.NewHandler(registry, 1<<20)))
	t.Cleanup(ts.Close)
	return ts
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	resp, err := http.Post(ts.URL+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body["session_id"])
	return body["session_id"]
}

func uploadFiles(t *testing.T, ts *httptest.Server, path string, files map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+path, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func invoicePayload(fecha string) string {
	return fmt.Sprintf(`<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4"
    xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital"
    Fecha="%s" Total="116.00" Moneda="MXN">
  <cfdi:Emisor Rfc="AAA010101AAA"/>
  <cfdi:Complemento><tfd:TimbreFiscalDigital UUID="%s"/></cfdi:Complemento>
</cfdi:Comprobante>`, fecha, testUUID)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)
	base := ts.URL + "/api/v1/sessions/" + id

	// Upload one invoice.
	resp := uploadFiles(t, ts, "/api/v1/sessions/"+id+"/invoices", map[string]string{
		"factura-01.xml": invoicePayload("2024-03-01T10:00:00"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Records are visible for review.
	resp, err := http.Get(base + "/records")
	require.NoError(t, err)
	var listing struct {
		Records []struct {
			Identifier string `json:"identifier"`
			Category   string `json:"category"`
		} `json:"records"`
		ScanCount int `json:"scan_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()
	require.Len(t, listing.Records, 1)
	assert.Equal(t, testUUID, listing.Records[0].Identifier)
	assert.Equal(t, "Miscellaneous", listing.Records[0].Category)
	assert.Equal(t, 0, listing.ScanCount)

	// Edit the category.
	req, err := http.NewRequest(http.MethodPatch, base+"/records/0",
		strings.NewReader(`{"category":"Gasoline"}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// An out-of-enumeration edit is rejected.
	req, err = http.NewRequest(http.MethodPatch, base+"/records/0",
		strings.NewReader(`{"category":"Yacht"}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// Spreadsheet downloads even with zero scans.
	resp, err = http.Get(base + "/spreadsheet")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "SUBMISSION_IVA_FORM.xlsx")
	resp.Body.Close()

	// The archive is the one hard stop without scans.
	resp, err = http.Get(base + "/package")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// After a scan upload the package builds.
	resp = uploadFiles(t, ts, "/api/v1/sessions/"+id+"/scans", map[string]string{
		"Factura 01.pdf": "scan bytes",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(base + "/package/report")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		Warnings []session.Warning `json:"warnings"`
		FileName string            `json:"file_name"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	resp.Body.Close()
	assert.Equal(t, "refactura_package.zip", report.FileName)
	assert.Empty(t, report.Warnings)

	resp, err = http.Get(base + "/package")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	resp.Body.Close()
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/sessions/" + "7d4f0a36-0000-0000-0000-000000000000" + "/records")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/api/v1/sessions/not-a-uuid/records")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
