package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formbuilder/internal/app"
	"github.com/goliatone/go-formbuilder/internal/config"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/testsupport"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, secret string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	cfg.Server.JWTSecret = secret
	a, err := app.New(testsupport.Context(), cfg, app.WithLogOutput(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return New(a)
}

func token(t *testing.T, tenant string) string {
	t.Helper()
	tok, err := SignToken([]byte(testSecret), "user-1", tenant, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, s *Server, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeRecord(t *testing.T, w *httptest.ResponseRecorder) model.Record {
	t.Helper()
	var rec model.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testSecret)
	w := do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, testSecret)

	w := do(t, s, http.MethodGet, "/api/forms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad, err := SignToken([]byte("other"), "user-1", "acme", time.Hour, time.Now())
	require.NoError(t, err)
	w = do(t, s, http.MethodGet, "/api/forms", bad, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := SignToken([]byte(testSecret), "user-1", "acme", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	w = do(t, s, http.MethodGet, "/api/forms", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseTokenRoundTrip(t *testing.T) {
	tok := token(t, "acme")
	claims, err := ParseToken([]byte(testSecret), tok)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.TID)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = ParseToken([]byte(testSecret), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFormLifecycle(t *testing.T) {
	s := newTestServer(t, testSecret)
	tok := token(t, "acme")

	w := do(t, s, http.MethodPost, "/api/forms", tok, gin.H{"form": testsupport.SampleDocument(), "theme": "ocean"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeRecord(t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "ocean", created.Meta.Theme)
	assert.Equal(t, 7, created.Meta.FieldsCount)

	w = do(t, s, http.MethodGet, "/api/forms", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var metas []model.Meta
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, created.ID, metas[0].ID)

	w = do(t, s, http.MethodPatch, "/api/forms/"+created.ID, tok, gin.H{"title": "<b>Renamed</b>"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Renamed", decodeRecord(t, w).Document.Title)

	w = do(t, s, http.MethodPatch, "/api/forms/"+created.ID+"/meta", tok, gin.H{"theme": "sunset"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodPost, "/api/forms/"+created.ID+"/duplicate", tok, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	dup := decodeRecord(t, w)
	assert.NotEqual(t, created.ID, dup.ID)
	assert.Equal(t, "Renamed (copy)", dup.Document.Title)

	w = do(t, s, http.MethodDelete, "/api/forms/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, "/api/forms/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodGet, "/api/forms/"+dup.ID, tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTenantsAreIsolated(t *testing.T) {
	s := newTestServer(t, testSecret)
	w := do(t, s, http.MethodPost, "/api/forms", token(t, "acme"), gin.H{"template": "contact-basic"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decodeRecord(t, w).ID

	w = do(t, s, http.MethodGet, "/api/forms/"+id, token(t, "globex"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateFromTemplate(t *testing.T) {
	s := newTestServer(t, "")
	w := do(t, s, http.MethodPost, "/api/forms", "", gin.H{"template": "contact-basic"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rec := decodeRecord(t, w)
	assert.Equal(t, "elegant", rec.Meta.Theme)
	assert.Equal(t, model.KindMultiStep, rec.Document.Kind)
	assert.NotEmpty(t, rec.Meta.CoverURL)

	w = do(t, s, http.MethodPost, "/api/forms", "", gin.H{"template": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRejectsInvalidDocuments(t *testing.T) {
	s := newTestServer(t, "")

	w := do(t, s, http.MethodPost, "/api/forms", "", `{"form": {"title": "x"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, "/api/forms", "", gin.H{"form": testsupport.SampleDocument(), "theme": "neon"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, "/api/forms", "", gin.H{"form": testsupport.SampleDocument()})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeRecord(t, w).ID

	w = do(t, s, http.MethodPatch, "/api/forms/"+id, "", gin.H{"background": gin.H{"url": "javascript:alert(1)"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPut, "/api/forms/"+id, "", `{"steps": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPut, "/api/forms/missing", "", gin.H{"title": "x", "steps": []any{}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateResponse(t *testing.T) {
	s := newTestServer(t, "")
	w := do(t, s, http.MethodPost, "/api/forms", "", gin.H{"form": testsupport.SampleDocument()})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeRecord(t, w).ID

	step := 0
	w = do(t, s, http.MethodPost, "/api/forms/"+id+"/validate", "", gin.H{
		"values": gin.H{"full-name": "Ada Lovelace", "email": "ada@example.com"},
		"step":   step,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res validation.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Valid)

	w = do(t, s, http.MethodPost, "/api/forms/"+id+"/validate?locale=es", "", gin.H{
		"values": gin.H{"full-name": "Ada Lovelace", "email": "ada@example.com"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	res = validation.Result{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Valid)
	assert.Equal(t, "Campo requerido", res.Errors["arrival-date"])

	w = do(t, s, http.MethodPost, "/api/forms/"+id+"/validate", "", gin.H{"values": gin.H{}, "step": 9})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSchemaAndExport(t *testing.T) {
	s := newTestServer(t, "")
	w := do(t, s, http.MethodPost, "/api/forms", "", gin.H{"form": testsupport.SampleDocument()})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeRecord(t, w).ID

	w = do(t, s, http.MethodGet, "/api/forms/"+id+"/schema", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"openapi": "3.0.3"`)

	w = do(t, s, http.MethodGet, "/api/forms/"+id+"/export?format=yaml", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, w.Body.String(), "title: Event registration")

	w = do(t, s, http.MethodGet, "/api/forms/"+id+"/export?format=xml", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFormTheme(t *testing.T) {
	s := newTestServer(t, "")
	w := do(t, s, http.MethodPost, "/api/forms", "", gin.H{"template": "event-rsvp"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeRecord(t, w).ID

	w = do(t, s, http.MethodGet, "/api/forms/"+id+"/theme", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view themeView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "event", view.Theme)
	assert.Equal(t, "dark", view.Variant)
	assert.Equal(t, "/assets/themes/event/theme.css", view.Stylesheet)
	assert.NotEmpty(t, view.CSSVars["--color-accent"])
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t, testSecret)
	w := do(t, s, http.MethodGet, "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "contact-basic")

	w = do(t, s, http.MethodGet, "/api/themes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "terminal")
}

func TestRenderForm(t *testing.T) {
	s := newTestServer(t, "")
	w := do(t, s, http.MethodPost, "/api/forms", "", gin.H{"form": testsupport.SampleDocument(), "theme": "ocean"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeRecord(t, w).ID

	w = do(t, s, http.MethodGet, "/api/forms/"+id+"/render", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `data-theme="ocean"`)
	assert.Contains(t, w.Body.String(), `<input type="hidden" name="_form" value="`+id+`">`)
	assert.Contains(t, w.Body.String(), `href="/assets/themes/ocean/theme.css"`)

	w = do(t, s, http.MethodGet, "/api/forms/"+id+"/render?renderer=markdown&step=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "## 2/2 Details")
	assert.NotContains(t, w.Body.String(), "Contact")

	w = do(t, s, http.MethodGet, "/api/forms/"+id+"/render?step=7", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(t, s, http.MethodGet, "/api/forms/"+id+"/render?renderer=pdf", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, http.MethodGet, "/api/forms/missing/render", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenderFormWithResponse(t *testing.T) {
	s := newTestServer(t, "")
	w := do(t, s, http.MethodPost, "/api/forms", "", gin.H{"form": testsupport.SampleDocument()})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeRecord(t, w).ID

	w = do(t, s, http.MethodPost, "/api/forms/"+id+"/render?step=0", "", gin.H{
		"values": gin.H{"full-name": "Ada Lovelace", "email": "not-an-email"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="Ada Lovelace"`)
	assert.Contains(t, body, `class="fb-error"`)
	assert.NotContains(t, body, "step-details")

	w = do(t, s, http.MethodPost, "/api/forms/"+id+"/render?step=0", "", gin.H{
		"values": gin.H{"full-name": "Ada Lovelace", "email": "ada@example.com"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `class="fb-error"`)
}

func TestThemeStylesheet(t *testing.T) {
	s := newTestServer(t, "")
	w := do(t, s, http.MethodGet, "/assets/themes/ocean/theme.css?tint=light", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
	assert.Contains(t, w.Body.String(), `.fb-form[data-theme="ocean"]`)
	assert.Contains(t, w.Body.String(), "--overlay-alpha: 0.10;")
	assert.Contains(t, w.Body.String(), ".fb-cover-overlay")

	w = do(t, s, http.MethodGet, "/assets/themes/neon/theme.css", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodGet, "/assets/formbuilder/formbuilder.css", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/renderers", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "markdown")
}
