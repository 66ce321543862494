package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/renderers/vanilla"
	"github.com/goliatone/go-formbuilder/pkg/themes"
)

const defaultRenderer = "vanilla"

// renderForm serves a stored form through a registered renderer. POST bodies
// carry a response to prefill; it is validated and the messages rendered
// inline, with 422 when the response is invalid.
func (s *Server) renderForm(c *gin.Context) {
	id := c.Param("id")
	opts := render.DefaultOptions()
	opts.NoCover = c.Query("no_cover") == "true"
	opts.Hidden = []render.HiddenField{render.FormID(id)}
	if raw := c.Query("step"); raw != "" {
		step, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "step must be an integer"})
			return
		}
		opts.Step = step
	}

	req := orchestrator.Request{
		ID:            id,
		Renderer:      c.DefaultQuery("renderer", defaultRenderer),
		Locale:        c.Query("locale"),
		RenderOptions: opts,
	}
	if c.Request.Method == http.MethodPost {
		var body validateRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if body.Step != nil && c.Query("step") == "" {
			req.RenderOptions.Step = *body.Step
		}
		req.Values = body.Values
		req.Validate = true
	}

	out, err := s.app.Orchestrator.Generate(c.Request.Context(), s.store(c), req)
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		notFound(c)
		return
	case errors.Is(err, render.ErrUnknownRenderer):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.fail(c, err)
		return
	}
	status := http.StatusOK
	if out.Result != nil && !out.Result.Valid {
		status = http.StatusUnprocessableEntity
	}
	c.Data(status, out.ContentType, out.Body)
}

// themeStylesheet serves the base stylesheet scoped to one theme. The tint
// and font query parameters pick the variant and typeface pairing.
func (s *Server) themeStylesheet(c *gin.Context) {
	name := c.Param("theme")
	cfg, err := s.app.Themes.Resolve(name, model.Tint(c.Query("tint")), model.FontTheme(c.Query("font")))
	if err != nil {
		s.fail(c, err)
		return
	}

	names := make([]string, 0, len(cfg.CSSVars))
	for k := range cfg.CSSVars {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(".fb-form[data-theme=\"" + cfg.Theme + "\"] {\n")
	for _, k := range names {
		b.WriteString("  " + k + ": " + cfg.CSSVars[k] + ";\n")
	}
	b.WriteString("}\n\n")
	b.WriteString(vanilla.Stylesheet())
	c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(b.String()))
}

func (s *Server) listRenderers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"renderers": s.app.Renderers.Describe(),
		"default":   defaultRenderer,
		"theme":     themes.DefaultTheme,
	})
}
