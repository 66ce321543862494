package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/export"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/templates"
	"github.com/goliatone/go-formbuilder/pkg/themes"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

type createRequest struct {
	Template string          `json:"template"`
	Form     json.RawMessage `json:"form"`
	Theme    string          `json:"theme"`
}

type validateRequest struct {
	Values map[string]any `json:"values"`
	// Step limits validation to the fields of one step when set.
	Step *int `json:"step"`
}

type themeView struct {
	Theme      string            `json:"theme"`
	Variant    string            `json:"variant"`
	Tokens     map[string]string `json:"tokens"`
	CSSVars    map[string]string `json:"cssVars"`
	Partials   map[string]string `json:"partials,omitempty"`
	Stylesheet string            `json:"stylesheet,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"templates": templates.All(),
		"covers":    templates.CoverOptions(),
	})
}

func (s *Server) listThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"themes": themes.Names(),
		"tints":  model.Tints,
		"fonts":  model.FontThemes,
	})
}

func (s *Server) listForms(c *gin.Context) {
	c.JSON(http.StatusOK, s.store(c).List(c.Request.Context()))
}

func (s *Server) getForm(c *gin.Context) {
	rec, ok := s.store(c).Record(c.Request.Context(), c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) createForm(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session := s.session(c)
	theme := req.Theme
	switch {
	case req.Template != "":
		tpl, err := templates.Lookup(req.Template)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err := session.Replace(tpl.Document()); err != nil {
			s.fail(c, err)
			return
		}
		if theme == "" {
			theme = tpl.Theme
		}
	case len(req.Form) > 0:
		if err := session.ReplaceJSON(req.Form); err != nil {
			s.fail(c, err)
			return
		}
	}
	if theme != "" && !s.app.Themes.Has(theme) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown theme " + strconv.Quote(theme)})
		return
	}

	doc := session.Document()
	st := s.store(c)
	id, err := st.Upsert(c.Request.Context(), doc, store.UpsertOptions{Theme: theme, CoverURL: doc.Background.URL})
	if err != nil {
		s.fail(c, err)
		return
	}
	rec, _ := st.Record(c.Request.Context(), id)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) replaceForm(c *gin.Context) {
	id := c.Param("id")
	st := s.store(c)
	if _, ok := st.GetMeta(c.Request.Context(), id); !ok {
		notFound(c)
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session := s.session(c, builder.WithID(id))
	if err := session.ReplaceJSON(raw); err != nil {
		s.fail(c, err)
		return
	}
	s.save(c, st, session)
}

func (s *Server) patchForm(c *gin.Context) {
	var patch model.DocumentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st := s.store(c)
	session, found := builder.Open(c.Request.Context(), st, c.Param("id"), s.app.SessionOptions()...)
	if !found {
		notFound(c)
		return
	}
	if err := session.UpdateForm(patch); err != nil {
		s.fail(c, err)
		return
	}
	if err := session.Document().Check(); err != nil {
		s.fail(c, errors.Join(builder.ErrInvalidImport, err))
		return
	}
	s.save(c, st, session)
}

func (s *Server) patchMeta(c *gin.Context) {
	var patch store.MetaPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if patch.Theme != nil && *patch.Theme != "" && !s.app.Themes.Has(*patch.Theme) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown theme " + strconv.Quote(*patch.Theme)})
		return
	}
	if patch.CoverURL != nil {
		if err := builder.CheckCoverURL(*patch.CoverURL); err != nil {
			s.fail(c, err)
			return
		}
	}
	meta, ok, err := s.store(c).UpdateMeta(c.Request.Context(), c.Param("id"), patch)
	if !ok {
		notFound(c)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (s *Server) deleteForm(c *gin.Context) {
	id := c.Param("id")
	st := s.store(c)
	if _, ok := st.GetMeta(c.Request.Context(), id); !ok {
		notFound(c)
		return
	}
	if err := st.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) duplicateForm(c *gin.Context) {
	st := s.store(c)
	id, ok, err := st.Duplicate(c.Request.Context(), c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	rec, _ := st.Record(c.Request.Context(), id)
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) validateResponse(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, ok := s.store(c).Get(c.Request.Context(), c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	res, err := s.check(c, doc, req.Values, req.Step)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// check validates a response against the whole form or, when step is set,
// against the fields of that step only.
func (s *Server) check(c *gin.Context, doc model.Document, values map[string]any, step *int) (validation.Result, error) {
	if values == nil {
		values = map[string]any{}
	}
	session := s.session(c, builder.WithDocument(doc))
	if step == nil {
		return session.ValidateResponse(values), nil
	}
	if *step < 0 || *step >= len(doc.Steps) {
		return validation.Result{}, builder.ErrStepIndex
	}
	names := make([]string, 0, len(doc.Steps[*step].Fields))
	for _, f := range doc.Steps[*step].Fields {
		names = append(names, f.Name)
	}
	return session.Validator().ValidateFields(values, names), nil
}

func (s *Server) schema(c *gin.Context) {
	id := c.Param("id")
	doc, ok := s.store(c).Get(c.Request.Context(), id)
	if !ok {
		notFound(c)
		return
	}
	spec, err := export.Spec(c.Request.Context(), id, doc)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.encode(c, spec)
}

func (s *Server) exportForm(c *gin.Context) {
	doc, ok := s.store(c).Get(c.Request.Context(), c.Param("id"))
	if !ok {
		notFound(c)
		return
	}
	s.encode(c, doc)
}

func (s *Server) formTheme(c *gin.Context) {
	id := c.Param("id")
	st := s.store(c)
	doc, ok := st.Get(c.Request.Context(), id)
	if !ok {
		notFound(c)
		return
	}
	meta, _ := st.GetMeta(c.Request.Context(), id)
	cfg, err := s.app.Themes.ForDocument(meta.Theme, doc)
	if err != nil {
		s.fail(c, err)
		return
	}
	view := themeView{
		Theme:    cfg.Theme,
		Variant:  cfg.Variant,
		Tokens:   cfg.Tokens,
		CSSVars:  cfg.CSSVars,
		Partials: cfg.Partials,
	}
	if cfg.AssetURL != nil {
		view.Stylesheet = cfg.AssetURL("stylesheet")
	}
	c.JSON(http.StatusOK, view)
}

// session starts an editing session with the configured validation options
// plus the request locale, when one is given.
func (s *Server) session(c *gin.Context, opts ...builder.Option) *builder.Session {
	base := s.app.SessionOptions()
	if locale := c.Query("locale"); locale != "" {
		base = append(base, builder.WithValidationOptions(validation.WithLocale(locale)))
	}
	return builder.New(append(base, opts...)...)
}

func (s *Server) save(c *gin.Context, st *store.Store, session *builder.Session) {
	doc := session.Document()
	id, err := st.Upsert(c.Request.Context(), doc, store.UpsertOptions{ID: session.ID(), CoverURL: doc.Background.URL})
	if err != nil {
		s.fail(c, err)
		return
	}
	rec, _ := st.Record(c.Request.Context(), id)
	c.JSON(http.StatusOK, rec)
}

func (s *Server) encode(c *gin.Context, v any) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, err := export.Encode(v, format)
	if err != nil {
		s.fail(c, err)
		return
	}
	contentType := "application/json; charset=utf-8"
	if format == export.FormatYAML {
		contentType = "application/yaml; charset=utf-8"
	}
	c.Data(http.StatusOK, contentType, payload)
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
}

// fail maps domain errors onto status codes. Anything unrecognised is a
// storage failure and is logged.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, builder.ErrInvalidImport),
		errors.Is(err, builder.ErrInvalidCover),
		errors.Is(err, builder.ErrStepIndex),
		errors.Is(err, render.ErrStepRange),
		errors.Is(err, model.ErrUnknownKind),
		errors.Is(err, model.ErrNoSteps),
		errors.Is(err, model.ErrDuplicateName),
		errors.Is(err, themes.ErrUnknownTheme):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
