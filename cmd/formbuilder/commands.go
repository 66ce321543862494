package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/goliatone/go-formbuilder/internal/server"
	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/export"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/orchestrator"
	"github.com/goliatone/go-formbuilder/pkg/preview"
	"github.com/goliatone/go-formbuilder/pkg/render"
	"github.com/goliatone/go-formbuilder/pkg/store"
	"github.com/goliatone/go-formbuilder/pkg/templates"
	"github.com/goliatone/go-formbuilder/pkg/themes"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

func runList(ctx context.Context, e *env, args []string) error {
	fs := subcommand("list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	metas := e.app.Store("").List(ctx)
	if len(metas) == 0 {
		fmt.Fprintln(e.out, "no forms")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tSTEPS\tFIELDS\tTHEME\tUPDATED")
	for _, m := range metas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			m.ID, m.Title, m.Kind, m.StepsCount, m.FieldsCount, m.Theme, m.UpdatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runShow(ctx context.Context, e *env, args []string) error {
	fs := subcommand("show")
	format := fs.String("format", "json", "output format: json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	rec, ok := e.app.Store("").Record(ctx, id)
	if !ok {
		return fmt.Errorf("form %q not found", id)
	}
	payload, err := export.Encode(rec, f)
	if err != nil {
		return err
	}
	_, err = e.out.Write(payload)
	return err
}

func runNew(ctx context.Context, e *env, args []string) error {
	fs := subcommand("new")
	templateID := fs.String("template", "", "starter template id")
	title := fs.String("title", "", "form title")
	themeName := fs.String("theme", "", "form theme")
	if err := fs.Parse(args); err != nil {
		return err
	}

	session := builder.New(e.app.SessionOptions()...)
	theme := *themeName
	if *templateID != "" {
		tpl, err := templates.Lookup(*templateID)
		if err != nil {
			return err
		}
		if err := session.Replace(tpl.Document()); err != nil {
			return err
		}
		if theme == "" {
			theme = tpl.Theme
		}
	}
	if *title != "" {
		if err := session.UpdateForm(model.DocumentPatch{Title: title}); err != nil {
			return err
		}
	}
	if theme != "" && !e.app.Themes.Has(theme) {
		return fmt.Errorf("unknown theme %q (see the themes command)", theme)
	}

	doc := session.Document()
	id, err := e.app.Store("").Upsert(ctx, doc, store.UpsertOptions{Theme: theme, CoverURL: doc.Background.URL})
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, id)
	return nil
}

func runDuplicate(ctx context.Context, e *env, args []string) error {
	fs := subcommand("duplicate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}
	newID, ok, err := e.app.Store("").Duplicate(ctx, id)
	if !ok {
		return fmt.Errorf("form %q not found", id)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, newID)
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	fs := subcommand("delete")
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}
	st := e.app.Store("")
	meta, ok := st.GetMeta(ctx, id)
	if !ok {
		return fmt.Errorf("form %q not found", id)
	}
	if !*yes {
		confirmed := false
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Delete %q?", meta.Title)).
					Description("This cannot be undone.").
					Value(&confirmed),
			),
		).Run()
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}
	return st.Delete(ctx, id)
}

func runValidate(ctx context.Context, e *env, args []string) error {
	fs := subcommand("validate")
	valuesPath := fs.String("values", "-", "JSON object of answers, - for stdin")
	step := fs.Int("step", -1, "validate only the fields of this step")
	locale := fs.String("locale", "", "message locale, defaults to validation.locale")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}
	doc, ok := e.app.Store("").Get(ctx, id)
	if !ok {
		return fmt.Errorf("form %q not found", id)
	}

	values, err := readValues(*valuesPath, e.in)
	if err != nil {
		return err
	}

	opts := append(e.app.SessionOptions(), builder.WithDocument(doc))
	if *locale != "" {
		opts = append(opts, builder.WithValidationOptions(validation.WithLocale(*locale)))
	}
	session := builder.New(opts...)

	var result validation.Result
	if *step >= 0 {
		if *step >= len(doc.Steps) {
			return builder.ErrStepIndex
		}
		names := make([]string, 0, len(doc.Steps[*step].Fields))
		for _, f := range doc.Steps[*step].Fields {
			names = append(names, f.Name)
		}
		result = session.Validator().ValidateFields(values, names)
	} else {
		result = session.ValidateResponse(values)
	}
	if result.Valid {
		fmt.Fprintln(e.out, "valid")
		return nil
	}
	for _, name := range result.Invalid {
		fmt.Fprintf(e.out, "%s: %s\n", name, result.Errors[name])
	}
	return errInvalid
}

// readValues decodes a JSON response from path, or from stdin when path is
// "-".
func readValues(path string, stdin io.Reader) (map[string]any, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	values := map[string]any{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return values, nil
}

func runPreview(ctx context.Context, e *env, args []string) error {
	fs := subcommand("preview")
	format := fs.String("format", string(preview.OutputFormatPrettyText), "answer format: json, form or pretty")
	noCover := fs.Bool("no-cover", false, "skip the cover screen")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}
	doc, ok := e.app.Store("").Get(ctx, id)
	if !ok {
		return fmt.Errorf("form %q not found", id)
	}
	return previewDocument(ctx, e, doc, preview.OutputFormat(*format), !*noCover)
}

func previewDocument(ctx context.Context, e *env, doc model.Document, format preview.OutputFormat, cover bool) error {
	runner := preview.New(
		preview.WithPromptDriver(preview.NewSurveyDriver(os.Stderr)),
		preview.WithOutputFormat(format),
		preview.WithValidationOptions(e.app.ValidationOptions()...),
		preview.WithCover(cover),
		preview.WithLogger(e.app.Logger),
	)
	out, err := runner.Run(ctx, doc)
	if err != nil {
		return err
	}
	_, err = e.out.Write(out)
	return err
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := subcommand("export")
	format := fs.String("format", "json", "output format: json or yaml")
	schema := fs.Bool("schema", false, "export the OpenAPI description of the response instead of the form")
	output := fs.String("o", "", "output file (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	doc, ok := e.app.Store("").Get(ctx, id)
	if !ok {
		return fmt.Errorf("form %q not found", id)
	}

	var v any = doc
	if *schema {
		spec, err := export.Spec(ctx, id, doc)
		if err != nil {
			return err
		}
		v = spec
	}
	payload, err := export.Encode(v, f)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err = e.out.Write(payload)
		return err
	}
	if err := os.WriteFile(*output, payload, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(e.out, "Form written to %s\n", *output)
	return nil
}

func runRender(ctx context.Context, e *env, args []string) error {
	fs := subcommand("render")
	name := fs.String("renderer", "vanilla", "renderer: "+strings.Join(e.app.Renderers.List(), ", "))
	step := fs.Int("step", render.AllSteps, "render one step by index (-1 renders all)")
	values := fs.String("values", "", "JSON response to prefill and validate")
	locale := fs.String("locale", "", "validation message locale")
	preset := fs.String("preset", "", "YAML or JSON copy overrides applied before rendering")
	onePerStep := fs.Bool("one-per-step", false, "give every question its own step")
	noCover := fs.Bool("no-cover", false, "skip the cover image")
	output := fs.String("o", "", "output file (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := requireID(fs)
	if err != nil {
		return err
	}

	opts := render.DefaultOptions()
	opts.Step = *step
	opts.NoCover = *noCover
	opts.Hidden = []render.HiddenField{render.FormID(id)}
	req := orchestrator.Request{ID: id, Renderer: *name, Locale: *locale, RenderOptions: opts}
	if *preset != "" {
		t, err := orchestrator.LoadPresetTransformer(*preset)
		if err != nil {
			return err
		}
		req.Transformers = append(req.Transformers, t)
	}
	if *onePerStep {
		req.Transformers = append(req.Transformers, orchestrator.OneFieldPerStep())
	}
	if *values != "" {
		response, err := readValues(*values, e.in)
		if err != nil {
			return err
		}
		req.Values = response
		req.Validate = true
	}

	out, err := e.app.Orchestrator.Generate(ctx, e.app.Store(""), req)
	if err != nil {
		return err
	}
	if *output == "" {
		_, err = e.out.Write(out.Body)
		return err
	}
	if err := os.WriteFile(*output, out.Body, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(e.out, "Form rendered to %s\n", *output)
	return nil
}

func runImport(ctx context.Context, e *env, args []string) error {
	fs := subcommand("import")
	id := fs.String("id", "", "store under this id, replacing an existing form")
	themeName := fs.String("theme", "", "form theme")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := requireID(fs)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := export.DecodeDocument(raw)
	if err != nil {
		return err
	}
	session := builder.New(e.app.SessionOptions()...)
	if err := session.Replace(doc); err != nil {
		return err
	}
	if *themeName != "" && !e.app.Themes.Has(*themeName) {
		return fmt.Errorf("unknown theme %q", *themeName)
	}
	warnings := append(session.Document().Warnings(), validation.PatternWarnings(session.Document())...)
	for _, w := range warnings {
		e.app.Logger.Warn("imported form", "code", w.Code, "step", w.Step, "warning", w.Message)
	}

	doc = session.Document()
	stored, err := e.app.Store("").Upsert(ctx, doc, store.UpsertOptions{ID: *id, Theme: *themeName, CoverURL: doc.Background.URL})
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, stored)
	return nil
}

func runTemplates(_ context.Context, e *env, args []string) error {
	fs := subcommand("templates")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTHEME\tFIELDS\tDESCRIPTION")
	for _, t := range templates.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Name, t.Theme, t.Form.FieldCount(), t.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "\nCovers:")
	for _, c := range templates.CoverOptions() {
		fmt.Fprintf(e.out, "  %s\n    %s\n", c.Label, c.URL)
	}
	return nil
}

func runThemes(_ context.Context, e *env, args []string) error {
	fs := subcommand("themes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Themes: %s\n", strings.Join(themes.Names(), ", "))

	tints := make([]string, 0, len(model.Tints))
	for _, t := range model.Tints {
		tints = append(tints, fmt.Sprintf("%s (%s)", t, themes.OverlayAlpha(t)))
	}
	fmt.Fprintf(e.out, "Tints: %s\n", strings.Join(tints, ", "))

	fmt.Fprintln(e.out, "Fonts:")
	for _, ft := range model.FontThemes {
		fonts := themes.FontsFor(ft)
		fmt.Fprintf(e.out, "  %-10s %s / %s\n", ft, fonts.Heading, fonts.Body)
	}
	return nil
}

func runMigrate(ctx context.Context, e *env, args []string) error {
	fs := subcommand("migrate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n, err := e.app.Store("").MigrateBackgrounds(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "migrated %d form(s)\n", n)
	return nil
}

func runServe(ctx context.Context, e *env, args []string) error {
	fs := subcommand("serve")
	addr := fs.String("addr", e.app.Config.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if e.app.Config.Server.JWTSecret == "" {
		e.app.Logger.Warn("server.jwtSecret is empty: authentication disabled", "namespace", e.app.Config.Store.Namespace)
	}
	return server.New(e.app).Run(ctx, *addr)
}

func runToken(_ context.Context, e *env, args []string) error {
	fs := subcommand("token")
	tenant := fs.String("tenant", "", "tenant id (store namespace)")
	subject := fs.String("subject", "cli", "token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tok, err := server.SignToken([]byte(e.app.Config.Server.JWTSecret), *subject, *tenant, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, tok)
	return nil
}
