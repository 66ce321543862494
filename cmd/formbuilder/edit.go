package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/goliatone/go-formbuilder/pkg/autosave"
	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/model"
	"github.com/goliatone/go-formbuilder/pkg/preview"
	"github.com/goliatone/go-formbuilder/pkg/templates"
	"github.com/goliatone/go-formbuilder/pkg/validation"
)

const (
	actionDetails    = "details"
	actionBackground = "background"
	actionAddStep    = "add-step"
	actionRenameStep = "rename-step"
	actionRemoveStep = "remove-step"
	actionGotoStep   = "goto-step"
	actionAddField   = "add-field"
	actionEditField  = "edit-field"
	actionMoveField  = "move-field"
	actionDropField  = "remove-field"
	actionSplit      = "one-per-step"
	actionPreview    = "preview"
	actionSave       = "save"
	actionQuit       = "quit"
)

type editor struct {
	env     *env
	session *builder.Session
	saver   *autosave.Controller
}

func runEdit(ctx context.Context, e *env, args []string) error {
	fs := subcommand("edit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return flag.ErrHelp
	}

	st := e.app.Store("")
	var (
		session *builder.Session
		found   bool
	)
	if id := fs.Arg(0); id != "" {
		session, found = builder.Open(ctx, st, id, e.app.SessionOptions()...)
		if !found {
			fmt.Fprintf(e.out, "No form %q yet, starting a blank one.\n", id)
		}
	} else {
		session = builder.New(e.app.SessionOptions()...)
	}

	opts := []autosave.Option{autosave.WithID(session.ID())}
	if found {
		opts = append(opts, autosave.WithBaseline(session.Document()))
	}
	ed := &editor{env: e, session: session, saver: e.app.Autosave(st, opts...)}
	session.Subscribe(ed.saver.Observe)
	defer ed.saver.Close(context.Background())

	return ed.loop(ctx)
}

func (ed *editor) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		ed.adoptID()
		action := actionAddField
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title(ed.header()).
					Description(ed.outline()).
					Options(ed.menu()...).
					Value(&action),
			),
		).Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if action == actionQuit {
			return nil
		}
		if err := ed.apply(ctx, action); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				continue
			}
			fmt.Fprintf(ed.env.out, "! %v\n", err)
		}
	}
}

// adoptID copies the id minted by the first autosave into the session. The
// controller saves on its own goroutine, so the session is only touched from
// the editor loop.
func (ed *editor) adoptID() string {
	id := ed.saver.ID()
	if id != "" && id != ed.session.ID() {
		ed.session.SetID(id)
	}
	return id
}

// warnPatterns prints custom patterns that will not be enforced.
func (ed *editor) warnPatterns() {
	for _, w := range validation.PatternWarnings(ed.session.Document()) {
		fmt.Fprintf(ed.env.out, "warning: %s\n", w.Message)
	}
}

func (ed *editor) header() string {
	doc := ed.session.Document()
	nav := ed.session.Navigator()
	id := ed.adoptID()
	if id == "" {
		id = "unsaved"
	}
	return fmt.Sprintf("%s (%s) step %d/%d [%s, %s]",
		doc.Title, doc.Kind, nav.Current()+1, len(doc.Steps), id, ed.saver.Status())
}

func (ed *editor) outline() string {
	doc := ed.session.Document()
	cur := ed.session.Navigator().Current()
	var b strings.Builder
	for i, step := range doc.Steps {
		marker := "  "
		if i == cur {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s\n", marker, step.Title)
		for j, f := range step.Fields {
			req := ""
			if f.Required {
				req = " *"
			}
			fmt.Fprintf(&b, "     %d. %s [%s]%s\n", doc.FieldsBefore(i)+j+1, f.Label, f.Type, req)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (ed *editor) menu() []huh.Option[string] {
	opts := []huh.Option[string]{
		huh.NewOption("Add field", actionAddField),
		huh.NewOption("Edit field", actionEditField),
		huh.NewOption("Move field", actionMoveField),
		huh.NewOption("Remove field", actionDropField),
		huh.NewOption("Form details", actionDetails),
		huh.NewOption("Cover image", actionBackground),
		huh.NewOption("Add step", actionAddStep),
	}
	if ed.session.Document().Kind == model.KindMultiStep {
		opts = append(opts,
			huh.NewOption("Go to step", actionGotoStep),
			huh.NewOption("Rename step", actionRenameStep),
			huh.NewOption("Remove step", actionRemoveStep),
		)
	}
	return append(opts,
		huh.NewOption("One question per step", actionSplit),
		huh.NewOption("Preview", actionPreview),
		huh.NewOption("Save now", actionSave),
		huh.NewOption("Quit", actionQuit),
	)
}

func (ed *editor) apply(ctx context.Context, action string) error {
	s := ed.session
	cur := s.Navigator().Current()
	if cur < 0 {
		cur = s.Goto(0)
	}
	switch action {
	case actionDetails:
		return ed.editDetails()
	case actionBackground:
		return ed.editBackground()
	case actionAddStep:
		s.AddStep()
		return nil
	case actionGotoStep:
		i, err := ed.pickStep()
		if err != nil {
			return err
		}
		s.Goto(i)
		return nil
	case actionRenameStep:
		title := s.Document().Steps[cur].Title
		if err := huh.NewInput().Title("Step title").Value(&title).Run(); err != nil {
			return err
		}
		return s.RenameStep(cur, title)
	case actionRemoveStep:
		if !ed.confirm("Remove this step and its fields?") {
			return nil
		}
		return s.RemoveStep(cur)
	case actionAddField:
		field, err := askField(model.Field{Type: model.FieldText})
		if err != nil {
			return err
		}
		if _, err := s.AddField(field); err != nil {
			return err
		}
		ed.warnPatterns()
		return nil
	case actionEditField:
		field, err := ed.pickField("Edit which field?")
		if err != nil {
			return err
		}
		edited, err := askField(field)
		if err != nil {
			return err
		}
		if _, err := s.UpdateField(cur, field.ID, patchFrom(edited)); err != nil {
			return err
		}
		ed.warnPatterns()
		return nil
	case actionMoveField:
		return ed.moveField()
	case actionDropField:
		field, err := ed.pickField("Remove which field?")
		if err != nil {
			return err
		}
		return s.RemoveField(cur, field.ID)
	case actionSplit:
		if !ed.confirm("Give every question its own step?") {
			return nil
		}
		s.OneFieldPerStep()
		return nil
	case actionPreview:
		ed.saver.Hide(ctx)
		err := previewDocument(ctx, ed.env, s.Document(), preview.OutputFormatPrettyText, s.Navigator().CoverEnabled())
		if errors.Is(err, preview.ErrAborted) {
			return nil
		}
		return err
	case actionSave:
		ed.saver.Flush(ctx)
		if err := ed.saver.LastError(); err != nil {
			return err
		}
		fmt.Fprintf(ed.env.out, "Saved %s\n", ed.adoptID())
		return nil
	}
	return fmt.Errorf("unknown action %q", action)
}

func (ed *editor) editDetails() error {
	doc := ed.session.Document()
	var (
		title       = doc.Title
		description = doc.Description
		infoTop     = doc.InfoTop
		infoBottom  = doc.InfoBottom
		kind        = doc.Kind
		font        = doc.FontTheme
	)
	fonts := make([]huh.Option[model.FontTheme], 0, len(model.FontThemes))
	for _, ft := range model.FontThemes {
		fonts = append(fonts, huh.NewOption(string(ft), ft))
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(&title).Validate(notBlank("title")),
			huh.NewText().Title("Description").Value(&description),
			huh.NewSelect[model.Kind]().
				Title("Layout").
				Options(
					huh.NewOption("Single page", model.KindSimple),
					huh.NewOption("Multiple steps", model.KindMultiStep),
				).
				Value(&kind),
			huh.NewSelect[model.FontTheme]().Title("Fonts").Options(fonts...).Value(&font),
		),
		huh.NewGroup(
			huh.NewText().Title("Text above the questions").Value(&infoTop),
			huh.NewText().Title("Text before submitting").Value(&infoBottom),
		),
	).Run()
	if err != nil {
		return err
	}
	return ed.session.UpdateForm(model.DocumentPatch{
		Title:       &title,
		Description: &description,
		InfoTop:     &infoTop,
		InfoBottom:  &infoBottom,
		Kind:        &kind,
		FontTheme:   &font,
	})
}

const (
	coverNone   = "none"
	coverCustom = "custom"
)

func (ed *editor) editBackground() error {
	bg := ed.session.Document().Background
	choice := bg.URL
	if choice == "" {
		choice = coverNone
	}
	covers := []huh.Option[string]{huh.NewOption("No cover", coverNone)}
	known := false
	for _, c := range templates.CoverOptions() {
		covers = append(covers, huh.NewOption(c.Label, c.URL))
		known = known || c.URL == bg.URL
	}
	covers = append(covers, huh.NewOption("Custom URL...", coverCustom))
	if bg.URL != "" && !known {
		choice = coverCustom
	}

	tint := bg.Tint
	if tint == "" {
		tint = model.TintDark
	}
	tints := make([]huh.Option[model.Tint], 0, len(model.Tints))
	for _, t := range model.Tints {
		tints = append(tints, huh.NewOption(string(t), t))
	}
	mode := bg.Mode
	if mode == "" {
		mode = model.BackgroundCover
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Cover image").Options(covers...).Value(&choice),
		),
		huh.NewGroup(
			huh.NewInput().Title("Image URL").Value(&bg.URL).Validate(builder.CheckCoverURL),
		).WithHideFunc(func() bool { return choice != coverCustom }),
		huh.NewGroup(
			huh.NewSelect[model.Tint]().Title("Overlay").Options(tints...).Value(&tint),
			huh.NewSelect[model.BackgroundMode]().
				Title("Fit").
				Options(
					huh.NewOption("Fill", model.BackgroundCover),
					huh.NewOption("Fit whole image", model.BackgroundContain),
				).
				Value(&mode),
		).WithHideFunc(func() bool { return choice == coverNone }),
	).Run()
	if err != nil {
		return err
	}
	switch choice {
	case coverNone:
		return ed.session.SetBackground(model.Background{})
	case coverCustom:
	default:
		bg.URL = choice
	}
	return ed.session.SetBackground(model.Background{URL: bg.URL, Mode: mode, Tint: tint})
}

func (ed *editor) moveField() error {
	field, err := ed.pickField("Move which field?")
	if err != nil {
		return err
	}
	fields := ed.session.Navigator().Fields()
	from := 0
	positions := make([]huh.Option[int], len(fields))
	for i, f := range fields {
		if f.ID == field.ID {
			from = i
		}
		positions[i] = huh.NewOption(fmt.Sprintf("Position %d (%s)", i+1, f.Label), i)
	}
	to := from
	if err := huh.NewSelect[int]().Title("New position").Options(positions...).Value(&to).Run(); err != nil {
		return err
	}
	return ed.session.MoveField(from, to)
}

func (ed *editor) pickStep() (int, error) {
	doc := ed.session.Document()
	opts := make([]huh.Option[int], len(doc.Steps))
	for i, step := range doc.Steps {
		opts[i] = huh.NewOption(fmt.Sprintf("%d. %s", i+1, step.Title), i)
	}
	i := ed.session.Navigator().Current()
	err := huh.NewSelect[int]().Title("Go to step").Options(opts...).Value(&i).Run()
	return i, err
}

func (ed *editor) pickField(title string) (model.Field, error) {
	fields := ed.session.Navigator().Fields()
	if len(fields) == 0 {
		return model.Field{}, errors.New("this step has no fields")
	}
	opts := make([]huh.Option[string], len(fields))
	for i, f := range fields {
		opts[i] = huh.NewOption(fmt.Sprintf("%s (%s)", f.Label, f.Name), f.ID)
	}
	id := fields[0].ID
	if err := huh.NewSelect[string]().Title(title).Options(opts...).Value(&id).Run(); err != nil {
		return model.Field{}, err
	}
	for _, f := range fields {
		if f.ID == id {
			return f, nil
		}
	}
	return model.Field{}, builder.ErrFieldNotFound
}

func (ed *editor) confirm(title string) bool {
	ok := false
	if err := huh.NewConfirm().Title(title).Value(&ok).Run(); err != nil {
		return false
	}
	return ok
}

// askField edits a copy of field. Bounds are entered as text so they can be
// left empty.
func askField(field model.Field) (model.Field, error) {
	out := field.Clone()
	v := model.Validations{}
	if out.Validations != nil {
		v = *out.Validations
	}
	var (
		minLen   = intText(v.MinLength)
		maxLen   = intText(v.MaxLength)
		minSel   = intText(out.MinSelected)
		maxSel   = intText(out.MaxSelected)
		options  = optionsText(out.Options)
		patterns = []huh.Option[model.RegexKind]{
			huh.NewOption("None", model.RegexNone),
			huh.NewOption("Phone", model.RegexPhone),
			huh.NewOption("Email", model.RegexEmail),
			huh.NewOption("CURP", model.RegexCURP),
			huh.NewOption("Custom", model.RegexCustom),
		}
	)
	hideText := func() bool { return !out.Type.Textual() }
	hideChoices := func() bool { return out.Type != model.FieldSelect }

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[model.FieldType]().
				Title("Type").
				Options(
					huh.NewOption("Short text", model.FieldText),
					huh.NewOption("Long text", model.FieldTextArea),
					huh.NewOption("Date", model.FieldDate),
					huh.NewOption("Choice", model.FieldSelect),
				).
				Value(&out.Type),
			huh.NewInput().Title("Question").Value(&out.Label).Validate(notBlank("question")),
			huh.NewInput().Title("Placeholder").Value(&out.Placeholder),
			huh.NewInput().Title("Help text").Value(&out.HelpText),
			huh.NewConfirm().Title("Required?").Value(&out.Required),
		),
		huh.NewGroup(
			huh.NewInput().Title("Minimum length").Value(&minLen).Validate(optionalInt),
			huh.NewInput().Title("Maximum length").Value(&maxLen).Validate(optionalInt),
			huh.NewSelect[model.RegexKind]().Title("Format").Options(patterns...).Value(&v.Regex),
		).WithHideFunc(hideText),
		huh.NewGroup(
			huh.NewInput().
				Title("Pattern").
				Description("A regular expression, optionally written as /body/flags.").
				Value(&v.CustomRegex),
		).WithHideFunc(func() bool { return hideText() || v.Regex != model.RegexCustom }),
		huh.NewGroup(
			huh.NewText().
				Title("Options").
				Description("One per line. Use label=value to set the stored value.").
				Value(&options),
			huh.NewConfirm().Title("Allow several choices?").Value(&out.Multiple),
			huh.NewConfirm().Title("Allow a custom answer?").Value(&out.AllowCustom),
		).WithHideFunc(hideChoices),
		huh.NewGroup(
			huh.NewInput().Title("Minimum choices").Value(&minSel).Validate(optionalInt),
			huh.NewInput().Title("Maximum choices").Value(&maxSel).Validate(optionalInt),
		).WithHideFunc(func() bool { return hideChoices() || !out.Multiple }),
	).Run()
	if err != nil {
		return model.Field{}, err
	}

	v.MinLength = parseIntText(minLen)
	v.MaxLength = parseIntText(maxLen)
	out.Validations = &v
	out.Options = parseOptions(options)
	out.MinSelected = parseIntText(minSel)
	out.MaxSelected = parseIntText(maxSel)
	out.Normalize()
	return out, nil
}

func patchFrom(f model.Field) model.FieldPatch {
	validations := f.Validations
	if validations == nil {
		validations = &model.Validations{}
	}
	return model.FieldPatch{
		Type:        &f.Type,
		Label:       &f.Label,
		Placeholder: &f.Placeholder,
		HelpText:    &f.HelpText,
		Required:    &f.Required,
		Validations: validations,
		Options:     f.Options,
		Multiple:    &f.Multiple,
		MinSelected: &f.MinSelected,
		MaxSelected: &f.MaxSelected,
		AllowCustom: &f.AllowCustom,
	}
}

func notBlank(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func optionalInt(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return errors.New("enter a whole number or leave empty")
	}
	return nil
}

func intText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseIntText(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func optionsText(opts []model.SelectOption) string {
	lines := make([]string, len(opts))
	for i, o := range opts {
		if o.Value == model.Slugify(o.Label) {
			lines[i] = o.Label
			continue
		}
		lines[i] = o.Label + "=" + o.Value
	}
	return strings.Join(lines, "\n")
}

// parseOptions reads one option per line. A bare label gets its slug as
// value.
func parseOptions(text string) []model.SelectOption {
	var out []model.SelectOption
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		label, value, ok := strings.Cut(line, "=")
		if !ok {
			value = model.Slugify(label)
		}
		out = append(out, model.SelectOption{Label: strings.TrimSpace(label), Value: strings.TrimSpace(value)})
	}
	return out
}
