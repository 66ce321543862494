package model

// DocumentPatch is a shallow partial update. Nil members are left untouched;
// a non-nil Steps replaces the whole step list.
type DocumentPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	InfoTop     *string     `json:"infoTop,omitempty"`
	InfoBottom  *string     `json:"infoBottom,omitempty"`
	Kind        *Kind       `json:"type,omitempty"`
	Steps       []Step      `json:"steps,omitempty"`
	Background  *Background `json:"background,omitempty"`
	FontTheme   *FontTheme  `json:"fontTheme,omitempty"`
}

// Apply returns a copy of doc with the patch merged in.
func (p DocumentPatch) Apply(doc Document) Document {
	out := doc.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.InfoTop != nil {
		out.InfoTop = *p.InfoTop
	}
	if p.InfoBottom != nil {
		out.InfoBottom = *p.InfoBottom
	}
	if p.Kind != nil {
		out.Kind = *p.Kind
	}
	if p.Steps != nil {
		out.Steps = Document{Steps: p.Steps}.Clone().Steps
	}
	if p.Background != nil {
		out.Background = *p.Background
	}
	if p.FontTheme != nil {
		out.FontTheme = *p.FontTheme
	}
	return out
}

// FieldPatch is a partial update of a field. The field name is immutable and
// therefore absent.
type FieldPatch struct {
	Type        *FieldType     `json:"type,omitempty"`
	Label       *string        `json:"label,omitempty"`
	Placeholder *string        `json:"placeholder,omitempty"`
	HelpText    *string        `json:"helpText,omitempty"`
	Required    *bool          `json:"required,omitempty"`
	Validations *Validations   `json:"validations,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
	Multiple    *bool          `json:"multiple,omitempty"`
	MinSelected **int          `json:"minSelected,omitempty"`
	MaxSelected **int          `json:"maxSelected,omitempty"`
	AllowCustom *bool          `json:"allowCustom,omitempty"`
}

// Apply returns a copy of field with the patch merged in and normalized for
// its (possibly new) type.
func (p FieldPatch) Apply(field Field) Field {
	out := field.Clone()
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Label != nil {
		out.Label = *p.Label
	}
	if p.Placeholder != nil {
		out.Placeholder = *p.Placeholder
	}
	if p.HelpText != nil {
		out.HelpText = *p.HelpText
	}
	if p.Required != nil {
		out.Required = *p.Required
	}
	if p.Validations != nil {
		out.Validations = Field{Validations: p.Validations}.Clone().Validations
	}
	if p.Options != nil {
		out.Options = append([]SelectOption(nil), p.Options...)
	}
	if p.Multiple != nil {
		out.Multiple = *p.Multiple
	}
	if p.MinSelected != nil {
		out.MinSelected = cloneInt(*p.MinSelected)
	}
	if p.MaxSelected != nil {
		out.MaxSelected = cloneInt(*p.MaxSelected)
	}
	if p.AllowCustom != nil {
		out.AllowCustom = *p.AllowCustom
	}
	out.Normalize()
	return out
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}
