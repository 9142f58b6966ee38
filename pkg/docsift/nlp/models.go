package nlp

// ModelTable maps languages to models with a defined fallback chain:
// specific language, then the default language, then nothing.
type ModelTable struct {
	models   map[Language]Model
	fallback Language
}

// NewModelTable creates an empty table whose fallback is Default.
func NewModelTable() *ModelTable {
	return &ModelTable{
		models:   make(map[Language]Model),
		fallback: Default,
	}
}

// Register installs m for lang, replacing any earlier model.
// Tables are filled at startup and read-only afterwards.
func (t *ModelTable) Register(lang Language, m Model) {
	t.models[lang] = m
}

// SetFallback changes the default language consulted after a miss.
func (t *ModelTable) SetFallback(lang Language) {
	t.fallback = lang
}

// Lookup resolves lang through the fallback chain.
func (t *ModelTable) Lookup(lang Language) (Model, bool) {
	if m, ok := t.models[lang]; ok && m != nil {
		return m, true
	}
	if m, ok := t.models[t.fallback]; ok && m != nil {
		return m, true
	}
	return nil, false
}

// Languages lists the languages with a registered model.
func (t *ModelTable) Languages() []Language {
	out := make([]Language, 0, len(t.models))
	for l := range t.models {
		out = append(out, l)
	}
	return out
}
