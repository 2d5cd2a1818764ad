package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/active.*.toml
var embeddedLocales embed.FS

type Translations struct {
	bundle   *i18n.Bundle
	localize *i18n.Localizer
	lang     string
}

// NewTranslations builds the message bundle. An empty localesDir loads the
// locale files shipped with the binary.
func NewTranslations(defaultLang string, localesDir string) (*Translations, error) {
	if defaultLang == "" {
		return nil, errors.New("default language cannot be empty")
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	var fsys fs.FS = embeddedLocales
	pattern := "locales/active.*.toml"
	if localesDir != "" {
		fsys = os.DirFS(localesDir)
		pattern = "active.*.toml"
	}

	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("error reading locales: %w", err)
	}

	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("error reading locale file %s: %w", file, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, filepath.Base(file)); err != nil {
			return nil, fmt.Errorf("error loading locale file %s: %w", file, err)
		}
	}

	return &Translations{
		bundle:   bundle,
		localize: i18n.NewLocalizer(bundle, defaultLang),
		lang:     defaultLang,
	}, nil
}

func (t *Translations) SetLanguage(lang string) error {
	for _, tag := range t.bundle.LanguageTags() {
		if tag.String() == lang {
			t.localize = i18n.NewLocalizer(t.bundle, lang)
			t.lang = lang
			return nil
		}
	}
	return fmt.Errorf("language '%s' not supported", lang)
}

// Language returns the language currently used for lookups.
func (t *Translations) Language() string {
	return t.lang
}

func (t *Translations) GetMessage(messageID string, count int, templateData interface{}) string {
	localized, err := t.localize.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{
			ID: messageID,
		},
		PluralCount:  count,
		TemplateData: templateData,
	})
	if err != nil {
		return "Translation missing: " + messageID
	}
	return localized
}
