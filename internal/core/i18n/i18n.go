package i18n

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yml
var localesFS embed.FS

// Translations holds all translation strings organized by section
type Translations struct {
	Download     DownloadTranslations     `yaml:"download"`
	Install      InstallTranslations      `yaml:"install"`
	Speak        SpeakTranslations        `yaml:"speak"`
	Config       ConfigTranslations       `yaml:"config"`
	ConfigReview ConfigReviewTranslations `yaml:"config_review"`
	Help         HelpTranslations         `yaml:"help"`
}

type DownloadTranslations struct {
	Downloading string `yaml:"downloading"`
	Completed   string `yaml:"completed"`
	Failed      string `yaml:"failed"`
	Progress    string `yaml:"progress"`
	Speed       string `yaml:"speed"`
	ETA         string `yaml:"eta"`
	Elapsed     string `yaml:"elapsed"`
	AvgSpeed    string `yaml:"avg_speed"`
	FileSaved   string `yaml:"file_saved"`
	CancelHint  string `yaml:"cancel_hint"`
}

type InstallTranslations struct {
	Banner      string `yaml:"banner"`
	Extracting  string `yaml:"extracting"`
	Success     string `yaml:"success"`
	Failure     string `yaml:"failure"`
	NetworkHint string `yaml:"network_hint"`
}

type SpeakTranslations struct {
	Synthesizing string `yaml:"synthesizing"`
	Generated    string `yaml:"generated"`
}

type ConfigTranslations struct {
	StepOf         string `yaml:"step_of"`
	Language       string `yaml:"language"`
	LanguageDesc   string `yaml:"language_desc"`
	Provider       string `yaml:"provider"`
	ProviderDesc   string `yaml:"provider_desc"`
	SpeechLang     string `yaml:"speech_lang"`
	SpeechLangDesc string `yaml:"speech_lang_desc"`
	Output         string `yaml:"output"`
	OutputDesc     string `yaml:"output_desc"`
	Confirm        string `yaml:"confirm"`
	ConfirmDesc    string `yaml:"confirm_desc"`
	Recommended    string `yaml:"recommended"`
	NeedsKey       string `yaml:"needs_key"`
	YesSave        string `yaml:"yes_save"`
	NoCancel       string `yaml:"no_cancel"`
}

type ConfigReviewTranslations struct {
	Language   string `yaml:"language"`
	Provider   string `yaml:"provider"`
	SpeechLang string `yaml:"speech_lang"`
	Output     string `yaml:"output"`
}

type HelpTranslations struct {
	Back    string `yaml:"back"`
	Next    string `yaml:"next"`
	Select  string `yaml:"select"`
	Confirm string `yaml:"confirm"`
	Quit    string `yaml:"quit"`
}

var (
	translationsCache = make(map[string]*Translations)
	cacheMutex        sync.RWMutex
	defaultLang       = "en"
)

// SupportedLanguages returns all available language codes
var SupportedLanguages = []struct {
	Code string
	Name string
}{
	{"en", "English"},
	{"zh", "中文"},
}

// GetTranslations returns translations for the specified language
func GetTranslations(lang string) *Translations {
	cacheMutex.RLock()
	if t, ok := translationsCache[lang]; ok {
		cacheMutex.RUnlock()
		return t
	}
	cacheMutex.RUnlock()

	t, err := loadTranslations(lang)
	if err != nil {
		if lang != defaultLang {
			return GetTranslations(defaultLang)
		}
		return &Translations{}
	}

	cacheMutex.Lock()
	translationsCache[lang] = t
	cacheMutex.Unlock()

	return t
}

func loadTranslations(lang string) (*Translations, error) {
	filename := fmt.Sprintf("locales/%s.yml", lang)
	data, err := localesFS.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var t Translations
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// T is a convenience function for getting translations
func T(lang string) *Translations {
	return GetTranslations(lang)
}
