package i18n

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/warden/resources"
)

const translationsPath = "i18n/translations.yml"

var state = struct {
	once         sync.Once
	translations map[string]map[string]string
}{}

// load reads the key -> locale -> text dictionary once.
func load() {
	state.translations = make(map[string]map[string]string)

	content, err := resources.FS.ReadFile(translationsPath)
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	dict := map[string]map[string]string{}
	if err := yaml.Unmarshal(content, &dict); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
		return
	}
	state.translations = dict
}

// Get returns the translation of key for lang. English and unknown keys return the key itself.
func Get(key, lang string) string {
	lang = strings.ToUpper(strings.TrimSpace(lang))
	if lang == "" || lang == "EN" {
		return key
	}
	state.once.Do(load)

	if res, ok := state.translations[key][lang]; ok && res != "" {
		return res
	}
	log.Tracef(`no translation for key "%s" (%s)`, key, lang)
	return key
}
