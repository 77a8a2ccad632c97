package i18n

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when nothing better matches.
const DefaultLanguage = "en"

var tokenRegex = regexp.MustCompile(`\[\[([\w.-]+):([\w.-]+)((?:\s*,\s*[^,\]]*)*)\]\]`)

var (
	argEscaper   = strings.NewReplacer("&", "&amp;", ",", "&#44;", "[", "&#91;", "]", "&#93;", "%", "&#37;")
	argUnescaper = strings.NewReplacer("&#44;", ",", "&#91;", "[", "&#93;", "]", "&#37;", "%", "&amp;", "&")
)

// EscapeArg encodes a token argument so it may contain commas, brackets and
// percent signs. Translate decodes it before substitution.
func EscapeArg(arg string) string {
	return argEscaper.Replace(arg)
}

// Translator holds the loaded catalogs. It is safe for concurrent use.
type Translator struct {
	catalogs    map[string]map[string]string
	tags        []language.Tag
	langs       []string
	matcher     language.Matcher
	defaultLang string
	logger      *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithDefaultLanguage sets the fallback language.
func WithDefaultLanguage(lang string) Option {
	return func(t *Translator) {
		t.defaultLang = lang
	}
}

// WithLogger sets a logger for missing-key diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = l
	}
}

// New loads every *.yaml and *.yml file in the root of fsys.
func New(fsys fs.FS, opts ...Option) (*Translator, error) {
	t := &Translator{
		catalogs:    make(map[string]map[string]string),
		defaultLang: DefaultLanguage,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, errors.Join(ErrFailedToReadCatalog, err)
	}

	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		lang := strings.TrimSuffix(e.Name(), ext)
		_, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLanguageTag, lang)
		}

		raw, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, errors.Join(ErrFailedToReadCatalog, err)
		}
		catalog, err := parseCatalog(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}

		t.catalogs[lang] = catalog
		t.langs = append(t.langs, lang)
	}
	if len(t.catalogs) == 0 {
		return nil, ErrNoCatalogs
	}

	// The default language goes first so the matcher falls back to it.
	slices.SortFunc(t.langs, func(a, b string) int {
		switch {
		case a == t.defaultLang:
			return -1
		case b == t.defaultLang:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	for _, lang := range t.langs {
		t.tags = append(t.tags, language.MustParse(lang))
	}
	t.matcher = language.NewMatcher(t.tags)

	return t, nil
}

// Languages returns the loaded language codes, default first.
func (t *Translator) Languages() []string {
	return slices.Clone(t.langs)
}

// Match returns the best loaded language for an Accept-Language header.
func (t *Translator) Match(acceptLanguage string) string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return t.langs[0]
	}
	_, idx, conf := t.matcher.Match(prefs...)
	if conf == language.No {
		return t.langs[0]
	}
	return t.langs[idx]
}

// Lookup returns the raw message for "namespace:key" in lang, falling back to the default language.
func (t *Translator) Lookup(lang, key string) (string, bool) {
	if msg, ok := t.catalogs[lang][key]; ok {
		return msg, true
	}
	msg, ok := t.catalogs[t.defaultLang][key]
	return msg, ok
}

// Translate expands every token in text.
func (t *Translator) Translate(lang, text string) string {
	if !strings.Contains(text, "[[") {
		return text
	}
	return tokenRegex.ReplaceAllStringFunc(text, func(token string) string {
		m := tokenRegex.FindStringSubmatch(token)
		key := m[1] + ":" + m[2]

		msg, ok := t.Lookup(lang, key)
		if !ok {
			t.logger.Debug("missing translation", slog.String("lang", lang), slog.String("key", key))
			return token
		}

		args := strings.Split(strings.TrimPrefix(strings.TrimSpace(m[3]), ","), ",")
		pairs := make([]string, 0, 2*len(args))
		for i := len(args); i > 0; i-- {
			arg := strings.TrimSpace(args[i-1])
			if arg == "" {
				continue
			}
			pairs = append(pairs, "%"+strconv.Itoa(i), argUnescaper.Replace(arg))
		}
		if len(pairs) > 0 {
			msg = strings.NewReplacer(pairs...).Replace(msg)
		}
		return msg
	})
}

// parseCatalog flattens namespaces into "namespace:key" entries.
func parseCatalog(raw []byte) (map[string]string, error) {
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrFailedToParseYAML, err)
	}
	out := make(map[string]string)
	for ns, keys := range doc {
		for k, v := range keys {
			out[ns+":"+k] = v
		}
	}
	return out, nil
}
