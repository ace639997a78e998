package snapshot

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The supported-languages field arrives as an HTML fragment such as
// "English<strong>*</strong>, Japanese<br><strong>*</strong>languages with
// full audio support". Normalization strips the markup, splits on the
// separator characters and drops the boilerplate tokens.

// langSeparators is the fixed separator set of the language fragment.
const langSeparators = ",;/\n"

// boilerplateTokens are fragments of the language field that describe audio
// support rather than a language.
var boilerplateTokens = map[string]struct{}{
	"full audio":                        {},
	"subtitles":                         {},
	"interface":                         {},
	"languages with full audio support": {},
	"interface and subtitles":           {},
}

// langAliases folds the storefront's known spelling variants onto canonical
// language codes.
var langAliases = map[string]string{
	"simplified chinese":      "schinese",
	"traditional chinese":     "tchinese",
	"spanish - spain":         "spanish",
	"spanish - latin america": "latam_spanish",
	"portuguese - brazil":     "brazilian",
}

// ParseLanguages normalizes a supported-languages markup fragment into a
// sorted, duplicate-free set of lowercase language names. The result is
// order-insensitive with respect to the input.
func ParseLanguages(fragment string) []string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	text := stripMarkup(fragment)

	set := make(map[string]struct{})
	for _, part := range strings.FieldsFunc(text, isLangSeparator) {
		lang := strings.ToLower(strings.TrimSpace(part))
		lang = strings.Trim(lang, "*")
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		if _, skip := boilerplateTokens[lang]; skip {
			continue
		}
		if canonical, ok := langAliases[lang]; ok {
			lang = canonical
		}
		set[lang] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for lang := range set {
		out = append(out, lang)
	}
	sort.Strings(out)

	if len(out) == 0 {
		return nil
	}
	return out
}

// stripMarkup removes HTML tags from the fragment and decodes entities,
// turning <br> into a separator so adjacent languages do not concatenate.
func stripMarkup(fragment string) string {
	replaced := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n").Replace(fragment)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(replaced))
	if err != nil {
		return replaced
	}
	return doc.Text()
}

func isLangSeparator(r rune) bool {
	return strings.ContainsRune(langSeparators, r)
}
