// Package langmeta provides a shared language metadata registry keyed by
// game-style locale codes (en_us, ru_ru, pt_br) and maps those codes to the
// BCP 47 tags translation services expect.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
)

// Meta describes language display metadata.
type Meta struct {
	// Name is the native language name.
	Name string
	// English is the English language name, used in AI prompts.
	English string
}

// Registry contains canonical language metadata.
var Registry = map[string]Meta{
	"ar_sa": {Name: "العربية", English: "Arabic"},
	"be_by": {Name: "Беларуская", English: "Belarusian"},
	"bg_bg": {Name: "Български", English: "Bulgarian"},
	"cs_cz": {Name: "Čeština", English: "Czech"},
	"da_dk": {Name: "Dansk", English: "Danish"},
	"de_de": {Name: "Deutsch", English: "German"},
	"el_gr": {Name: "Ελληνικά", English: "Greek"},
	"en_gb": {Name: "English (UK)", English: "British English"},
	"en_us": {Name: "English (US)", English: "English"},
	"es_es": {Name: "Español (España)", English: "Spanish"},
	"es_mx": {Name: "Español (México)", English: "Mexican Spanish"},
	"fi_fi": {Name: "Suomi", English: "Finnish"},
	"fr_fr": {Name: "Français", English: "French"},
	"fr_ca": {Name: "Français (Canada)", English: "Canadian French"},
	"he_il": {Name: "עברית", English: "Hebrew"},
	"hu_hu": {Name: "Magyar", English: "Hungarian"},
	"it_it": {Name: "Italiano", English: "Italian"},
	"ja_jp": {Name: "日本語", English: "Japanese"},
	"kk_kz": {Name: "Қазақ тілі", English: "Kazakh"},
	"ko_kr": {Name: "한국어", English: "Korean"},
	"nl_nl": {Name: "Nederlands", English: "Dutch"},
	"no_no": {Name: "Norsk", English: "Norwegian"},
	"pl_pl": {Name: "Polski", English: "Polish"},
	"pt_br": {Name: "Português (Brasil)", English: "Brazilian Portuguese"},
	"pt_pt": {Name: "Português (Portugal)", English: "European Portuguese"},
	"ro_ro": {Name: "Română", English: "Romanian"},
	"ru_ru": {Name: "Русский", English: "Russian"},
	"sk_sk": {Name: "Slovenčina", English: "Slovak"},
	"sr_sp": {Name: "Српски", English: "Serbian"},
	"sv_se": {Name: "Svenska", English: "Swedish"},
	"th_th": {Name: "ไทย", English: "Thai"},
	"tr_tr": {Name: "Türkçe", English: "Turkish"},
	"tt_ru": {Name: "Татарча", English: "Tatar"},
	"uk_ua": {Name: "Українська", English: "Ukrainian"},
	"vi_vn": {Name: "Tiếng Việt", English: "Vietnamese"},
	"zh_cn": {Name: "简体中文", English: "Simplified Chinese"},
	"zh_tw": {Name: "繁體中文", English: "Traditional Chinese"},
}

// Canonicalize lower-cases a locale code and uses '_' as the separator:
// "ru-RU" -> "ru_ru".
func Canonicalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "-", "_"))
}

// Resolve returns best-effort language metadata for a locale code.
func Resolve(code string) Meta {
	if m, ok := Registry[Canonicalize(code)]; ok {
		return m
	}
	return Meta{Name: code, English: code}
}

// Tag parses a locale code into a language tag. "ru_ru" -> ru-RU.
func Tag(code string) (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// ISO returns the code translation services accept: the base language, with
// the script kept for Chinese ("zh_tw" -> "zh-TW", "zh_cn" -> "zh-CN").
// Codes with an unknown region ("sr_sp") fall back to their language part.
func ISO(code string) string {
	tag, err := Tag(code)
	if err != nil {
		lang, _, _ := strings.Cut(Canonicalize(code), "_")
		return lang
	}
	base, _ := tag.Base()
	if base.String() == "zh" {
		if region, conf := tag.Region(); conf != language.No {
			return "zh-" + region.String()
		}
	}
	return base.String()
}
