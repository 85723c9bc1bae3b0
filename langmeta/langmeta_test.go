package langmeta

import "testing"

func TestResolveNormalizationAndFallback(t *testing.T) {
	if m := Resolve("ru-RU"); m.English != "Russian" {
		t.Fatalf("Resolve(ru-RU) = %#v, want Russian", m)
	}
	if m := Resolve(" PT_BR "); m.English != "Brazilian Portuguese" {
		t.Fatalf("Resolve(PT_BR) = %#v", m)
	}

	unknown := Resolve("zz_zz")
	if unknown.Name != "zz_zz" || unknown.English != "zz_zz" {
		t.Fatalf("unexpected unknown metadata fallback: %#v", unknown)
	}
}

func TestISO(t *testing.T) {
	tests := map[string]string{
		"en_us": "en",
		"ru_ru": "ru",
		"pt_br": "pt",
		"zh_cn": "zh-CN",
		"zh_tw": "zh-TW",
		"de":    "de",
	}
	for in, want := range tests {
		if got := ISO(in); got != want {
			t.Errorf("ISO(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	if got := Canonicalize("En-US"); got != "en_us" {
		t.Fatalf("Canonicalize(En-US) = %q", got)
	}
}

func TestISOUnknownRegionFallsBackToLanguage(t *testing.T) {
	if got := ISO("sr_sp"); got != "sr" {
		t.Fatalf("ISO(sr_sp) = %q, want sr", got)
	}
}
