package modarchive

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zip"
)

// writeArchive creates a zip archive at dir/name with the given entries in
// slice order.
func writeArchive(t *testing.T, dir, name string, entries ...[2]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		fw, err := w.Create(e[0])
		if err != nil {
			t.Fatalf("Create(%s): %v", e[0], err)
		}
		if _, err := fw.Write([]byte(e[1])); err != nil {
			t.Fatalf("Write(%s): %v", e[0], err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func readEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	out := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Open(%s): %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		out[f.Name] = string(data)
	}
	return out
}

func TestScanClassifiesArchives(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "a-missing.jar",
		[2]string{"assets/mod/lang/en_us.json", `{"item.sword": "Sword"}`})
	writeArchive(t, dir, "b-translated.jar",
		[2]string{"assets/mod/lang/en_us.json", `{}`},
		[2]string{"assets/mod/lang/ru_ru.json", `{}`})
	writeArchive(t, dir, "c-nolang.jar",
		[2]string{"META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"},
		[2]string{"assets/mod/textures/sword.png", "png"})
	writeArchive(t, dir, "d-upper.JAR",
		[2]string{"assets/other/lang/RU_RU.json", `{}`})
	if err := os.WriteFile(filepath.Join(dir, "e-corrupt.jar"), []byte("not a zip"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	archives, errs := Collect(Scan(dir, Options{TargetLocale: "ru_ru"}))
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want exactly one", errs)
	}
	var re *ArchiveReadError
	if !errors.As(errs[0], &re) || re.Name != "e-corrupt.jar" {
		t.Fatalf("error = %v, want *ArchiveReadError for e-corrupt.jar", errs[0])
	}

	got := make(map[string]*Archive)
	for _, a := range archives {
		got[a.Name] = a
	}
	if len(got) != 4 {
		t.Fatalf("scanned %d archives, want 4: %v", len(got), got)
	}

	if a := got["a-missing.jar"]; !a.HasLocaleFolder || a.HasTargetLocale || !a.MissingTarget() {
		t.Fatalf("a-missing.jar = %+v", a)
	}
	if a := got["b-translated.jar"]; !reflect.DeepEqual(a.Locales, []string{"en_us", "ru_ru"}) || a.MissingTarget() {
		t.Fatalf("b-translated.jar = %+v", a)
	}
	if a := got["c-nolang.jar"]; a.HasLocaleFolder || a.MissingTarget() {
		t.Fatalf("c-nolang.jar = %+v", a)
	}
	if a := got["d-upper.JAR"]; !a.HasTargetLocale {
		t.Fatalf("d-upper.JAR target locale should match case-insensitively: %+v", a)
	}
}

func TestMissingTargetExcludesNonLocalizable(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "nolang.jar", [2]string{"assets/mod/lang_extra/en_us.json", `{}`})
	writeArchive(t, dir, "dironly.jar", [2]string{"assets/mod/lang/", ""})
	writeArchive(t, dir, "missing.jar",
		[2]string{"assets/mod/lang/en_us.json", `{}`},
		[2]string{"assets/mod/lang/de_de.json", `{}`})

	var names []string
	for a := range MissingTarget(Scan(dir, Options{TargetLocale: "ru_ru"})) {
		names = append(names, a.Name)
	}
	want := []string{"dironly.jar", "missing.jar"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("MissingTarget = %v, want %v", names, want)
	}
}

func TestScanIsRestartable(t *testing.T) {
	dir := t.TempDir()
	writeArchive(t, dir, "one.jar", [2]string{"assets/mod/lang/en_us.json", `{}`})

	seq := Scan(dir, Options{TargetLocale: "ru_ru"})
	first, _ := Collect(seq)

	writeArchive(t, dir, "two.jar", [2]string{"assets/mod/lang/en_us.json", `{}`})
	second, _ := Collect(seq)

	if len(first) != 1 || len(second) != 2 {
		t.Fatalf("first=%d second=%d, want 1 and 2", len(first), len(second))
	}
}

func TestScanMissingDirectory(t *testing.T) {
	_, errs := Collect(Scan(filepath.Join(t.TempDir(), "nope"), Options{}))
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want one directory error", errs)
	}
}

func TestReadBaseResource(t *testing.T) {
	dir := t.TempDir()
	path := writeArchive(t, dir, "mod.jar",
		[2]string{"assets/mod/lang/de_de.json", `{"item.sword": "Schwert"}`},
		[2]string{"assets/mod/lang/en_us.json", `{"item.sword": "Sword", "a.lang.code": "en_us"}`},
		[2]string{"assets/extra/lang/en_us.json", `{"other": "Other"}`})

	res, err := ReadBaseResource(path, "en_us")
	if err != nil {
		t.Fatalf("ReadBaseResource: %v", err)
	}
	if res.Entry != "assets/mod/lang/en_us.json" {
		t.Fatalf("Entry = %q, want first match by listing order", res.Entry)
	}
	if res.Candidates != 2 {
		t.Fatalf("Candidates = %d, want 2", res.Candidates)
	}
	if got := res.File.Keys(); !reflect.DeepEqual(got, []string{"item.sword", "a.lang.code"}) {
		t.Fatalf("Keys() = %v", got)
	}
	if got := TargetEntryPath(res.Entry, "ru_ru"); got != "assets/mod/lang/ru_ru.json" {
		t.Fatalf("TargetEntryPath = %q", got)
	}
}

func TestReadBaseResourceErrors(t *testing.T) {
	dir := t.TempDir()

	missing := writeArchive(t, dir, "missing.jar", [2]string{"assets/mod/lang/de_de.json", `{}`})
	_, err := ReadBaseResource(missing, "en_us")
	var mbe *MissingBaseResourceError
	if !errors.As(err, &mbe) {
		t.Fatalf("error = %v, want *MissingBaseResourceError", err)
	}

	bad := writeArchive(t, dir, "bad.jar", [2]string{"assets/mod/lang/en_us.json", `{"a": 1}`})
	_, err = ReadBaseResource(bad, "en_us")
	var mre *MalformedResourceError
	if !errors.As(err, &mre) || mre.Entry != "assets/mod/lang/en_us.json" {
		t.Fatalf("error = %v, want *MalformedResourceError", err)
	}

	corrupt := filepath.Join(dir, "corrupt.jar")
	if err := os.WriteFile(corrupt, []byte("PK garbage"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err = ReadBaseResource(corrupt, "en_us")
	var are *ArchiveReadError
	if !errors.As(err, &are) {
		t.Fatalf("error = %v, want *ArchiveReadError", err)
	}
}

func TestWriteEntryAddsAndReplaces(t *testing.T) {
	dir := t.TempDir()
	path := writeArchive(t, dir, "mod.jar",
		[2]string{"META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"},
		[2]string{"assets/mod/lang/en_us.json", `{"a": "A"}`})

	if err := WriteEntry(path, "assets/mod/lang/ru_ru.json", []byte(`{"a": "А"}`)); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	got := readEntries(t, path)
	want := map[string]string{
		"META-INF/MANIFEST.MF":       "Manifest-Version: 1.0\n",
		"assets/mod/lang/en_us.json": `{"a": "A"}`,
		"assets/mod/lang/ru_ru.json": `{"a": "А"}`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}

	if err := WriteEntry(path, "assets/mod/lang/ru_ru.json", []byte(`{"a": "Б"}`)); err != nil {
		t.Fatalf("second WriteEntry: %v", err)
	}
	got = readEntries(t, path)
	if len(got) != 3 || got["assets/mod/lang/ru_ru.json"] != `{"a": "Б"}` {
		t.Fatalf("entries after replace = %v", got)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestWriteEntryFailureLeavesArchiveUntouched(t *testing.T) {
	dir := t.TempDir()
	path := writeArchive(t, dir, "mod.jar", [2]string{"assets/mod/lang/en_us.json", `{"a": "A"}`})
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	old := rename
	rename = func(string, string) error { return errors.New("disk full") }
	t.Cleanup(func() { rename = old })

	err = WriteEntry(path, "assets/mod/lang/ru_ru.json", []byte(`{}`))
	var awe *ArchiveWriteError
	if !errors.As(err, &awe) || awe.Name != "mod.jar" {
		t.Fatalf("error = %v, want *ArchiveWriteError", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("archive bytes changed after failed write")
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestWriteEntryCorruptArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jar")
	if err := os.WriteFile(path, []byte("broken"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	err := WriteEntry(path, "assets/mod/lang/ru_ru.json", []byte(`{}`))
	var awe *ArchiveWriteError
	if !errors.As(err, &awe) {
		t.Fatalf("error = %v, want *ArchiveWriteError", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "broken" {
		t.Fatalf("corrupt archive was modified: %q", data)
	}
}
