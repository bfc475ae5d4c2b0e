package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func slideXML(lines ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody>`)
	for _, line := range lines {
		sb.WriteString(`<a:p><a:r><a:t>`)
		sb.WriteString(line)
		sb.WriteString(`</a:t></a:r></a:p>`)
	}
	sb.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
	return sb.String()
}

func buildPPTX(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip entry: %v", err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestPPTX_ExtractsSlidesInOrder(t *testing.T) {
	data := buildPPTX(t, map[string]string{
		"ppt/slides/slide1.xml":  slideXML("Title One", "Point A"),
		"ppt/slides/slide2.xml":  slideXML("Title Two"),
		"ppt/slides/slide10.xml": slideXML("Title Ten"),
		"ppt/media/image1.png":   "binary",
	})

	text, err := PPTX(data)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	if !strings.Contains(text, "--- SLIDE 1 ---\nTitle One\nPoint A") {
		t.Errorf("slide 1 missing or malformed:\n%s", text)
	}
	pos1 := strings.Index(text, "Title One")
	pos2 := strings.Index(text, "Title Two")
	pos10 := strings.Index(text, "Title Ten")
	if pos1 < 0 || pos2 < 0 || pos10 < 0 {
		t.Fatalf("missing slide text:\n%s", text)
	}
	// slide10 must sort after slide2, not between slide1 and slide2
	if !(pos1 < pos2 && pos2 < pos10) {
		t.Errorf("slides out of order:\n%s", text)
	}
}

func TestPPTX_IncludesNotes(t *testing.T) {
	data := buildPPTX(t, map[string]string{
		"ppt/slides/slide1.xml":           slideXML("Slide body"),
		"ppt/notesSlides/notesSlide1.xml": slideXML("Speaker notes here"),
	})

	text, err := PPTX(data)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if !strings.Contains(text, "--- NOTES 1 ---\nSpeaker notes here") {
		t.Errorf("notes missing:\n%s", text)
	}
	// Notes come after all slides.
	if strings.Index(text, "Slide body") > strings.Index(text, "Speaker notes") {
		t.Errorf("notes appear before slides:\n%s", text)
	}
}

func TestPPTX_SkipsEmptySlides(t *testing.T) {
	data := buildPPTX(t, map[string]string{
		"ppt/slides/slide1.xml": slideXML("Has content"),
		"ppt/slides/slide2.xml": slideXML(),
	})

	text, err := PPTX(data)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if strings.Contains(text, "SLIDE 2") {
		t.Errorf("empty slide should be skipped:\n%s", text)
	}
}

func TestPPTX_NotAZip(t *testing.T) {
	if _, err := PPTX([]byte("definitely not a zip file")); err == nil {
		t.Fatal("expected error for invalid archive")
	}
}

func TestPPTX_NoSlides(t *testing.T) {
	data := buildPPTX(t, map[string]string{
		"docProps/core.xml": "<x/>",
	})
	if _, err := PPTX(data); err == nil {
		t.Fatal("expected error for archive without slides")
	}
}
