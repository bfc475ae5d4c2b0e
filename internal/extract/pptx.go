package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
)

// PPTX extracts slide text from a PowerPoint file. Slides are emitted in
// numeric order with a header line per slide; notes slides are appended after
// their deck. Returns an error only when the archive itself is unreadable.
func PPTX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("not a valid pptx archive: %w", err)
	}

	slides := make(map[string][]byte)
	notes := make(map[string][]byte)
	for _, file := range reader.File {
		switch {
		case strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml"):
			if content, err := readZipFile(file); err == nil {
				slides[file.Name] = content
			}
		case strings.HasPrefix(file.Name, "ppt/notesSlides/notesSlide") && strings.HasSuffix(file.Name, ".xml"):
			if content, err := readZipFile(file); err == nil {
				notes[file.Name] = content
			}
		}
	}

	if len(slides) == 0 {
		return "", fmt.Errorf("pptx contains no slides")
	}

	slideNames := sortedKeys(slides)
	noteNames := sortedKeys(notes)

	var sb strings.Builder
	for i, name := range slideNames {
		text := extractRuns(slides[name])
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "--- SLIDE %d ---\n%s\n\n", i+1, text)
	}
	for i, name := range noteNames {
		text := extractRuns(notes[name])
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "--- NOTES %d ---\n%s\n\n", i+1, text)
	}

	return strings.TrimSpace(sb.String()), nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// extractRuns walks the slide XML and collects every <a:t> run in document
// order, one paragraph per line.
func extractRuns(content []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var lines []string
	var current strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				var run string
				if err := decoder.DecodeElement(&run, &t); err == nil {
					current.WriteString(run)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// sortedKeys orders slide file names numerically (slide2 before slide10).
func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, nj := slideNumber(keys[i]), slideNumber(keys[j])
		if ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func slideNumber(name string) int {
	digits := ""
	for _, r := range name {
		if r >= '0' && r <= '9' {
			digits += string(r)
		}
	}
	n := 0
	for _, r := range digits {
		n = n*10 + int(r-'0')
	}
	return n
}
