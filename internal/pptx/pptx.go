// Package pptx fills PPTX cue-card templates by shape name. It works on the
// document as what it is on disk: a zip of XML parts, edited in place.
package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
)

const (
	slideContentType = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	slideRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	imageRelType     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

	presentationPart     = "ppt/presentation.xml"
	presentationRelsPart = "ppt/_rels/presentation.xml.rels"
	contentTypesPart     = "[Content_Types].xml"
)

var (
	slidePartPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	shapeNamePattern = regexp.MustCompile(`<p:cNvPr[^>]*\sname="([^"]*)"`)
)

// Template is an immutable, loaded slide deck. Each run instantiates fresh
// Decks from it so no state leaks between items.
type Template struct {
	parts map[string][]byte
}

// Load reads a PPTX template from memory. The first slide is the one the
// merge step fills and clones, so it must exist.
func Load(data []byte) (*Template, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}

	parts := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open template part %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read template part %s: %w", f.Name, err)
		}
		parts[f.Name] = content
	}

	if _, ok := parts["ppt/slides/slide1.xml"]; !ok {
		return nil, fmt.Errorf("template has no slides")
	}
	return &Template{parts: parts}, nil
}

// ShapeNames lists the named shapes on the template slide, the contract the
// template author and the merge step agree on.
func (t *Template) ShapeNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range shapeNamePattern.FindAllStringSubmatch(string(t.parts["ppt/slides/slide1.xml"]), -1) {
		if m[1] != "" && !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}

// slideParts returns the slide part names of a part map in slide order.
func slideParts(parts map[string][]byte) []string {
	var slides []string
	for name := range parts {
		if slidePartPattern.MatchString(name) {
			slides = append(slides, name)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i]) < slideNumber(slides[j])
	})
	return slides
}

func slideNumber(part string) int {
	m := slidePartPattern.FindStringSubmatch(part)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
