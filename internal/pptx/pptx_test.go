package pptx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSlideHeader = `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>`
	testSlideFooter = `</p:spTree></p:cSld></p:sld>`
)

func textShape(id, name, text string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="` + id + `" name="` + name + `"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr><a:xfrm><a:off x="10" y="20"/><a:ext cx="30" cy="40"/></a:xfrm></p:spPr>` +
		`<p:txBody><a:bodyPr/><a:p><a:pPr algn="l"/><a:r><a:rPr lang="zh-CN" b="1"/><a:t>` + text + `</a:t></a:r>` +
		`<a:r><a:rPr lang="zh-CN"/><a:t>second run</a:t></a:r></a:p>` +
		`<a:p><a:r><a:t>second para</a:t></a:r></a:p></p:txBody></p:sp>`
}

func boxShape(id, name string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="` + id + `" name="` + name + `"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>` +
		`<p:spPr><a:xfrm><a:off x="100" y="100"/><a:ext cx="200" cy="200"/></a:xfrm></p:spPr></p:sp>`
}

// buildTestTemplate assembles a minimal single-slide PPTX in memory.
func buildTestTemplate(t *testing.T) []byte {
	t.Helper()

	slide := testSlideHeader +
		textShape("2", "product_name", "NAME") +
		textShape("3", "product_sku", "SKU") +
		textShape("4", "price_live", "PRICE") +
		boxShape("5", "product_image") +
		`<p:grpSp><p:nvGrpSpPr><p:cNvPr id="6" name="points_group"/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		textShape("7", "selling_point_1", "P1") +
		textShape("8", "selling_point_2", "P2") +
		`</p:grpSp>` +
		textShape("9", "selling_point_3", "P3") +
		textShape("10", "selling_point_4", "P4") +
		testSlideFooter

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>` +
			`<Override PartName="/ppt/slides/slide1.xml" ContentType="` + slideContentType + `"/>` +
			`</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>` +
			`</Relationships>`,
		"ppt/presentation.xml": `<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
			`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
			`<p:sldIdLst><p:sldId id="256" r:id="rId2"/></p:sldIdLst></p:presentation>`,
		"ppt/_rels/presentation.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId2" Type="` + slideRelType + `" Target="slides/slide1.xml"/>` +
			`</Relationships>`,
		"ppt/slides/slide1.xml": slide,
		"ppt/slides/_rels/slide1.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func slideXML(t *testing.T, deck *Deck, slide int) string {
	t.Helper()
	require.Less(t, slide, len(deck.slides))
	return string(deck.parts[deck.slides[slide]])
}

func TestLoadRejectsSlidelessFile(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	f.Write([]byte("<Types/>"))
	require.NoError(t, w.Close())

	_, err = Load(buf.Bytes())
	require.Error(t, err)
}

func TestShapeNames(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)

	names := tpl.ShapeNames()
	assert.Contains(t, names, "product_name")
	assert.Contains(t, names, "product_image")
	assert.Contains(t, names, "selling_point_1")
	assert.Contains(t, names, "selling_point_4")
}

func TestSetTextOverwritesWholesale(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)

	require.True(t, deck.SetText(0, "product_name", "Fancy <Kettle> & Co"))

	xml := slideXML(t, deck, 0)
	assert.Contains(t, xml, "<a:t>Fancy &lt;Kettle&gt; &amp; Co</a:t>")
	assert.NotContains(t, xml, "<a:t>NAME</a:t>")
	// formatting of the first run survives, extra runs and paragraphs go
	assert.Contains(t, xml, `<a:rPr lang="zh-CN" b="1"/>`)
	assert.NotContains(t, strings.Split(xml, "product_sku")[0], "second run")
	assert.NotContains(t, strings.Split(xml, "product_sku")[0], "second para")
}

func TestSetTextInsideGroup(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)

	require.True(t, deck.SetText(0, "selling_point_1", "point one"))
	assert.Contains(t, slideXML(t, deck, 0), "<a:t>point one</a:t>")
}

func TestSetTextAbsentNameIsNoOp(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)

	before := slideXML(t, deck, 0)
	assert.False(t, deck.SetText(0, "no_such_shape", "x"))
	assert.Equal(t, before, slideXML(t, deck, 0))
}

func TestCloneSlidePreservesShapeNames(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)

	idx, err := deck.CloneSlide()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, deck.SlideCount())

	clone := slideXML(t, deck, 1)
	assert.Contains(t, clone, `name="product_name"`)
	assert.Contains(t, clone, `name="selling_point_4"`)

	// registered everywhere the format requires
	assert.Contains(t, string(deck.parts[contentTypesPart]), `PartName="/ppt/slides/slide2.xml"`)
	assert.Contains(t, string(deck.parts[presentationRelsPart]), `Target="slides/slide2.xml"`)
	assert.Contains(t, string(deck.parts[presentationPart]), `<p:sldId id="257"`)

	// clones bind independently
	require.True(t, deck.SetText(1, "product_name", "second product"))
	assert.NotContains(t, slideXML(t, deck, 0), "second product")
}

func TestReplaceImageKeepsBoundingBox(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)

	img := []byte("\xFF\xD8\xFFfake-jpeg-bytes")
	require.True(t, deck.ReplaceImage(0, "product_image", img))

	xml := slideXML(t, deck, 0)
	// one pic at the placeholder's exact box, placeholder itself gone
	assert.Contains(t, xml, `<p:pic>`)
	assert.Contains(t, xml, `<a:off x="100" y="100"/><a:ext cx="200" cy="200"/>`)
	assert.Equal(t, 1, strings.Count(xml, `name="product_image"`))
	assert.NotContains(t, xml, `<p:sp><p:nvSpPr><p:cNvPr id="5" name="product_image"/>`)

	assert.Equal(t, img, deck.parts["ppt/media/image1.jpeg"])
	assert.Contains(t, string(deck.parts["ppt/slides/_rels/slide1.xml.rels"]), `Target="../media/image1.jpeg"`)
	assert.Contains(t, string(deck.parts[contentTypesPart]), `Extension="jpeg"`)
}

func TestReplaceImageSniffsPNG(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)

	require.True(t, deck.ReplaceImage(0, "product_image", []byte("\x89PNG\r\n\x1a\nfake")))
	assert.Contains(t, string(deck.parts[contentTypesPart]), `ContentType="image/png"`)
	_, ok := deck.parts["ppt/media/image1.png"]
	assert.True(t, ok)
}

func TestReplaceImageWithoutBytesIsNoOp(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)

	assert.False(t, deck.ReplaceImage(0, "product_image", nil))
	assert.Contains(t, slideXML(t, deck, 0), `name="product_image"`)
}

func TestRemoveShape(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)

	require.True(t, deck.RemoveShape(0, "product_image"))
	assert.NotContains(t, slideXML(t, deck, 0), `name="product_image"`)
}

func TestSaveIsDeterministic(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)

	build := func() []byte {
		deck := NewDeck(tpl)
		deck.SetText(0, "product_name", "same product")
		deck.ReplaceImage(0, "product_image", []byte("\xFF\xD8\xFFsame-image"))
		out, err := deck.Save()
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, build(), build())
}

func TestSaveRoundTrips(t *testing.T) {
	tpl, err := Load(buildTestTemplate(t))
	require.NoError(t, err)
	deck := NewDeck(tpl)
	deck.SetText(0, "product_name", "round trip")
	out, err := deck.Save()
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	var slide string
	for _, f := range r.File {
		if f.Name == "ppt/slides/slide1.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			slide = string(data)
		}
	}
	assert.Contains(t, slide, "<a:t>round trip</a:t>")
}
