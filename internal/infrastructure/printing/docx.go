package printing

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Well-known part names of a WordprocessingML package
const (
	partContentTypes = "[Content_Types].xml"
	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"

	relTypeImage = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
)

// docxPackage is an in-memory DOCX (OPC zip) package. Part order is kept
// so the rewritten archive lists parts the way the template did.
type docxPackage struct {
	names []string
	parts map[string][]byte
}

// readPackage unpacks a DOCX archive
func readPackage(data []byte) (*docxPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}

	pkg := &docxPackage{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		pkg.setPart(f.Name, content)
	}

	if _, ok := pkg.parts[partDocument]; !ok {
		return nil, fmt.Errorf("docx archive has no %s", partDocument)
	}
	return pkg, nil
}

func (p *docxPackage) part(name string) ([]byte, bool) {
	data, ok := p.parts[name]
	return data, ok
}

func (p *docxPackage) setPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.names = append(p.names, name)
	}
	p.parts[name] = data
}

// xmlPart parses a part as XML
func (p *docxPackage) xmlPart(name string) (*etree.Document, error) {
	data, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("docx archive has no %s", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

func (p *docxPackage) setXMLPart(name string, doc *etree.Document) error {
	data, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize %s: %w", name, err)
	}
	p.setPart(name, data)
	return nil
}

// addImage stores a PNG under word/media, registers the relationship from
// the main document and makes sure the package declares the png content
// type. It returns the relationship id to reference from a:blip.
func (p *docxPackage) addImage(png []byte) (string, error) {
	n := 1
	for {
		if _, taken := p.parts[fmt.Sprintf("word/media/image%d.png", n)]; !taken {
			break
		}
		n++
	}
	mediaName := fmt.Sprintf("word/media/image%d.png", n)

	rels, err := p.xmlPart(partDocumentRels)
	if err != nil {
		return "", err
	}
	root := rels.Root()
	if root == nil {
		return "", fmt.Errorf("%s has no root element", partDocumentRels)
	}

	maxID := 0
	for _, rel := range root.SelectElements("Relationship") {
		id := strings.TrimPrefix(rel.SelectAttrValue("Id", ""), "rId")
		if v, err := strconv.Atoi(id); err == nil && v > maxID {
			maxID = v
		}
	}
	relID := "rId" + strconv.Itoa(maxID+1)

	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", relID)
	rel.CreateAttr("Type", relTypeImage)
	rel.CreateAttr("Target", path.Join("media", path.Base(mediaName)))
	if err := p.setXMLPart(partDocumentRels, rels); err != nil {
		return "", err
	}

	if err := p.ensureDefaultContentType("png", "image/png"); err != nil {
		return "", err
	}

	p.setPart(mediaName, png)
	return relID, nil
}

func (p *docxPackage) ensureDefaultContentType(ext, contentType string) error {
	types, err := p.xmlPart(partContentTypes)
	if err != nil {
		return err
	}
	root := types.Root()
	if root == nil {
		return fmt.Errorf("%s has no root element", partContentTypes)
	}
	for _, def := range root.SelectElements("Default") {
		if strings.EqualFold(def.SelectAttrValue("Extension", ""), ext) {
			return nil
		}
	}

	def := etree.NewElement("Default")
	def.CreateAttr("Extension", ext)
	def.CreateAttr("ContentType", contentType)
	root.InsertChildAt(0, def)
	return p.setXMLPart(partContentTypes, types)
}

// zipBytes writes the package back into a zip archive. The content types
// part goes first as OPC consumers expect.
func (p *docxPackage) zipBytes() ([]byte, error) {
	names := slices.Clone(p.names)
	sort.SliceStable(names, func(i, j int) bool {
		return names[i] == partContentTypes && names[j] != partContentTypes
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
		if _, err := w.Write(p.parts[name]); err != nil {
			return nil, fmt.Errorf("write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish docx archive: %w", err)
	}
	return buf.Bytes(), nil
}
