package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// The Override element may list PartName and ContentType in either order.
var (
	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// extractDOCX returns the document body with one line per paragraph.
// Standard packages are opened with the docx library; packages it rejects (no
// relationships part, or a main part other than word/document.xml) are read directly
// using [Content_Types].xml to locate the main part.
func extractDOCX(content []byte) (string, error) {
	body, err := readDocxBody(content)
	if err != nil {
		return "", err
	}
	return paragraphText(strings.NewReader(body))
}

func readDocxBody(content []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err == nil {
		defer r.Close()
		return r.Editable().GetContent(), nil
	}
	zr, zipErr := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if zipErr != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", zipErr)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("extract DOCX: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("extract DOCX: %s not found", docPath)
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return ""
		}
		s := string(data)
		if m := partNameRe.FindStringSubmatch(s); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
		if m := partNameRe2.FindStringSubmatch(s); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
		return ""
	}
	return ""
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// paragraphText walks WordprocessingML and writes each w:p as one line. Run text
// (w:t) is concatenated, w:tab becomes a tab and w:br/w:cr a line break.
func paragraphText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    strings.Builder
		para   strings.Builder
		inText bool
		depth  int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract DOCX: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
				if depth == 1 {
					para.Reset()
				}
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth == 1 {
					out.WriteString(para.String())
					out.WriteByte('\n')
				}
				if depth > 0 {
					depth--
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return out.String(), nil
}
