package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/siherrmann/triage/helper"
	"github.com/siherrmann/triage/model"
)

// ErrNoText is returned for sources without extractable text
var ErrNoText = errors.New("no text extracted")

// Metadata keys set by the loaders
const (
	MetadataRecordID    = "record_id"
	MetadataCollection  = "collection"
	MetadataContentType = "content_type"
)

// Load turns a source into documents. Files and URLs give one document,
// except CSV files which give one record document per row.
func (i *Ingestor) Load(ctx context.Context, source Source) ([]*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch source.Kind {
	case model.SourceKindFile:
		return loadFile(source)
	case model.SourceKindURL:
		if i.fetcher == nil {
			return nil, helper.NewError("load url", fmt.Errorf("no fetcher configured"))
		}
		page, err := i.fetcher.Fetch(ctx, source.URI)
		if err != nil {
			return nil, err
		}
		doc, err := pageDocument(page, source.Metadata)
		if err != nil {
			return nil, helper.NewError("load url", err)
		}
		return []*model.Document{doc}, nil
	case model.SourceKindRecord:
		return recordDocuments(source.URI, source.Records, source.Metadata), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", source.Kind)
	}
}

func loadFile(source Source) ([]*model.Document, error) {
	ext := strings.ToLower(filepath.Ext(source.URI))
	switch ext {
	case ".csv":
		f, err := os.Open(source.URI)
		if err != nil {
			return nil, helper.NewError("open csv", err)
		}
		defer f.Close()

		records, err := ReadCSV(f)
		if err != nil {
			return nil, helper.NewError("read csv", err)
		}
		return recordDocuments(source.URI, records, source.Metadata), nil
	case ".pdf":
		f, reader, err := pdf.Open(source.URI)
		if err != nil {
			return nil, helper.NewError("open pdf", err)
		}
		defer f.Close()

		text, err := pdfText(reader)
		if err != nil {
			return nil, helper.NewError("read pdf", err)
		}
		return fileDocument(source, text, "application/pdf")
	case ".html", ".htm":
		raw, err := os.ReadFile(source.URI)
		if err != nil {
			return nil, helper.NewError("read html", err)
		}
		md := source.Metadata.Copy()
		if title := HTMLTitle(string(raw)); title != "" {
			md[model.MetadataTitle] = title
		}
		return fileDocument(Source{Kind: source.Kind, URI: source.URI, Metadata: md}, HTMLToText(string(raw)), "text/html")
	case ".txt", ".md", ".markdown", "":
		doc, err := model.NewDocumentFromFile(source.URI, source.Metadata)
		if err != nil {
			return nil, helper.NewError("read file", err)
		}
		return withContentType(doc, "text/plain")
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

func fileDocument(source Source, text string, contentType string) ([]*model.Document, error) {
	return withContentType(model.NewFileDocument(source.URI, text, source.Metadata), contentType)
}

func withContentType(doc *model.Document, contentType string) ([]*model.Document, error) {
	if strings.TrimSpace(doc.RawText) == "" {
		return nil, ErrNoText
	}
	doc.Metadata[MetadataContentType] = contentType
	return []*model.Document{doc}, nil
}

// pageDocument extracts the text of a downloaded page
func pageDocument(page *Page, metadata model.Metadata) (*model.Document, error) {
	md := metadata.Copy()

	var text string
	switch page.ContentType {
	case "text/html", "application/xhtml+xml":
		raw := string(page.Body)
		text = HTMLToText(raw)
		if title := HTMLTitle(raw); title != "" {
			md[model.MetadataTitle] = title
		}
	case "application/pdf":
		reader, err := pdf.NewReader(bytes.NewReader(page.Body), int64(len(page.Body)))
		if err != nil {
			return nil, err
		}
		if text, err = pdfText(reader); err != nil {
			return nil, err
		}
	default:
		if !strings.HasPrefix(page.ContentType, "text/") {
			return nil, fmt.Errorf("unsupported content type %q", page.ContentType)
		}
		text = string(page.Body)
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}

	doc := model.NewDocument(model.SourceKindURL, page.URL, text, md)
	doc.Metadata[MetadataContentType] = page.ContentType
	if _, ok := doc.Metadata[model.MetadataTitle]; !ok {
		doc.Metadata[model.MetadataTitle] = page.URL
	}
	return doc, nil
}

func pdfText(reader *pdf.Reader) (string, error) {
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ReadCSV reads a CSV table with a header row. Rows are numbered from 1,
// the row number is the record id.
func ReadCSV(r io.Reader) ([]model.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records := []model.Record{}
	for row := 1; ; row++ {
		values, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		record := model.Record{ID: strconv.Itoa(row), Fields: make([]model.Field, len(header))}
		for i, name := range header {
			if i < len(values) {
				record.Fields[i] = model.Field{Name: name, Value: values[i]}
			} else {
				record.Fields[i] = model.Field{Name: name}
			}
		}
		records = append(records, record)
	}
}

// recordDocuments creates one document per record named <uri>#<record id>.
// Short record fields are also metadata so they can be filtered on.
func recordDocuments(uri string, records []model.Record, metadata model.Metadata) []*model.Document {
	docs := make([]*model.Document, 0, len(records))
	for i, r := range records {
		id := r.ID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}

		md := metadata.Copy()
		for k, v := range r.Metadata() {
			md[k] = v
		}
		md[MetadataRecordID] = id
		md[MetadataCollection] = uri

		docs = append(docs, model.NewDocument(model.SourceKindRecord, uri+"#"+id, r.Text(), md))
	}
	return docs
}
