package library

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type PDFReader interface {
	ReadText(ctx context.Context, path string) (string, error)
}

type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoURL string) ([]string, error)
}

type Page struct {
	Title string
	Text  string
}

type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (Page, error)
}

// Extraction is the text derived from an item. An empty Title keeps the
// item's current title.
type Extraction struct {
	Title string
	Text  string
}

type Extractor struct {
	pdf        PDFReader
	transcript TranscriptFetcher
	pages      PageFetcher
}

func NewExtractor(pdf PDFReader, transcript TranscriptFetcher, pages PageFetcher) *Extractor {
	return &Extractor{pdf: pdf, transcript: transcript, pages: pages}
}

func (e *Extractor) Extract(ctx context.Context, item Item) (Extraction, error) {
	switch loc := item.Locator.(type) {
	case FileLocator:
		return e.extractFile(ctx, loc)
	case LinkLocator:
		return e.extractLink(ctx, loc)
	default:
		return Extraction{}, &ExtractionError{Locator: item.ID, Err: fmt.Errorf("%w: item has no locator", ErrInvalidInput)}
	}
}

func (e *Extractor) extractFile(ctx context.Context, loc FileLocator) (Extraction, error) {
	if strings.EqualFold(filepath.Ext(loc.Path), ".pdf") {
		if e.pdf == nil {
			return Extraction{}, &ExtractionError{Locator: loc.Path, Err: errors.New("pdf reader not configured")}
		}
		text, err := e.pdf.ReadText(ctx, loc.Path)
		if err != nil {
			return Extraction{}, &ExtractionError{Locator: loc.Path, Err: err}
		}
		return Extraction{Text: text}, nil
	}

	data, err := os.ReadFile(loc.Path)
	if err != nil {
		return Extraction{}, &ExtractionError{Locator: loc.Path, Err: err}
	}
	if !utf8.Valid(data) {
		return Extraction{}, &ExtractionError{Locator: loc.Path, Err: errors.New("file is not valid UTF-8 text")}
	}
	return Extraction{Text: string(data)}, nil
}

func (e *Extractor) extractLink(ctx context.Context, loc LinkLocator) (Extraction, error) {
	if IsVideoLink(loc.URL) {
		if e.transcript == nil {
			return Extraction{}, &ExtractionError{Locator: loc.URL, Err: errors.New("transcript fetcher not configured")}
		}
		segments, err := e.transcript.FetchTranscript(ctx, loc.URL)
		if err != nil {
			return Extraction{}, &ExtractionError{Locator: loc.URL, Err: err}
		}
		return Extraction{Title: "YouTube: " + loc.URL, Text: strings.Join(segments, " ")}, nil
	}

	u, err := url.Parse(loc.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || e.pages == nil {
		return Extraction{}, &ExtractionError{Locator: loc.URL, Err: ErrUnsupportedLink}
	}
	page, err := e.pages.FetchPage(ctx, loc.URL)
	if err != nil {
		return Extraction{}, &ExtractionError{Locator: loc.URL, Err: err}
	}
	return Extraction{Title: strings.TrimSpace(page.Title), Text: page.Text}, nil
}

// IsVideoLink reports whether a link is treated as a video with a transcript.
func IsVideoLink(link string) bool {
	return strings.Contains(link, "youtube.com") || strings.Contains(link, "youtu.be")
}
