package library

import (
	"encoding/json"
	"fmt"
	"time"
)

type Kind string

const (
	KindFile Kind = "file"
	KindLink Kind = "link"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// Locator says where an item's raw material lives. Exactly one implementation
// exists per Kind, so a file item can never carry a URL and vice versa.
type Locator interface {
	Kind() Kind
	String() string
}

type FileLocator struct {
	Path     string
	Filename string
}

func (FileLocator) Kind() Kind       { return KindFile }
func (l FileLocator) String() string { return l.Path }

type LinkLocator struct {
	URL string
}

func (LinkLocator) Kind() Kind       { return KindLink }
func (l LinkLocator) String() string { return l.URL }

type Item struct {
	ID          string
	Title       string
	Locator     Locator
	Content     string
	Chunks      []string
	Embeddings  [][]float32
	CreatedAt   time.Time
	Status      Status
	ErrorDetail string
}

func (i Item) Kind() Kind {
	if i.Locator == nil {
		return ""
	}
	return i.Locator.Kind()
}

// Searchable reports whether the item takes part in similarity search.
func (i Item) Searchable() bool {
	return i.Status == StatusReady && i.Embeddings != nil
}

// Summary is the caller-facing view of an item. It has no embeddings field.
type Summary struct {
	ID          string    `json:"id"`
	Type        Kind      `json:"type"`
	Title       string    `json:"title"`
	Path        string    `json:"path,omitempty"`
	URL         string    `json:"url,omitempty"`
	Content     string    `json:"content"`
	Chunks      []string  `json:"chunks"`
	ChunkCount  int       `json:"chunkCount"`
	CreatedAt   time.Time `json:"timestamp"`
	Status      Status    `json:"status"`
	ErrorDetail string    `json:"error,omitempty"`
}

func (i Item) Summary() Summary {
	s := Summary{
		ID:          i.ID,
		Type:        i.Kind(),
		Title:       i.Title,
		Content:     i.Content,
		Chunks:      i.Chunks,
		ChunkCount:  len(i.Chunks),
		CreatedAt:   i.CreatedAt,
		Status:      i.Status,
		ErrorDetail: i.ErrorDetail,
	}
	if s.Chunks == nil {
		s.Chunks = []string{}
	}
	switch l := i.Locator.(type) {
	case FileLocator:
		s.Path = l.Path
	case LinkLocator:
		s.URL = l.URL
	}
	return s
}

// record is the persisted shape of an item, shared by every repository.
type record struct {
	ID         string      `json:"id"`
	Type       Kind        `json:"type"`
	Title      string      `json:"title"`
	Path       string      `json:"path,omitempty"`
	URL        string      `json:"url,omitempty"`
	Content    string      `json:"content"`
	Chunks     []string    `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Status     Status      `json:"status"`
	Error      string      `json:"error,omitempty"`
}

func (i Item) toRecord() record {
	r := record{
		ID:         i.ID,
		Type:       i.Kind(),
		Title:      i.Title,
		Content:    i.Content,
		Chunks:     i.Chunks,
		Embeddings: i.Embeddings,
		Timestamp:  i.CreatedAt,
		Status:     i.Status,
		Error:      i.ErrorDetail,
	}
	if r.Chunks == nil {
		r.Chunks = []string{}
	}
	switch l := i.Locator.(type) {
	case FileLocator:
		r.Path = l.Path
	case LinkLocator:
		r.URL = l.URL
	}
	return r
}

func (r record) toItem() (Item, error) {
	var loc Locator
	switch r.Type {
	case KindFile:
		if r.Path == "" || r.URL != "" {
			return Item{}, fmt.Errorf("%w: file item %q must have a path and no url", ErrInvalidRecord, r.ID)
		}
		// The original filename is kept as the title and is never rewritten.
		loc = FileLocator{Path: r.Path, Filename: r.Title}
	case KindLink:
		if r.URL == "" || r.Path != "" {
			return Item{}, fmt.Errorf("%w: link item %q must have a url and no path", ErrInvalidRecord, r.ID)
		}
		loc = LinkLocator{URL: r.URL}
	default:
		return Item{}, fmt.Errorf("%w: item %q has unknown type %q", ErrInvalidRecord, r.ID, r.Type)
	}

	if r.ID == "" {
		return Item{}, fmt.Errorf("%w: item without id", ErrInvalidRecord)
	}

	switch r.Status {
	case StatusProcessing, StatusReady, StatusError:
	default:
		return Item{}, fmt.Errorf("%w: item %q has unknown status %q", ErrInvalidRecord, r.ID, r.Status)
	}

	return Item{
		ID:          r.ID,
		Title:       r.Title,
		Locator:     loc,
		Content:     r.Content,
		Chunks:      r.Chunks,
		Embeddings:  r.Embeddings,
		CreatedAt:   r.Timestamp,
		Status:      r.Status,
		ErrorDetail: r.Error,
	}, nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.toRecord())
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	item, err := r.toItem()
	if err != nil {
		return err
	}
	*i = item
	return nil
}
