package pictogram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/generate"
	"github.com/pictoforge/pictoforge/backend-go/internal/typeid"
)

// Generator draws a document from a text prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*document.Node, error)
}

// Result is a saved pictogram plus a notice when its content had to be
// replaced by a blank document.
type Result struct {
	*Pictogram
	Notice string `json:"notice,omitempty"`
}

type Service struct {
	store     Store
	generator Generator
}

func NewService(store Store, generator Generator) *Service {
	return &Service{store: store, generator: generator}
}

// Create stores a new pictogram. Empty markup yields a blank document;
// anything else must parse.
func (s *Service) Create(ctx context.Context, name, markup string) (*Pictogram, error) {
	root := document.Empty(0, 0)
	if strings.TrimSpace(markup) != "" {
		parsed, err := document.FromMarkup(markup)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMarkup, err)
		}
		root = parsed
	}
	return s.create(ctx, name, root)
}

func (s *Service) create(ctx context.Context, name string, root *document.Node) (*Pictogram, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled"
	}
	now := time.Now().UTC()
	p := &Pictogram{
		ID:        typeid.NewPictogramID(),
		Name:      name,
		Markup:    document.ToMarkup(root),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Pictogram, error) {
	if err := typeid.Validate(id, typeid.PrefixPictogram); err != nil {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Pictogram, error) {
	return s.store.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := typeid.Validate(id, typeid.PrefixPictogram); err != nil {
		return ErrNotFound
	}
	return s.store.Delete(ctx, id)
}

// SaveMarkup validates and normalises markup before replacing the stored
// copy.
func (s *Service) SaveMarkup(ctx context.Context, id, markup string) (*Pictogram, error) {
	root, err := document.FromMarkup(markup)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMarkup, err)
	}
	return s.SaveDocument(ctx, id, root)
}

// SaveDocument stores an in-memory tree.
func (s *Service) SaveDocument(ctx context.Context, id string, root *document.Node) (*Pictogram, error) {
	if err := typeid.Validate(id, typeid.PrefixPictogram); err != nil {
		return nil, ErrNotFound
	}
	return s.store.SaveMarkup(ctx, id, document.ToMarkup(root))
}

// LoadDocument returns the stored tree. Markup that no longer parses is
// replaced by a blank document and logged.
func (s *Service) LoadDocument(ctx context.Context, id string) (*document.Node, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	root, err := document.FromMarkupOrEmpty(p.Markup, 0, 0)
	if err != nil {
		slog.Warn("stored markup invalid, using empty document", "pictogram", id, "error", err)
	}
	return root, nil
}

// Import reads an uploaded svg file. Malformed content does not fail the
// request: a blank pictogram is created and the parse error is returned as
// the notice.
func (s *Service) Import(ctx context.Context, name string, r io.Reader) (*Result, error) {
	root, err := document.Decode(r)
	notice := ""
	if err != nil {
		if !errors.Is(err, document.ErrParse) {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		slog.Warn("import failed, using empty document", "error", err)
		root, notice = document.Empty(0, 0), err.Error()
	}
	p, err := s.create(ctx, name, root)
	if err != nil {
		return nil, err
	}
	return &Result{Pictogram: p, Notice: notice}, nil
}

// Generate asks the generator for a drawing and stores it. An unusable
// reply falls back to a blank document with a notice; generator failures
// are returned as is.
func (s *Service) Generate(ctx context.Context, name, prompt string) (*Result, error) {
	if s.generator == nil {
		return nil, generate.ErrUnavailable
	}
	root, err := s.generator.Generate(ctx, prompt)
	notice := ""
	if err != nil {
		var pe *document.ParseError
		if !errors.As(err, &pe) {
			return nil, err
		}
		slog.Warn("generated markup invalid, using empty document", "error", err)
		root, notice = document.Empty(0, 0), pe.Error()
	}
	if name == "" {
		name = prompt
	}
	p, err := s.create(ctx, name, root)
	if err != nil {
		return nil, err
	}
	return &Result{Pictogram: p, Notice: notice}, nil
}
