package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
	"github.com/pictoforge/pictoforge/backend-go/internal/engine"
	"github.com/pictoforge/pictoforge/backend-go/internal/pictogram"
)

const maxPadding = 1000

// Loader returns the stored tree of a pictogram.
type Loader interface {
	LoadDocument(ctx context.Context, id string) (*document.Node, error)
}

type Handler struct {
	loader Loader
}

func NewHandler(loader Loader) *Handler {
	return &Handler{loader: loader}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/pictograms/{id}/export.svg", h.ExportSVG).Methods("GET")
}

// ExportSVG serves the pictogram as a standalone svg file. With fit=1 the
// root viewBox is cropped to the drawn content plus padding user units.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()

	padding := 0.0
	if v := q.Get("padding"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 || p > maxPadding {
			http.Error(w, "invalid padding", http.StatusBadRequest)
			return
		}
		padding = p
	}

	root, err := h.loader.LoadDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, pictogram.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		slog.Error("load pictogram for export", "error", err, "pictogram", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if fit, _ := strconv.ParseBool(q.Get("fit")); fit {
		root = FitToContent(root, padding)
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sanitize(id)+".svg"))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(document.ToMarkup(root)))
}

// FitToContent returns root with its viewBox, width and height set to the
// world bounds of its content grown by padding. A document with no
// geometry is returned unchanged.
func FitToContent(root *document.Node, padding float64) *document.Node {
	b, ok := engine.WorldBounds(root, engine.AttributeGeometry{Root: root})
	if !ok {
		return root
	}
	b = b.Expand(padding)
	if b.Width() <= 0 || b.Height() <= 0 {
		return root
	}
	out, _ := document.UpdateByID(root, root.ID, func(n *document.Node) {
		n.Attrs["viewBox"] = strings.Join([]string{num(b.MinX), num(b.MinY), num(b.Width()), num(b.Height())}, " ")
		n.Attrs["width"] = num(b.Width())
		n.Attrs["height"] = num(b.Height())
	})
	return out
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
}
