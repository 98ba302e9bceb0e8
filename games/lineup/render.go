/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lineup

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
)

// MountPoints are the named blocks a layout must define and the page must
// call. Each one renders the container with the given id.
var MountPoints = map[string]string{
	"images":  "images",
	"charges": "charges",
	"slots":   "chargeSlots",
}

// EntityView is a selected person together with the slots bound to them.
type EntityView struct {
	Entity
	Slots []SlotView
}

// SlotView is a slot and the charge currently sitting in it, if any.
type SlotView struct {
	Slot
	Charge *Charge
}

// Board is everything a layout needs to draw one round.
type Board struct {
	RoundID  string
	Prefix   string
	Entities []EntityView
	Tray     []Charge
	Total    int
}

// Renderer draws boards using a layout that defines every mount point.
type Renderer struct {
	layout *template.Template
}

// Funcs returns the template helpers layouts may use. "asset" rewrites
// site-relative paths under prefix and leaves absolute URLs alone.
func Funcs(prefix string) template.FuncMap {
	return template.FuncMap{
		"asset": func(p string) string {
			if strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") {
				return prefix + p
			}
			return p
		},
	}
}

// NewRenderer parses the layout files matching patterns in fsys.
func NewRenderer(fsys fs.FS, prefix string, patterns ...string) (*Renderer, error) {
	layout, err := template.New("").Funcs(Funcs(prefix)).ParseFS(fsys, patterns...)
	if err != nil {
		return nil, err
	}

	return newRenderer(layout)
}

func newRenderer(layout *template.Template) (*Renderer, error) {
	if layout.Lookup("page") == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingMountPoint, "page")
	}
	for name := range MountPoints {
		if layout.Lookup(name) == nil {
			return nil, fmt.Errorf("%w: %q", ErrMissingMountPoint, name)
		}
	}

	// An empty board still draws every container.
	var sample strings.Builder
	if err := layout.ExecuteTemplate(&sample, "page", Board{}); err != nil {
		return nil, err
	}

	for name, id := range MountPoints {
		if !strings.Contains(sample.String(), `id="`+id+`"`) {
			return nil, fmt.Errorf("%w: %q does not render #%s", ErrMissingMountPoint, name, id)
		}
	}

	return &Renderer{layout: layout}, nil
}

// Board builds the view of a round as it currently stands.
func (r *Round) Board(roundID, prefix string) Board {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b := Board{
		RoundID: roundID,
		Prefix:  prefix,
		Total:   len(r.slots),
	}

	byOwner := make(map[string][]SlotView, len(r.entities))
	for _, s := range r.slots {
		sv := SlotView{Slot: s}
		if chargeID, ok := r.slotCharge[s.ID]; ok {
			c := r.charges[r.chargeIndex[chargeID]]
			sv.Charge = &c
		}
		byOwner[s.Owner] = append(byOwner[s.Owner], sv)
	}

	for _, e := range r.entities {
		b.Entities = append(b.Entities, EntityView{
			Entity: e,
			Slots:  byOwner[e.ID],
		})
	}

	for _, c := range r.charges {
		if _, placed := r.chargeSlot[c.ID]; !placed {
			b.Tray = append(b.Tray, c)
		}
	}

	return b
}

// Render writes the page for board to w.
func (rd *Renderer) Render(w io.Writer, board Board) error {
	return rd.layout.ExecuteTemplate(w, "page", board)
}
