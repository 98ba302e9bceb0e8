/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package lineup

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

const testLayout = `{{define "page"}}<main>{{template "images" .}}{{template "charges" .}}{{template "slots" .}}</main>{{end}}
{{define "images"}}<div id="images">{{range .Entities}}<img src="{{asset .Image}}" draggable="false">{{end}}</div>{{end}}
{{define "charges"}}<div id="charges">{{range .Tray}}<div id="{{.ID}}" class="charge" draggable="true">{{.Label}}</div>{{end}}</div>{{end}}
{{define "slots"}}<div id="chargeSlots">{{range .Entities}}{{range .Slots}}<div id="{{.ID}}" class="chargeSlot" data-owner="{{.Owner}}">{{with .Charge}}<div id="{{.ID}}" class="charge" draggable="true">{{.Label}}</div>{{end}}</div>{{end}}{{end}}</div>{{end}}`

func TestRendererMissingMountPoint(t *testing.T) {
	for name := range MountPoints {
		layout := strings.Replace(testLayout, `{{define "`+name+`"}}`, `{{define "other-`+name+`"}}`, 1)
		layout = strings.Replace(layout, `{{template "`+name+`" .}}`, "", 1)

		fsys := fstest.MapFS{"layout.html": {Data: []byte(layout)}}

		_, err := NewRenderer(fsys, "", "layout.html")
		if !errors.Is(err, ErrMissingMountPoint) {
			t.Fatalf("removing %q: expected ErrMissingMountPoint, got %v", name, err)
		}
	}
}

func TestRendererMountPointNotDrawn(t *testing.T) {
	layouts := map[string]string{
		"never called": strings.Replace(testLayout, `{{template "slots" .}}`, "", 1),
		"empty block": strings.Replace(testLayout,
			testLayout[strings.Index(testLayout, `{{define "slots"}}`):],
			`{{define "slots"}}{{end}}`, 1),
		"wrong id": strings.Replace(testLayout, `id="chargeSlots"`, `id="slots"`, 1),
	}

	for name, layout := range layouts {
		fsys := fstest.MapFS{"layout.html": {Data: []byte(layout)}}

		_, err := NewRenderer(fsys, "", "layout.html")
		if !errors.Is(err, ErrMissingMountPoint) {
			t.Fatalf("%s: expected ErrMissingMountPoint, got %v", name, err)
		}
	}
}

func TestRenderBoard(t *testing.T) {
	fsys := fstest.MapFS{"layout.html": {Data: []byte(testLayout)}}

	rd, err := NewRenderer(fsys, "/games", "layout.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	people := Roster{
		{ID: "A", Image: "/imgA", Charges: []string{"x", "y"}},
		{ID: "B", Image: "https://example.com/imgB", Charges: []string{"z"}},
		{ID: "C", Image: "/imgC", Charges: []string{"w"}},
	}
	r := newRoundFrom(seeded(1), people)

	x := chargeByLabel(t, r, "x")
	slot := slotsOf(r, "B")[0]
	_, _ = r.Drop(slot.ID, x.ID)

	var sb strings.Builder
	if err := rd.Render(&sb, r.Board("round1", "/games")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := sb.String()

	if n := strings.Count(out, "<img "); n != 3 {
		t.Fatalf("expected 3 images, got %d", n)
	}
	if !strings.Contains(out, `src="/games/imgA"`) || !strings.Contains(out, `src="https://example.com/imgB"`) {
		t.Fatalf("image sources not rewritten as expected:\n%s", out)
	}
	if n := strings.Count(out, `class="charge"`); n != 4 {
		t.Fatalf("expected 4 charge elements, got %d", n)
	}
	if n := strings.Count(out, `class="chargeSlot"`); n != 4 {
		t.Fatalf("expected 4 slots, got %d", n)
	}

	placed := `<div id="` + slot.ID + `" class="chargeSlot" data-owner="B"><div id="` + x.ID + `"`
	if !strings.Contains(out, placed) {
		t.Fatalf("placed charge not rendered inside its slot:\n%s", out)
	}

	imgA := strings.Index(out, "/games/imgA")
	imgB := strings.Index(out, "example.com/imgB")
	imgC := strings.Index(out, "/games/imgC")
	if imgA > imgB || imgB > imgC {
		t.Fatalf("images not in selection order")
	}
}

func TestBoardTray(t *testing.T) {
	r := fixedRound(t)
	x := chargeByLabel(t, r, "x")

	if b := r.Board("id", ""); len(b.Tray) != 4 || b.Total != 4 {
		t.Fatalf("expected full tray, got %d of %d", len(b.Tray), b.Total)
	}

	_, _ = r.Drop(r.Slots()[0].ID, x.ID)

	b := r.Board("id", "")
	if len(b.Tray) != 3 {
		t.Fatalf("expected 3 in tray, got %d", len(b.Tray))
	}
	for _, c := range b.Tray {
		if c.ID == x.ID {
			t.Fatalf("placed charge still in tray")
		}
	}
}

func TestRenderAnyThreeOfFour(t *testing.T) {
	fsys := fstest.MapFS{"layout.html": {Data: []byte(testLayout)}}

	rd, err := NewRenderer(fsys, "", "layout.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for seed := range uint64(30) {
		r, err := NewRound(seeded(seed), fourPeople())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var sb strings.Builder
		if err := rd.Render(&sb, r.Board("id", "")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := sb.String()

		charges := 0
		for _, e := range r.Entities() {
			charges += len(e.Charges)
			for _, c := range e.Charges {
				if !strings.Contains(out, `draggable="true">`+c+`</div>`) {
					t.Fatalf("charge %q not rendered as draggable", c)
				}
			}
		}

		if n := strings.Count(out, "<img "); n != 3 {
			t.Fatalf("expected 3 images, got %d", n)
		}
		if n := strings.Count(out, `class="charge"`); n != charges {
			t.Fatalf("expected %d charges, got %d", charges, n)
		}
		if n := strings.Count(out, `class="chargeSlot"`); n != charges {
			t.Fatalf("expected %d slots, got %d", charges, n)
		}
	}
}
