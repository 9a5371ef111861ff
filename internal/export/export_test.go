package export

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/danmuck/briefctl/internal/testutil/testlog"
)

func TestWriteReadList(t *testing.T) {
	testlog.Start(t)
	d := NewDir(filepath.Join(t.TempDir(), "briefings"))

	ids, err := d.List()
	if err != nil {
		t.Fatalf("list on missing root: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty list, got %v", ids)
	}

	for _, id := range []string{"s-b", "s-a"} {
		p, err := d.Write(id, "# Briefing "+id)
		if err != nil {
			t.Fatalf("write %s: %v", id, err)
		}
		testlog.Logf("export: wrote %s", p)
	}
	if _, err := d.Write("s-a", "# Briefing v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := d.Read("s-a")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "# Briefing v2" {
		t.Fatalf("unexpected content: %q", got)
	}

	ids, err = d.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "s-a" || ids[1] != "s-b" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestRejectsEscapesAndMissing(t *testing.T) {
	d := NewDir(t.TempDir())
	if _, err := d.Write("../outside", "x"); !errors.Is(err, ErrEscapeRoot) {
		t.Fatalf("expected ErrEscapeRoot, got %v", err)
	}
	if _, err := d.Write("/abs", "x"); !errors.Is(err, ErrEscapeRoot) {
		t.Fatalf("expected ErrEscapeRoot for absolute id, got %v", err)
	}
	if _, err := d.Write(" ", "x"); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if _, err := d.Read("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
