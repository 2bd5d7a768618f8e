package permissions

import (
	"strings"
	"testing"
)

func TestPath(t *testing.T) {
	if got := Path("adm/mship/ban", int64(12), "repeal"); got != "adm/mship/ban/12/repeal" {
		t.Errorf("Path = %q", got)
	}
	if got := Path("/adm/", 3, "/x/"); got != "adm/3/x" {
		t.Errorf("Path trims separators, got %q", got)
	}
}

func TestScopedPaths(t *testing.T) {
	cases := map[string]string{
		BanRepeal(7):          "adm/mship/ban/7/repeal",
		BanModify(7):          "adm/mship/ban/7/modify",
		AccountNoteCreate(42): "adm/mship/account/42/note/create",
		AccountBansView(42):   "adm/mship/account/42/bans",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestHasExact(t *testing.T) {
	s := NewSet("adm/mship/ban/7/repeal")
	if !s.Has(BanRepeal(7)) {
		t.Error("expected exact grant to match")
	}
	if s.Has(BanRepeal(8)) {
		t.Error("grant for ban 7 must not match ban 8")
	}
	if s.Has(BanModify(7)) {
		t.Error("repeal grant must not match modify")
	}
}

func TestHasSegmentWildcard(t *testing.T) {
	s := NewSet("adm/mship/ban/*/repeal")
	if !s.Has(BanRepeal(1)) || !s.Has(BanRepeal(99)) {
		t.Error("expected segment wildcard to match any ban id")
	}
	if s.Has(BanModify(1)) {
		t.Error("segment wildcard must not match a different action")
	}
	if s.Has("adm/mship/ban/1/repeal/extra") {
		t.Error("segment wildcard must not match longer paths")
	}
}

func TestHasTrailingWildcard(t *testing.T) {
	s := NewSet("adm/mship/ban/*")
	if !s.Has(BanRepeal(1)) || !s.Has(BanModify(2)) {
		t.Error("trailing wildcard should match any remainder")
	}
	if s.Has("adm/mship/ban") {
		t.Error("trailing wildcard requires at least one more segment")
	}
	if s.Has(AccountNoteCreate(1)) {
		t.Error("trailing wildcard must stay under its prefix")
	}
}

func TestHasBareWildcard(t *testing.T) {
	s := NewSet(Wildcard)
	if !s.Has(BanRepeal(1)) || !s.Has(AccountNoteCreate(5)) {
		t.Error("bare wildcard should grant everything")
	}
	if s.Has("") {
		t.Error("empty path is never granted")
	}
}

func TestEmptySet(t *testing.T) {
	var s Set
	if s.Has(BanRepeal(1)) {
		t.Error("zero Set grants nothing")
	}
	if s.String() != "NONE" {
		t.Errorf("String = %q, want NONE", s.String())
	}
	s = s.Add("adm/x")
	if !s.Has("adm/x") {
		t.Error("Add on zero Set should work")
	}
}

func TestAddIgnoresBlank(t *testing.T) {
	s := NewSet("", "  ", "/")
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestUnion(t *testing.T) {
	a := NewSet("a/b")
	b := NewSet("c/d")
	u := a.Union(b)
	if !u.Has("a/b") || !u.Has("c/d") {
		t.Error("union should hold both grants")
	}
	if a.Has("c/d") {
		t.Error("union must not mutate the receiver")
	}
}

func TestString(t *testing.T) {
	s := NewSet("b/x", "a/y").String()
	if !strings.HasPrefix(s, "a/y") || !strings.Contains(s, "b/x") {
		t.Errorf("String = %q, want sorted grants", s)
	}
}
