package keyexpr

import "testing"

func TestIntersects(t *testing.T) {
	cases := []struct {
		l, r string
		want bool
	}{
		{"a/b", "a/b", true},
		{"a/*", "a/b", true},
		{"a/*", "a/b/c", false},
		{"a/**", "a/b/c", true},
		{"a/**", "x/y", false},
		{"a/**/c", "a/x/y/c", true},
		{"a/**/c", "a/x/y/d", false},
		{"**", "a/b/c", true},
		{"**", "**", true},
		{"a/$*", "a/foobar", true},
		{"a/$*bar", "a/foobar", true},
		{"a/$*bar", "a/foobaz", false},
	}
	for _, c := range cases {
		if got := Intersects(c.l, c.r); got != c.want {
			t.Errorf("Intersects(%q, %q) = %v, want %v", c.l, c.r, got, c.want)
		}
		if got := Intersects(c.r, c.l); got != c.want {
			t.Errorf("Intersects not symmetric for (%q, %q): got %v, want %v", c.r, c.l, got, c.want)
		}
	}
}

func TestIntersectsReflexive(t *testing.T) {
	for _, s := range []string{"a/b/c", "a/*/c", "a/**", "**", "a/$*b"} {
		if !Intersects(s, s) {
			t.Errorf("Intersects(%q, %q) = false, want true (reflexive)", s, s)
		}
	}
}

func TestIncludes(t *testing.T) {
	cases := []struct {
		l, r string
		want bool
	}{
		{"a/b", "a/b", true},
		{"a/**", "a/b/c", true},
		{"a/**", "a", true},
		{"a/*", "a/b", true},
		{"a/*", "a/b/c", false},
		{"a/b", "a/*", false},
		{"**", "a/b/c", true},
		{"a/b/c", "**", false},
		{"a/$*", "a/foobar", true},
		{"a/foobar", "a/$*", false},
	}
	for _, c := range cases {
		if got := Includes(c.l, c.r); got != c.want {
			t.Errorf("Includes(%q, %q) = %v, want %v", c.l, c.r, got, c.want)
		}
	}
}

func TestIncludesReflexive(t *testing.T) {
	for _, s := range []string{"a/b/c", "a/*/c", "a/**", "**", "a/$*b"} {
		if !Includes(s, s) {
			t.Errorf("Includes(%q, %q) = false, want true (reflexive)", s, s)
		}
	}
}

func TestIncludesImpliesIntersects(t *testing.T) {
	cases := [][2]string{
		{"a/**", "a/b/c"},
		{"a/*", "a/b"},
		{"**", "x/y/z"},
		{"a/$*", "a/foobar"},
	}
	for _, c := range cases {
		l, r := c[0], c[1]
		if !Includes(l, r) {
			t.Fatalf("test setup invalid: Includes(%q, %q) should be true", l, r)
		}
		if !Intersects(l, r) {
			t.Errorf("Includes(%q, %q) held but Intersects(%q, %q) was false", l, r, l, r)
		}
	}
}

func TestIncludesTransitive(t *testing.T) {
	a, b, c := "**", "a/**", "a/b/c"
	if !Includes(a, b) {
		t.Fatalf("Includes(%q, %q) should be true", a, b)
	}
	if !Includes(b, c) {
		t.Fatalf("Includes(%q, %q) should be true", b, c)
	}
	if !Includes(a, c) {
		t.Errorf("Includes not transitive: Includes(%q,%q) and Includes(%q,%q) held but Includes(%q,%q) did not", a, b, b, c, a, c)
	}
}

func TestEquals(t *testing.T) {
	if !Equals("a/b/c", "a/b/c") {
		t.Error("Equals should be reflexive")
	}
	if Equals("a/b", "a/c") {
		t.Error("Equals(a/b, a/c) should be false")
	}
	if !Equals("a/b", "a/b") || Equals("a/*", "a/b") {
		t.Error("Equals must be exact, not a wildcard match")
	}
}
