package archive

import "testing"

func TestNormalizeStripsLeadingSlashAndDotSlash(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/a/b", "a/b"},
		{"./a/b", "a/b"},
		{"a/b", "a/b"},
		{".", ""},
	}
	for _, c := range cases {
		got, keep, err := Normalize(c.in, "")
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", c.in, err)
		}
		if c.want == "" {
			if keep {
				t.Errorf("Normalize(%q) = keep=true, want false", c.in)
			}
			continue
		}
		if !keep || got != c.want {
			t.Errorf("Normalize(%q) = (%q, %v), want (%q, true)", c.in, got, keep, c.want)
		}
	}
}

func TestNormalizeEscapeIsInvalid(t *testing.T) {
	for _, in := range []string{"../x", ".."} {
		if _, _, err := Normalize(in, ""); err == nil {
			t.Errorf("Normalize(%q) = nil error, want ArchiveInvalid", in)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	in := "./sub/../a/b"
	first, keep1, err := Normalize(in, "")
	if err != nil {
		t.Fatal(err)
	}
	second, keep2, err := Normalize(first, "")
	if err != nil {
		t.Fatal(err)
	}
	if keep1 != keep2 || first != second {
		t.Fatalf("Normalize not idempotent: first=(%q,%v) second=(%q,%v)", first, keep1, second, keep2)
	}
}

func TestNormalizeSubDirFiltering(t *testing.T) {
	got, keep, err := Normalize("pkg/bin/tool", "pkg")
	if err != nil {
		t.Fatal(err)
	}
	if !keep || got != "bin/tool" {
		t.Fatalf("Normalize under sub_dir = (%q, %v), want (\"bin/tool\", true)", got, keep)
	}

	_, keep, err = Normalize("other/bin/tool", "pkg")
	if err != nil {
		t.Fatal(err)
	}
	if keep {
		t.Fatal("entry outside sub_dir was kept")
	}
}

func TestNormalizeHardlinkTargetEscapeIsInvalid(t *testing.T) {
	if _, err := NormalizeHardlinkTarget("../outside", "pkg"); err == nil {
		t.Fatal("NormalizeHardlinkTarget with escaping target returned nil error")
	}
}
