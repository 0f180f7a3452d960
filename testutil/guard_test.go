package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDomainImportForbiddenPredicate covers predicate behavior.
func TestDomainImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"example.com/mod/pkg/domain", true},
		{"example.com/mod/pkg/domain@v1", true},
		{"example.com/mod/pkg/notdomain", false},
	}
	for _, c := range cases {
		if got := DomainImportForbidden(c.in); got != c.want {
			t.Fatalf("DomainImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"example.com/mod/internal/x", true},
		{"example.com/mod/pkg/x", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestPrefixImportForbidden(t *testing.T) {
	forbidden := PrefixImportForbidden("clientcore/internal/adapters", "clientcore/internal/server")
	cases := []struct {
		in   string
		want bool
	}{
		{"clientcore/internal/adapters", true},
		{"clientcore/internal/adapters/clients", true},
		{"clientcore/internal/server", true},
		{"clientcore/internal/adaptersx", false},
		{"clientcore/internal/core", false},
	}
	for _, c := range cases {
		if got := forbidden(c.in); got != c.want {
			t.Fatalf("PrefixImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestDirectImportViolationsReportsOffenders(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport (\n\t\"fmt\"\n\t\"clientcore/internal/server\"\n)\nvar _ = fmt.Sprint\nvar _ = server.NewRouter\n")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), []byte("package tmp\nimport \"clientcore/internal/adapters\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, PrefixImportForbidden("clientcore/internal/server", "clientcore/internal/adapters"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "clientcore/internal/server (in x.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestFailHelpersFormatViolations(t *testing.T) {
	rec := &recordingFatal{}
	failIfDirectViolations(rec, "layering", []string{"a", "b"})
	if !strings.Contains(rec.msg, "layering") || !strings.Contains(rec.msg, "a\nb") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
	rec = &recordingFatal{}
	failIfTransitiveViolations(rec, "deps", nil)
	if rec.msg != "" {
		t.Fatalf("expected no failure, got %q", rec.msg)
	}
}

func TestTransitiveViolationsUsesGoList(t *testing.T) {
	old := goListDeps
	t.Cleanup(func() { goListDeps = old })
	goListDeps = func(string) ([]byte, error) {
		return []byte("context\nclientcore/pkg/domain\nclientcore/internal/core\n"), nil
	}
	viols, _, err := transitiveDependencyViolations("./...", InternalImportForbidden)
	if err != nil || len(viols) != 1 || viols[0] != "clientcore/internal/core" {
		t.Fatalf("unexpected violations %v %v", viols, err)
	}
}

// TestAssertNoDirectImports exercises the success path by creating a tiny temp package with safe imports.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

// TestAssertNoTransitiveDependency runs against a trivial module pattern (current repo) with a predicate that always returns false to exercise path.
func TestAssertNoTransitiveDependency(t *testing.T) {
	AssertNoTransitiveDependency(t, "./...", func(string) bool { return false }, "none")
}
