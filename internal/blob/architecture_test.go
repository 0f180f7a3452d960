package blob

import (
	"clientcore/testutil"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyBlobPackageImportsInfra keeps the drivers behind this facade. Other
// packages must depend on blob.Store instead of the infra packages.
func TestOnlyBlobPackageImportsInfra(t *testing.T) {
	infraPrefix := "clientcore/internal/infra/blob"
	allowedPrefix := "clientcore/internal/blob"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "clientcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, allowedPrefix) || strings.HasPrefix(pkg.PkgPath, infraPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if importPath == infraPrefix || strings.HasPrefix(importPath, infraPrefix+"/") {
				seen[filepath.Join(pkg.PkgPath, "...")+": "+importPath] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return
	}
	violations := make([]string, 0, len(seen))
	for v := range seen {
		violations = append(violations, v)
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden import of infra blob package: %s", v)
	}
	t.Fatalf("found %d forbidden imports of infra blob packages", len(violations))
}

func TestBlobLayerIgnoresClientDomain(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.DomainImportForbidden, "blob storage is domain agnostic")
	testutil.AssertNoDirectImports(t, "core", testutil.DomainImportForbidden, "blob storage is domain agnostic")
}
