package domain

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestPublicPackagesDoNotImportInternal ensures the exported pkg/ layer
// stays free of internal dependencies. Engine, sync, and storage packages
// depend on pkg/domain and pkg/planar, never the other way around.
func TestPublicPackagesDoNotImportInternal(t *testing.T) {
	const (
		publicPrefix   = "placementcore/pkg"
		internalPrefix = "placementcore/internal"
	)

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "placementcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		if !strings.HasPrefix(pkg.PkgPath, publicPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if importPath == internalPrefix || strings.HasPrefix(importPath, internalPrefix+"/") {
				violations = append(violations, pkg.PkgPath+": "+importPath)
			}
		}
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden internal import from public package: %s", v)
		}
		t.Fatalf("found %d forbidden imports", len(violations))
	}
}
