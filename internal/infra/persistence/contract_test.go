package persistence

import (
	"go/types"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDocumentStoreImplementationsHardening ensures only sanctioned
// persistence packages provide concrete implementations of the
// domain.DocumentStore interface. Adding a new backend requires an explicit
// update of the allowed list.
func TestDocumentStoreImplementationsHardening(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes}
	pkgs, err := packages.Load(cfg, "placementcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	var documentStore *types.Interface
	for _, p := range pkgs {
		if p.PkgPath == "placementcore/pkg/domain" {
			obj := p.Types.Scope().Lookup("DocumentStore")
			if obj == nil {
				t.Fatalf("domain.DocumentStore not found")
			}
			iface, ok := obj.Type().Underlying().(*types.Interface)
			if !ok {
				t.Fatalf("domain.DocumentStore is not an interface")
			}
			documentStore = iface
		}
	}
	if documentStore == nil {
		t.Fatalf("failed to resolve DocumentStore interface")
	}

	allowed := map[string]struct{}{
		"placementcore/internal/infra/persistence/memory":   {},
		"placementcore/internal/infra/persistence/sqlite":   {},
		"placementcore/internal/infra/persistence/postgres": {},
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			obj := p.Types.Scope().Lookup(name)
			named, ok := obj.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if types.Implements(types.NewPointer(named), documentStore) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	if len(unexpected) > 0 {
		t.Fatalf("unexpected DocumentStore implementations (update the allowed list intentionally when adding a backend): %v", unexpected)
	}
}
