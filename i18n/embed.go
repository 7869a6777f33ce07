package i18n

import (
	"fmt"
	"io/fs"

	"github.com/kdsmith18542/localekit/i18n/catalog"
	"github.com/kdsmith18542/localekit/i18n/resource"
)

// EmbeddedModule builds a module from the files under dir of an embedded
// file system. Names are relative to dir, so "locales/Texts.en.json"
// becomes "Texts.en.json" and gets culture "en".
//
// Example:
//
//	//go:embed locales
//	var localeFS embed.FS
//
//	func init() {
//	    app, err := i18n.EmbeddedModule("App", "App", localeFS, "locales")
//	    if err != nil {
//	        panic(err)
//	    }
//	    registry.Register(app)
//	}
func EmbeddedModule(name, rootNamespace string, fsys fs.FS, dir string) (*catalog.Module, error) {
	src, err := subSource(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("embedded module %s: %w", name, err)
	}
	return &catalog.Module{Name: name, RootNamespace: rootNamespace, Source: src}, nil
}

// AddSatellite attaches the files under dir as culture-specific artifacts
// of m. Every artifact of a satellite gets culture, whatever its name says.
func AddSatellite(m *catalog.Module, culture string, fsys fs.FS, dir string) error {
	src, err := subSource(fsys, dir)
	if err != nil {
		return fmt.Errorf("satellite %s of %s: %w", culture, m.Name, err)
	}
	if m.Satellites == nil {
		m.Satellites = make(map[string]catalog.Source)
	}
	m.Satellites[resource.NormalizeCulture(culture)] = src
	return nil
}

func subSource(fsys fs.FS, dir string) (catalog.Source, error) {
	if dir == "" || dir == "." {
		return catalog.FS(fsys), nil
	}
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	if _, err := fs.Stat(sub, "."); err != nil {
		return nil, err
	}
	return catalog.FS(sub), nil
}
