package parser

import (
	"bytes"
	"sort"

	"github.com/leonelquinteros/gotext"

	"github.com/kdsmith18542/localekit/i18n/resource"
)

// PO parses gettext catalogs. Each translated msgid becomes a literal entry
// whose key is the msgid itself; untranslated messages are left out so the
// lookup falls back to a parent culture.
type PO struct{}

func (PO) Parse(h resource.Handle, raw []byte) ([]*resource.Tree, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []*resource.Tree{}, nil
	}

	po := gotext.NewPo()
	po.Parse(raw)

	translations := po.GetDomain().GetTranslations()
	ids := make([]string, 0, len(translations))
	for id, tr := range translations {
		if id == "" || !tr.IsTranslated() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	t := resource.NewTree(resource.NormalizeCulture(h.Culture))
	for _, id := range ids {
		t.Root.Add(resource.Literal(id, translations[id].Get()))
	}
	return []*resource.Tree{t}, nil
}
