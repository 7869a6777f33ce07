package i18n

import (
	"context"
	"strings"
	"time"

	"github.com/kdsmith18542/localekit/i18n/resource"
)

// List returns every string module sees for culture.
//
// Without includeParentCultures only resources of exactly that culture
// contribute. With it, the parent cultures down to the invariant culture
// are merged in as well; a key keeps the value of the most specific culture
// that defines it.
//
// Keys are in declaration order, or alphabetical when sorting is enabled.
func (e *Engine) List(module, culture string, includeParentCultures bool) ([]*LocalizedString, error) {
	var (
		set *localizedSet
		err error
	)
	if includeParentCultures {
		set, err = e.inclusiveSet(module, culture)
	} else {
		set, err = e.exclusiveSet(module, culture)
	}
	if err != nil {
		return nil, err
	}
	return set.list(), nil
}

func newListKey(module, culture string) listKey {
	return listKey{module: strings.ToLower(module), culture: resource.NormalizeCulture(culture)}
}

func (e *Engine) exclusiveSet(module, culture string) (*localizedSet, error) {
	k := newListKey(module, culture)
	return e.exclusive.Get(k, func() (*localizedSet, error) {
		start := time.Now()
		trees, err := e.mat.Localizations()
		if err != nil {
			return nil, err
		}

		flat := resource.NewFlat()
		for _, t := range trees {
			if visible(t, module) && resource.SameCulture(t.Culture, k.culture) {
				resource.FlattenInto(flat, t)
			}
		}

		set := newLocalizedSet(flat.Len())
		for _, key := range flat.Keys() {
			entry, _ := flat.Get(key)
			set.put(resolveEntry(flat, key, entry, k.culture))
		}
		if e.store.Sorted() {
			set.sortByKey()
		}

		getObserver().OnCacheFill(context.Background(), TierExclusive, time.Since(start))
		e.log.Debug().Str("module", module).Str("culture", k.culture).Int("keys", len(set.items)).Msg("Culture list built")
		return set, nil
	})
}

func (e *Engine) inclusiveSet(module, culture string) (*localizedSet, error) {
	k := newListKey(module, culture)
	return e.inclusive.Get(k, func() (*localizedSet, error) {
		start := time.Now()
		union := newLocalizedSet(0)
		for _, c := range resource.ParentChain(k.culture) {
			set, err := e.exclusiveSet(module, c)
			if err != nil {
				return nil, err
			}
			for _, s := range set.items {
				_, ok := union.get(s.Name)
				if !ok {
					union.put(s)
				}
			}
		}
		if e.store.Sorted() {
			union.sortByKey()
		}

		getObserver().OnCacheFill(context.Background(), TierInclusive, time.Since(start))
		return union, nil
	})
}
