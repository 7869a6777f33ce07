package i18n

import (
	"fmt"
	"strings"
	"time"

	"github.com/kdsmith18542/localekit/i18n/keypath"
	"github.com/kdsmith18542/localekit/i18n/resource"
)

// Get resolves name under path for module and culture and formats the
// value with args.
//
// The name is tried as given and with the module's root namespace added or
// removed. When parent culture fallback is enabled, parent cultures are
// searched as well. A name starting with "~" ignores path.
//
// A missing value is not an error: the result has ResourceNotFound set and
// a placeholder value. A format string that does not match args is an
// error. Results are cached per argument set, so repeated calls return the
// same *LocalizedString until resources or settings change.
//
// Example:
//
//	s, err := engine.Get("App", "en-US", "Greeting", "Home", user.Name)
//	if err != nil {
//	    return err
//	}
//	if s.ResourceNotFound {
//	    log.Warn().Str("trace", s.SearchedLocation).Msg("missing translation")
//	}
func (e *Engine) Get(module, culture, name, path string, args ...any) (*LocalizedString, error) {
	k := lookupKey{
		module:  strings.ToLower(module),
		culture: resource.NormalizeCulture(culture),
		name:    name,
		path:    path,
		args:    argsKey(args),
	}
	return e.lookups.Get(k, func() (*LocalizedString, error) {
		return e.resolve(module, k.culture, name, path, args)
	})
}

// T is a convenience wrapper around Get that returns only the value. Format
// errors yield the unformatted placeholder for name.
func (e *Engine) T(module, culture, name string, args ...any) string {
	s, err := e.Get(module, culture, name, "", args...)
	if err != nil {
		e.log.Warn().Err(err).Str("name", name).Str("culture", culture).Msg("Localized string could not be formatted")
		return Placeholder(name)
	}
	return s.Value
}

func (e *Engine) resolve(module, culture, name, path string, args []any) (*LocalizedString, error) {
	start := time.Now()
	ctx, span := startLookupSpan(module, culture, name)
	defer span.End()

	fallback := e.store.ParentCultureFallback()
	candidates := keypath.Resolve(e.rootNamespace(module), name, path)

	var trace strings.Builder
	var first, firstFound, chosen *LocalizedString
	for _, key := range candidates {
		var (
			set *localizedSet
			err error
		)
		if fallback {
			set, err = e.inclusiveSet(module, culture)
		} else {
			set, err = e.exclusiveSet(module, culture)
		}
		if err != nil {
			return nil, err
		}

		s, ok := set.get(key)
		if !ok {
			s = newLocalizedString(key, key, culture, nil)
		}
		found := !s.ResourceNotFound
		if found {
			fmt.Fprintf(&trace, "%q: hit (%s); ", key, cultureLabel(s.Culture))
		} else {
			fmt.Fprintf(&trace, "%q: miss; ", key)
		}

		if first == nil {
			first = s
		}
		if found && firstFound == nil {
			firstFound = s
		}
		if found && s.Culture == culture {
			chosen = s
			break
		}
	}
	if chosen == nil {
		chosen = firstFound
	}
	if chosen == nil {
		chosen = first
	}

	found := chosen != nil && !chosen.ResourceNotFound
	if !found {
		e.describeSearched(&trace, module)
	}

	out := &LocalizedString{
		Name:             name,
		Culture:          culture,
		ResourceNotFound: true,
		Value:            Placeholder(name),
		SearchedLocation: strings.TrimSuffix(strings.TrimSpace(trace.String()), ";"),
	}
	if chosen != nil {
		out.Key = chosen.Key
		out.Culture = chosen.Culture
	}
	if found {
		out.ResourceNotFound = false
		out.Value = chosen.Value
		if len(args) > 0 {
			v, err := Format(chosen.Value, args...)
			if err != nil {
				return nil, err
			}
			out.Value = v
		}
	}

	elapsed := time.Since(start)
	getObserver().OnLookup(ctx, culture, name, found, elapsed)
	getObserver().OnCacheFill(ctx, TierLookup, elapsed)
	return out, nil
}

func (e *Engine) describeSearched(trace *strings.Builder, module string) {
	handles, err := e.catalog.Resources()
	if err != nil {
		fmt.Fprintf(trace, "resources unavailable: %v", err)
		return
	}
	var searched []string
	for _, h := range handles {
		if h.Module == "" || strings.EqualFold(h.Module, module) {
			searched = append(searched, h.String())
		}
	}
	fmt.Fprintf(trace, "searched: [%s]", strings.Join(searched, ", "))
}

func cultureLabel(c string) string {
	if c == resource.Invariant {
		return "invariant"
	}
	return c
}

func argsKey(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for _, a := range args {
		t, v := fmt.Sprintf("%T", a), fmt.Sprintf("%v", a)
		fmt.Fprintf(&b, "%d:%s%d:%s", len(t), t, len(v), v)
	}
	return b.String()
}
