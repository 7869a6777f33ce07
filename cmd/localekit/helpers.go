package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/kdsmith18542/localekit/i18n"
	"github.com/kdsmith18542/localekit/i18n/materialize"
)

// FindMissingKeys returns, per culture visible to module, the keys that
// another culture defines but this one does not. Every culture is present
// in the result, complete ones with an empty slice.
func FindMissingKeys(engine *i18n.Engine, module string) (map[string][]string, error) {
	cultures, err := engine.Cultures(module)
	if err != nil {
		return nil, err
	}

	all := make(map[string]bool)
	perCulture := make(map[string]map[string]bool, len(cultures))
	for _, c := range cultures {
		items, err := engine.List(module, c, false)
		if err != nil {
			return nil, fmt.Errorf("culture %s: %w", cultureName(c), err)
		}
		keys := make(map[string]bool, len(items))
		for _, it := range items {
			if it.ResourceNotFound {
				continue
			}
			keys[it.Key] = true
			all[it.Key] = true
		}
		perCulture[c] = keys
	}

	missing := make(map[string][]string, len(cultures))
	for _, c := range cultures {
		list := []string{}
		for key := range all {
			if !perCulture[c][key] {
				list = append(list, key)
			}
		}
		sort.Strings(list)
		missing[c] = list
	}
	return missing, nil
}

// Lint reports resources that do not parse and aliases that resolve to
// nothing. It returns the number of issues written to w.
func Lint(w io.Writer, engine *i18n.Engine, module string) (int, error) {
	handles, err := engine.Resources()
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "Linting %d resources...\n\n", len(handles))

	issues := 0
	parseErrs, err := engine.Lint()
	if err != nil {
		return 0, err
	}
	if len(parseErrs) == 0 {
		fmt.Fprintln(w, "  ✓ All resources parse")
	}
	for _, pe := range parseErrs {
		issues++
		fmt.Fprintf(w, "  ❌ %s: %v\n", pe.Resource, pe.Err)
	}

	cultures, err := engine.Cultures(module)
	if err != nil {
		return issues, err
	}
	for _, c := range cultures {
		items, err := engine.List(module, c, false)
		var pe *materialize.ParseError
		if errors.As(err, &pe) {
			// Already reported above; fail-fast hides the culture.
			continue
		}
		if err != nil {
			return issues, err
		}
		dangling := 0
		for _, it := range items {
			if it.ResourceNotFound {
				dangling++
				fmt.Fprintf(w, "  ⚠️  %s: %s resolves to nothing\n", cultureName(c), it.Key)
			}
		}
		if dangling == 0 {
			fmt.Fprintf(w, "  ✓ %s: %d strings\n", cultureName(c), len(items))
		}
		issues += dangling
	}

	fmt.Fprintln(w)
	if issues == 0 {
		fmt.Fprintln(w, "✓ All resources passed linting!")
	}
	return issues, nil
}

func printMissing(w io.Writer, missing map[string][]string) {
	cultures := make([]string, 0, len(missing))
	for c := range missing {
		cultures = append(cultures, c)
	}
	sort.Strings(cultures)

	fmt.Fprintf(w, "Analyzing %d cultures...\n\n", len(cultures))
	complete := true
	for _, c := range cultures {
		keys := missing[c]
		if len(keys) == 0 {
			fmt.Fprintf(w, "Culture '%s': ✓ Complete\n", cultureName(c))
			continue
		}
		complete = false
		fmt.Fprintf(w, "Culture '%s' is missing %d keys:\n", cultureName(c), len(keys))
		for _, k := range keys {
			fmt.Fprintf(w, "  - %s\n", k)
		}
		fmt.Fprintln(w)
	}
	if complete {
		fmt.Fprintln(w, "✓ All cultures are complete!")
	}
}

func printStrings(w io.Writer, items []*i18n.LocalizedString) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range items {
		value := it.Value
		if it.ResourceNotFound {
			value = "(not found)"
		}
		fmt.Fprintf(tw, "%s\t= %s\t(%s)\n", it.Key, value, cultureName(it.Culture))
	}
	tw.Flush()
}

func cultureName(c string) string {
	if c == "" {
		return "invariant"
	}
	return c
}
