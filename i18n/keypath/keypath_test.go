package keypath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		root string
		key  string
		path string
		want []string
	}{
		{name: "plain name", key: "Greeting", want: []string{"Greeting"}},
		{name: "path joined", key: "Title", path: "Views/Home", want: []string{"Views.Home.Title"}},
		{name: "backslash path", key: "Title", path: `Views\Home\`, want: []string{"Views.Home.Title"}},
		{name: "root added", root: "App", key: "Greeting", want: []string{"Greeting", "App.Greeting"}},
		{name: "root stripped", root: "App", key: "Greeting", path: "App", want: []string{"App.Greeting", "Greeting"}},
		{name: "rooted name ignores path", root: "App", key: "~/Shared/Ok", path: "Views/Home", want: []string{"Shared.Ok", "App.Shared.Ok"}},
		{name: "rooted name with dot", key: "~.Ok", path: "Views", want: []string{"Ok"}},
		{name: "empty everything", want: []string{""}},
		{name: "empty with root", root: "App", want: []string{"", "App"}},
		{name: "name equals root", root: "App", key: "App", want: []string{"App"}},
		{name: "dotted root namespace", root: "Company.App", key: "X", path: "Company/App", want: []string{"Company.App.X", "X"}},
		{name: "repeated separators", key: "..a//b..", want: []string{"a.b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.root, tt.key, tt.path))
		})
	}
}

func TestResolve_NeverPanics(t *testing.T) {
	inputs := []string{"", "~", "~~", "/", "\\", ".", " ", "~/", "a/../b"}
	for _, root := range inputs {
		for _, name := range inputs {
			for _, path := range inputs {
				assert.NotPanics(t, func() { Resolve(root, name, path) })
			}
		}
	}
}
