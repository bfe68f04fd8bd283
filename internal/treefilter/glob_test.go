// SPDX-License-Identifier: Apache-2.0

package treefilter

import "testing"

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.c", "main.c", true},
		{"*.c", "src/main.c", false},
		{"**/*.c", "src/main.c", true},
		{"**/*.c", "main.c", true},
		{"**/test.c", "src/deep/test.c", true},
		{"src/*.c", "src/main.c", true},
		{"src/*.c", "src/sub/main.c", false},
		{"*", ".hidden", false},
		{".*", ".hidden", true},
		{"file?.txt", "file1.txt", true},
		{"file?.txt", "file12.txt", false},
		{"[abc].txt", "a.txt", true},
		{"[abc].txt", "d.txt", false},
		{"[a-c].txt", "b.txt", true},
		{"[!a-c].txt", "d.txt", true},
	}

	for _, c := range cases {
		t.Run(c.pattern+"_"+c.path, func(t *testing.T) {
			got := globMatch(c.pattern, c.path)
			if got != c.want {
				t.Errorf("globMatch(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
			}
		})
	}
}
