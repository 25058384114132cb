/*
Copyright © 2020 the lumos authors.
This file is part of lumos.

lumos is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

lumos is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with lumos.  If not, see <http://www.gnu.org/licenses/>.
*/

package lumos

import (
	"strings"
	"testing"
)

func TestDOT(t *testing.T) {
	dot := leaderGraph(t).DOT()
	if !strings.HasPrefix(dot, "digraph lightning {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("malformed DOT:\n%s", dot)
	}
	for _, want := range []string{
		"n0 -> n1 [color=\"#bfbfbf\", penwidth=3];",
		"n1 -> n2 [color=\"#262626\", penwidth=1];",
		"n3 -> n4 ",
		"n2 [tooltip=\"(2, 0) depth 1\"];",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT is missing %q:\n%s", want, dot)
		}
	}
}
