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

// Command lumos is a command-line interface for the lumos lightning
// generator.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/lumos/lumosutil"
)

func main() {
	if err := lumosutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
