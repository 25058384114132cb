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

// Package lumos grows lightning with the dielectric breakdown model.
//
// A discharge starts from a set of filled cells and grows one cell at a
// time toward terminator cells. Each step picks a cell next to the
// discharge with probability proportional to the electric potential
// there, which is found by solving Laplace's equation on a 2:1
// balanced quadtree that is only refined near the discharge and the
// fixed-potential cells. A connectivity graph records which cell each
// new cell grew from; once a terminator is reached the path back to the
// start becomes the bright leader and side branches fade with distance
// from it.
package lumos

// Version gives the version number.
const Version = "1.0.0"
