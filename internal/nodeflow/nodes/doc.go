// Package nodes is the built-in node library: constants, scalar and column
// arithmetic, table literals, filtering, column selection, string and
// datetime transforms, aggregation, and the three loop-control pairs.
//
// Every type here goes through RegisterAll; nothing outside this package
// constructs the concrete node structs directly.
package nodes
