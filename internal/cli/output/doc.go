// Package output renders CLI results as a table, JSON or YAML.
//
// Values that know their own tabular layout implement Tabler. Anything
// else is laid out by reflection: structs as FIELD/VALUE rows, maps as
// KEY/VALUE rows sorted by key, and slices of structs as one row each.
package output
