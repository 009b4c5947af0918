// Package models holds the GORM row types of the cash ledger tables and
// their conversions to and from domain aggregates. Domain types carry no
// ORM tags; repositories read and write these rows and convert at the edge.
package models
