// Package db provides the embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Vegetables is the default vegetable price list.
//
//go:embed seed/veggies.txt
var Vegetables []byte

// Boxes is the default premade box list.
//
//go:embed seed/premadeboxes.txt
var Boxes []byte

// Accounts holds the demo customers, staff and API keys.
//
//go:embed seed/accounts.json
var Accounts []byte
