package bookstore

import (
	_ "embed"
)

// Fixture is the serialized bookstore dataset loaded before each regression
// run. The format matches internal/fixtures: a list of model/pk/fields
// records where relation names carry keys instead of column values.
//
//go:embed fixture.json
var Fixture []byte
