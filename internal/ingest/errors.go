package ingest

import "github.com/rotisserie/eris"

// ErrEmptyFiling is returned when a document parses cleanly but carries no
// facts at all; storing it would create a filing nothing can report on.
var ErrEmptyFiling = eris.New("ingest: document contains no facts")
