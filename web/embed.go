package web

import _ "embed"

// IndexHTML is the single-page browser UI served at the root path.
//
//go:embed index.html
var IndexHTML []byte
