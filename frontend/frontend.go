//go:generate sh -c "pnpm install && pnpm build"

// Package frontend provides the embedded admin frontend assets.
//
// The dist directory is populated at build time via go:generate; a
// placeholder index.html is committed so the server builds without it.
package frontend

import "embed"

// Files contains the embedded web frontend, rooted at dist/.
//
//go:embed dist/*
var Files embed.FS
