package web

import "embed"

// TemplatesFS embeds the report page templates.
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the default report stylesheet.
//go:embed static/*
var StaticFS embed.FS
