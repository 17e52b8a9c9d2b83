package mppwebui

import "embed"

// TemplateFS contains the HTML templates of the portal, split into layout, pages and partials.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the stylesheet, the chat widget script and the images.
//
//go:embed static/*
var StaticFS embed.FS
