// Package prompts embeds the analysis pipeline prompt templates.
package prompts

import "embed"

//go:embed *.md
var FS embed.FS
