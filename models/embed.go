// Package models embeds the unit UV sphere drawn at the event horizon.
package models

import "embed"

//go:embed sphere.obj
var FS embed.FS
