// Package assets embeds static data shipped inside the binary.
package assets

import _ "embed"

// ModelCatalog is the JSON list of selectable chat models grouped by provider.
// The desktop model selector and the chat server both read it.
//
//go:embed models.json
var ModelCatalog []byte
