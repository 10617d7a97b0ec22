package artifact

import "github.com/ternarybob/are/pkg/docmodel"

// WriteRoot persists a root artifact at path. The generator owns this file
// exclusively (§3): no merge, no marker check, a plain overwrite.
func WriteRoot(path string, a *docmodel.RootArtifact) error {
	return writeScoped(path, a.Body)
}
