package memes

import (
	"strings"

	"github.com/google/uuid"
)

// idNamespace seeds name-based meme ids. Changing it changes every id.
var idNamespace = uuid.MustParse("6f1c1f4e-5a0b-4d7e-9d7a-0d5c2b9e8a11")

// ShortIDLen is the number of hex characters shown to users.
const ShortIDLen = 8

// minPrefixLen is the shortest id prefix accepted by Resolve.
const minPrefixLen = 4

// IDFor returns the stable id of the meme at url.
func IDFor(url string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(url))
}

// Meme is one submitted URL with its identity and owner.
// Owner is empty for category-bucket memes.
type Meme struct {
	ID    uuid.UUID
	URL   string
	Owner string
}

// ShortID is the user-facing id.
func (m Meme) ShortID() string {
	return m.ID.String()[:ShortIDLen]
}

func normalizeIDPrefix(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
}

func idHex(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
