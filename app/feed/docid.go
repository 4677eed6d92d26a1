package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const docIDLength = 32

// DocID derives the stable article identifier from the first non-empty of an
// explicit id, the link and the normalized title.
func DocID(id, link, title string) string {
	key := strings.TrimSpace(id)
	if key == "" {
		key = strings.TrimSpace(link)
	}
	if key == "" {
		key = NormalizeTitle(title)
	}
	return hashKey(key)
}

// TitleDocID ignores id and link. Used for sources whose links rotate.
func TitleDocID(title string) string {
	return hashKey(NormalizeTitle(title))
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:docIDLength]
}
