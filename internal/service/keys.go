package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func normalizeToken(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "_"
	}
	return strings.NewReplacer(":", "_", " ", "_").Replace(v)
}

// hashToken keeps raw identifiers out of redis key space.
func hashToken(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:16])
}
