package keys

import (
	"strings"
)

// NFTKey produces the canonical identity of a token: the lower-cased
// contract address and the trimmed token id joined with a dash. Suitable for
// stable DB keys and "already used" checks.
func NFTKey(contractAddress, tokenID string) string {
	c := strings.ToLower(strings.TrimSpace(contractAddress))
	t := strings.TrimSpace(tokenID)
	if c == "" || t == "" {
		return ""
	}
	return c + "-" + t
}

// SkillKey is the cache key for generated skill text of a token in a grade.
// Different grades get differently scaled skills, so the grade is part of the key.
func SkillKey(contractAddress, tokenID, grade string) string {
	k := NFTKey(contractAddress, tokenID)
	if k == "" {
		return ""
	}
	g := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(grade), " ", "_"))
	return "skill:" + k + ":" + g
}

// Owner normalizes a wallet address for storage and comparisons.
func Owner(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
