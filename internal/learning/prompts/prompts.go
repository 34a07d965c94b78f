package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

type Prompt struct {
	Name        string
	Version     int
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Fingerprint identifies the exact rendered prompt in logs.
func (p Prompt) Fingerprint() string {
	h := sha256.Sum256([]byte(
		strings.TrimSpace(p.Name) + "|" +
			strconv.Itoa(p.Version) + "|" +
			strings.TrimSpace(p.System) + "|" +
			strings.TrimSpace(p.User),
	))
	return hex.EncodeToString(h[:])
}

