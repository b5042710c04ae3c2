// Package namegen produces short human-friendly names for entities
// created without one.
package namegen

import (
	_ "embed"
	"fmt"
	"math/rand"
	"strings"
)

//go:embed adjectives.txt
var adjectivesRaw string

//go:embed nouns.txt
var nounsRaw string

var (
	adjectives = fields(adjectivesRaw)
	nouns      = fields(nounsRaw)
)

func fields(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Generate returns a name like "swift-otter-4f21". The hex suffix keeps
// collisions unlikely without making names unreadable.
func Generate() string {
	return fmt.Sprintf("%s-%s-%04x",
		adjectives[rand.Intn(len(adjectives))],
		nouns[rand.Intn(len(nouns))],
		rand.Intn(0x10000),
	)
}
