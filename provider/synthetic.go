package provider

import (
	"hash/fnv"
	"math/rand/v2"
)

// Synthetic payloads must be pure functions of the keyword so reruns produce
// byte-identical artifacts. All randomness below is PCG seeded from an FNV
// hash of the slug plus a per-adapter salt.

// seededRand returns a deterministic generator for a slug and salt.
func seededRand(slug, salt string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(slug))
	h.Write([]byte{0})
	h.Write([]byte(salt))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed))
}

// between returns a deterministic integer in [lo, hi].
func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}

// pick returns a deterministic element of items.
func pick(r *rand.Rand, items []string) string {
	return items[r.IntN(len(items))]
}

// syntheticDomains are the competitor domains synthetic SERP entries cite.
var syntheticDomains = []string{
	"example.com",
	"contenthub.example.net",
	"nicheguides.example.org",
	"reviewcentral.example.com",
	"howtodaily.example.net",
	"expertpicks.example.org",
	"thecompendium.example.com",
	"fieldnotes.example.net",
}

// questionTemplates shape synthetic People-Also-Ask entries. %s is the
// raw keyword.
var questionTemplates = []string{
	"What is %s?",
	"How does %s work?",
	"How much does %s cost?",
	"Is %s worth it?",
	"What are the best alternatives to %s?",
	"How do I get started with %s?",
	"What should I avoid with %s?",
	"How long does %s take?",
}

// subtopicTemplates shape synthetic research subtopics. %s is the raw keyword.
var subtopicTemplates = []string{
	"%s basics",
	"%s for beginners",
	"common %s mistakes",
	"%s tools and equipment",
	"%s maintenance",
	"advanced %s techniques",
	"%s cost breakdown",
	"%s trends",
}
