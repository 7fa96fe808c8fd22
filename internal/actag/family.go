package actag

import "github.com/ironsheep/sonartag/internal/sonar"

// DemoFamily returns a two-tag 24-bit family with minimum Hamming distance 6
// over all rotations and mirrorings. It is meant for trying the detector and
// for synthetic scenes; deployments configure the family their tags were
// generated from.
func DemoFamily() sonar.TagFamily {
	return sonar.TagFamily{
		Name:               "demo24h6",
		DataBits:           24,
		MinHammingDistance: 6,
		TagSize:            0.13,
		Codewords:          []uint64{0x2a8a49, 0x90a210},
	}
}
