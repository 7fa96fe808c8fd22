// Package render draws AcTags into sonar images.
//
// It produces printable tag rasters and synthetic scenes with known ground
// truth: a tag placed with a Placement can be drawn at any rotation or
// mirrored, and InnerCorners reports where its inner white square ended up.
package render
