// Package detection finds and decodes AcTag fiducials in binarized sonar
// images.
//
// Detection runs in three stages, each consuming the previous stage's
// output:
//
//  1. Contour extraction: trace the borders of connected regions and drop
//     those whose size or area cannot be a tag at their range.
//  2. Quad fitting: fit four lines to each contour with a RANSAC search and
//     keep the result when it is a convex, near-parallelogram quad.
//  3. Decoding: project the tag's data ring into the image, sample it and
//     match the bits against the family's codewords.
//
// # Coordinate System
//
// All positions are sonar.Point values in (row, column) order:
//   - Row 0 is the far range edge of the image
//   - Column 0 is the +aperture/2 azimuth edge
//   - Quads are clockwise in image coordinates
//
// # Tag Geometry
//
// A tag with B data bits is a grid of B/4+1 cells per side. The outer ring
// carries the data, the next ring is black and the inner square is white.
// Quad fitting locates the inner white square; the decoder extrapolates the
// data ring from it.
//
//	+---+---+---+---+---+---+---+
//	| d | d | d | d | d | d | d |
//	+---+---+---+---+---+---+---+
//	| d | b | b | b | b | b | d |
//	+---+---+---+---+---+---+---+
//	| d | b | w | w | w | b | d |
//	+---+---+---+---+---+---+---+
//	| d | b | w | w | w | b | d |   24 data bits, 7x7 cells
//	+---+---+---+---+---+---+---+
//	| d | b | w | w | w | b | d |
//	+---+---+---+---+---+---+---+
//	| d | b | b | b | b | b | d |
//	+---+---+---+---+---+---+---+
//	| d | d | d | d | d | d | d |
//	+---+---+---+---+---+---+---+
//
// # Reproducibility
//
// Fitting consumes random numbers only through a RandomSource, derived per
// contour from QuadOptions. Line parameters and the affine sampler are
// rounded to 8 decimal places, so identical inputs produce identical quads
// and tags regardless of how contours are scheduled.
//
// # Limitations
//
//   - Tags partially outside the image are never decoded
//   - The contour rules assume the tag faces the sonar; strongly oblique
//     tags may be rejected by the size or area checks
package detection
