// Package sonar holds the data types shared by every stage of AcTag
// detection: intensity and binary images in range-azimuth layout, the sonar
// geometry that maps pixels to physical coordinates, and tag family metadata.
//
// # Image Layout
//
// Images are row-major 8-bit grids:
//   - Row 0 is the maximum range, the last row is the minimum range
//   - Column 0 is +aperture/2 azimuth, the last column is -aperture/2
//   - Pixel positions are Point{Row, Col}
//
// Edge handling for neighbourhood operations replicates border pixels
// (see Image.Clamped).
package sonar
