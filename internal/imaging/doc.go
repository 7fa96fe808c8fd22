// Package imaging provides sonar frame I/O and visual outputs for the MCP
// server.
//
// This package loads raster files into sonar images, draws detected tags
// over a frame, crops around tags, renders family tags and converts pixel
// positions to physical sonar coordinates.
//
// # Coordinate System
//
// Sonar images are indexed by (row, col):
//   - Row: range bin, 0 is the far range (MaxRange)
//   - Col: azimuth bin, 0 is the +aperture/2 edge
//   - For regions, (Row1, Col1) is inclusive and (Row2, Col2) is exclusive
//
// When a sonar image is written as a PNG, rows become y and columns become
// x, so a pixel (r, c) appears at image coordinate (c, r).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. The remaining functions
// are stateless and never modify their input images.
//
// # Output Encoding
//
// Images returned to clients are PNG encoded and base64 wrapped, with the
// MIME type alongside, so they can be embedded directly in MCP responses.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates or regions outside the image
//   - Invalid sonar parameters or tag families
//   - File I/O and decoding errors during loading
package imaging
