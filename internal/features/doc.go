// Package features holds the vocabulary shared by every stage of the benchmark:
// keypoints, descriptor matrices, matches, grayscale rasters, and the closed sets
// of detector and descriptor algorithms.
//
// # Coordinate System
//
// Keypoint positions are sub-pixel image coordinates with (0,0) at the top-left
// corner, X increasing rightward and Y increasing downward. Regions are
// half-open: a point is inside when X is in [X, X+Width) and Y is in [Y, Y+Height).
//
// # Capabilities
//
// The actual algorithms live behind three small interfaces (Detector, Extractor
// and, in the matching package, Engine) that a Backend hands out per algorithm
// kind. Selecting a kind that the backend does not know returns one of the
// ErrUnknown* sentinel errors instead of exiting the process.
package features
