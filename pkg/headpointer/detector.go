// Package headpointer turns a webcam into a pointing device: a face
// detector locates the user's head in each frame and a mapper converts
// head displacement into gaze-equivalent surface coordinates.
package headpointer

// Face is a detected face in normalized frame coordinates.
type Face struct {
	X, Y       float64 // Top-left corner (0-1)
	W, H       float64 // Width and height (0-1)
	Confidence float64 // Detector score (0-1)
}

// Center returns the center point of the box.
func (f Face) Center() (x, y float64) {
	return f.X + f.W/2, f.Y + f.H/2
}

// Area returns the area of the box.
func (f Face) Area() float64 {
	return f.W * f.H
}

// Detector finds faces in an encoded frame.
type Detector interface {
	Detect(jpeg []byte) ([]Face, error)
	Close() error
}

// DetectorConfig holds face detector parameters.
type DetectorConfig struct {
	ModelPath        string  // Path to the ONNX model
	ConfidenceThresh float64 // Minimum face score
	InputWidth       int     // Initial model input width
	InputHeight      int     // Initial model input height
}

// DefaultDetectorConfig returns YuNet defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// SelectBest picks the face to follow: confidence*0.7 + relative area*0.3.
// The closest, clearest face wins when several users are in frame.
func SelectBest(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}
	if len(faces) == 1 {
		return &faces[0]
	}

	maxArea := 0.0
	for _, f := range faces {
		if f.Area() > maxArea {
			maxArea = f.Area()
		}
	}

	bestScore := -1.0
	var best *Face
	for i := range faces {
		rel := 0.0
		if maxArea > 0 {
			rel = faces[i].Area() / maxArea
		}
		score := faces[i].Confidence*0.7 + rel*0.3
		if score > bestScore {
			bestScore = score
			best = &faces[i]
		}
	}
	return best
}
