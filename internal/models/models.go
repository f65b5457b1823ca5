package models

import "time"

// Color is a quantized hex color such as "#1a2b3c" or "#123".
type Color = string

// Frame is one sampled grid of colors in row-major order
type Frame []Color

// Geometry describes how a frame is laid out as shadows
type Geometry struct {
	BlockSize     int     `json:"block_size"`
	Pitch         float64 `json:"pitch"`
	RowWidth      int     `json:"row_width"`
	Displacement  int     `json:"displacement"`
	Blur          int     `json:"blur"`
	ContainerSize int     `json:"container_size"`
}

// Capture is a finished recording session together with its compiled stylesheet
type Capture struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Geometry  Geometry  `json:"geometry"`
	Frames    []Frame   `json:"frames"`
	CSS       string    `json:"css"`
	CreatedAt time.Time `json:"created_at"`
}

// CaptureSummary is the listing view of a stored capture
type CaptureSummary struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FrameCount int       `json:"frame_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// FrameSearchResult is a frame matched by color signature
type FrameSearchResult struct {
	CaptureID   int64   `json:"capture_id"`
	FrameNumber int     `json:"frame_number"`
	Similarity  float64 `json:"similarity"`
}
