package models

import "time"

// Cover is a cached, downscaled cover image.
//
// Key has the form {provenance}_{filename}. Data is always JPEG.
type Cover struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"-"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
