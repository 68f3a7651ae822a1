package dto

// FrameMessage is what viewers receive for every displayed frame.
type FrameMessage struct {
	Label string `json:"label"`
	Image string `json:"image"` // base64 JPEG
}
