package dto

// BufferedSnapshot holds an encoded frame before it is flushed to disk.
type BufferedSnapshot struct {
	Timestamp string
	SessionID string
	Label     string
	Data      []byte
}
