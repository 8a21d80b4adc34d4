package recorder

// State models the capture lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
	StateUploading State = "uploading"
)
