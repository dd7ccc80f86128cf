// Package imagesource turns the two ways a user can pick an image (a local
// file or an entry of the captured gallery) into one submittable payload.
package imagesource

// Source is either Local or Remote.
type Source interface {
	Name() string
	isSource()
}

// Local is an image the user picked from disk.
type Local struct {
	Bytes    []byte
	Filename string
	MimeType string
}

// Remote is a gallery image identified by a server URL.
type Remote struct {
	URL      string
	Filename string
}

func (l Local) Name() string  { return l.Filename }
func (r Remote) Name() string { return r.Filename }

func (Local) isSource()  {}
func (Remote) isSource() {}

// Payload is the canonical form handed to the analysis pipeline.
type Payload struct {
	Data     []byte
	Filename string
	MimeType string
}
