package view

import (
	"time"

	"smartfarm-dashboard-go/internal/farmapi"
	"smartfarm-dashboard-go/internal/imagesource"
	"smartfarm-dashboard-go/internal/preview"
)

type Tab int

const (
	TabUpload Tab = iota
	TabGallery
)

func (t Tab) String() string {
	if t == TabGallery {
		return "gallery"
	}
	return "upload"
}

type ResultStatus int

const (
	ResultNone ResultStatus = iota
	ResultPending
	ResultSuccess
	ResultFailure
)

func (s ResultStatus) String() string {
	switch s {
	case ResultPending:
		return "pending"
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	default:
		return "none"
	}
}

// Result is what the result area shows. Text is empty for None and Pending.
type Result struct {
	Status ResultStatus
	Text   string
}

// State is an immutable copy of the dashboard. Slices and pointers in it
// must be treated as read-only.
type State struct {
	Mounted bool
	Tab     Tab
	Result  Result
	Loading bool

	// Source is the image the next analysis submits, nil when none is chosen.
	Source  imagesource.Source
	Preview *preview.Handle

	Gallery      []farmapi.Upload
	GalleryError string

	Sensor        *farmapi.SensorSnapshot
	SensorUpdated time.Time

	ServerOnline bool

	// Notice is an alert-level message such as a failed device trigger.
	Notice string
}
