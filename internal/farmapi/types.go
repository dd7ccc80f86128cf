package farmapi

import "time"

// TimestampLayout is the layout the backend uses for gallery and sensor times.
const TimestampLayout = "2006-01-02 15:04:05"

// Device names accepted by the trigger endpoints.
const (
	DeviceCamera = "cam"
	DeviceSensor = "esp32"
)

// Prediction is a successful inference answer.
type Prediction struct {
	ClassIndex int
	Code       string
	Name       string
	Confidence float64
}

// Upload is one entry of the captured image gallery.
type Upload struct {
	URL          string
	Filename     string
	CapturedAt   time.Time
	RawTimestamp string
}

// SensorSnapshot is the latest environmental reading. Readings are nil until
// the device has reported at least once.
type SensorSnapshot struct {
	Temperature  *float64
	Humidity     *float64
	SoilMoisture *float64
	WaterLevel   *float64
	Timestamp    string

	// Extra keeps fields this client has no typed slot for.
	Extra map[string]any
}

// TriggerAck is the trigger endpoint's answer.
type TriggerAck struct {
	Device  string
	Status  string
	Message string
}

func (a *TriggerAck) OK() bool {
	return a != nil && a.Status == "ok"
}

// Image is a raw image body with the content type the server reported.
type Image struct {
	Data        []byte
	ContentType string
}

type predictResponse struct {
	OK          *bool    `json:"ok"`
	Error       string   `json:"error"`
	ClassIndex  *int     `json:"class_idx"`
	DiseaseCode *string  `json:"disease_code"`
	DiseaseName *string  `json:"disease_name"`
	Confidence  *float64 `json:"confidence"`
}

type uploadsResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Uploads []struct {
		URL       string `json:"url"`
		Filename  string `json:"filename"`
		Timestamp string `json:"timestamp"`
	} `json:"uploads"`
}

type triggerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}
