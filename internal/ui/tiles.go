package ui

import (
	"fmt"
	"sort"
	"strconv"

	"smartfarm-dashboard-go/internal/farmapi"
)

const missingReading = "--"

// tile is one sensor reading as shown on the status page.
type tile struct {
	Key   string
	Title string
	Value string
}

// sensorTiles lists the fixed readings first, then any extra fields the
// device reported in key order. A nil snapshot shows placeholders.
func sensorTiles(snap *farmapi.SensorSnapshot) []tile {
	if snap == nil {
		snap = &farmapi.SensorSnapshot{}
	}
	tiles := []tile{
		{Key: "temperature", Title: "Temperature", Value: reading(snap.Temperature, "°C")},
		{Key: "humidity", Title: "Air humidity", Value: reading(snap.Humidity, "%")},
		{Key: "soil_moisture", Title: "Soil moisture", Value: reading(snap.SoilMoisture, "%")},
		{Key: "water_level", Title: "Water tank", Value: reading(snap.WaterLevel, "%")},
	}

	keys := make([]string, 0, len(snap.Extra))
	for k := range snap.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tiles = append(tiles, tile{Key: k, Title: k, Value: extraValue(snap.Extra[k])})
	}
	return tiles
}

func reading(v *float64, unit string) string {
	if v == nil {
		return missingReading + " " + unit
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + " " + unit
}

func extraValue(v any) string {
	switch x := v.(type) {
	case nil:
		return missingReading
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// galleryLabel is one row of the gallery list.
func galleryLabel(u farmapi.Upload) string {
	if u.CapturedAt.IsZero() {
		if u.RawTimestamp != "" {
			return u.Filename + "  " + u.RawTimestamp
		}
		return u.Filename
	}
	return u.Filename + "  " + u.CapturedAt.Format(farmapi.TimestampLayout)
}
