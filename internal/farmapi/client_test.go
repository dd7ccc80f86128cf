package farmapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartfarm-dashboard-go/internal/farmerr"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Options{BaseURL: server.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNew(t *testing.T) {
	t.Run("Should default the base URL", func(t *testing.T) {
		c, err := New(Options{})
		require.NoError(t, err)
		assert.Equal(t, DefaultBaseURL, c.BaseURL())
	})

	t.Run("Should reject a non-http scheme", func(t *testing.T) {
		_, err := New(Options{BaseURL: "ftp://farm.local"})
		assert.Error(t, err)
	})

	t.Run("Should trim a trailing slash", func(t *testing.T) {
		c, err := New(Options{BaseURL: "http://farm.local:15020/"})
		require.NoError(t, err)
		assert.Equal(t, "http://farm.local:15020/uploads/a.jpg", c.ResolveURL("/uploads/a.jpg"))
		assert.Equal(t, "http://farm.local:15020/uploads/a.jpg", c.ResolveURL("uploads/a.jpg"))
		assert.Equal(t, "http://cdn.example/a.jpg", c.ResolveURL("http://cdn.example/a.jpg"))
	})
}

func TestClient_Predict(t *testing.T) {
	t.Run("Should send one multipart file field and decode the prediction", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/predict", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.Equal(t, "leaf.jpg", header.Filename)
			assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
			assert.Equal(t, []byte("jpeg-bytes"), data)
			writeJSON(w, http.StatusOK,
				`{"ok":true,"class_idx":3,"disease_code":"DM01","disease_name":"Downy Mildew","confidence":0.9234}`)
		}))

		p, err := client.Predict(context.Background(), "leaf.jpg", "image/jpeg", []byte("jpeg-bytes"))
		require.NoError(t, err)
		assert.Equal(t, &Prediction{ClassIndex: 3, Code: "DM01", Name: "Downy Mildew", Confidence: 0.9234}, p)
	})

	t.Run("Should carry the server error on rejection", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, `{"ok":false,"error":"bad filename/ext"}`)
		}))

		_, err := client.Predict(context.Background(), "leaf.txt", "", []byte("x"))
		require.Error(t, err)
		assert.True(t, farmerr.IsKind(err, farmerr.KindServerRejected))
		assert.Equal(t, "bad filename/ext", farmerr.UserMessage(err, "analysis failed"))
	})

	t.Run("Should treat ok false with 200 as a rejection", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ok":false}`)
		}))

		_, err := client.Predict(context.Background(), "leaf.jpg", "image/jpeg", []byte("x"))
		assert.True(t, farmerr.IsKind(err, farmerr.KindServerRejected))
		assert.Equal(t, "analysis failed", farmerr.UserMessage(err, "analysis failed"))
	})

	t.Run("Should flag an incomplete prediction as malformed", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ok":true,"disease_name":"Downy Mildew"}`)
		}))

		_, err := client.Predict(context.Background(), "leaf.jpg", "image/jpeg", []byte("x"))
		assert.True(t, farmerr.IsKind(err, farmerr.KindMalformedResponse))
	})

	t.Run("Should flag a non-JSON success body as malformed", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, "<html>oops</html>")
		}))

		_, err := client.Predict(context.Background(), "leaf.jpg", "image/jpeg", []byte("x"))
		assert.True(t, farmerr.IsKind(err, farmerr.KindMalformedResponse))
	})

	t.Run("Should report transport failures", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()
		client, err := New(Options{BaseURL: server.URL, Timeout: time.Second})
		require.NoError(t, err)

		_, err = client.Predict(context.Background(), "leaf.jpg", "image/jpeg", []byte("x"))
		assert.True(t, farmerr.IsKind(err, farmerr.KindTransport))
	})
}

func TestClient_ListUploads(t *testing.T) {
	t.Run("Should keep server order and parse timestamps", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/uploads", r.URL.Path)
			writeJSON(w, http.StatusOK, `{"ok":true,"uploads":[
				{"url":"/uploads/b.jpg","filename":"b.jpg","timestamp":"2024-06-02 10:00:00"},
				{"url":"/uploads/a.jpg","filename":"a.jpg","timestamp":"not a time"}
			]}`)
		}))

		uploads, err := client.ListUploads(context.Background())
		require.NoError(t, err)
		require.Len(t, uploads, 2)
		assert.Equal(t, "b.jpg", uploads[0].Filename)
		assert.Equal(t, "/uploads/b.jpg", uploads[0].URL)
		assert.Equal(t, time.Date(2024, 6, 2, 10, 0, 0, 0, time.Local), uploads[0].CapturedAt)
		assert.True(t, uploads[1].CapturedAt.IsZero())
		assert.Equal(t, "not a time", uploads[1].RawTimestamp)
	})

	t.Run("Should reject ok false", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ok":false}`)
		}))

		_, err := client.ListUploads(context.Background())
		assert.True(t, farmerr.IsKind(err, farmerr.KindServerRejected))
	})
}

func TestClient_LatestSensor(t *testing.T) {
	t.Run("Should decode readings and keep unknown fields", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ok":true,"data":{"temperature":23.5,"humidity":61,
				"soil_moisture":null,"water_level":12.25,"timestamp":"2024-06-02 10:00:00","light":880}}`)
		}))

		snap, err := client.LatestSensor(context.Background())
		require.NoError(t, err)
		require.NotNil(t, snap.Temperature)
		assert.InDelta(t, 23.5, *snap.Temperature, 1e-9)
		require.NotNil(t, snap.Humidity)
		assert.InDelta(t, 61.0, *snap.Humidity, 1e-9)
		assert.Nil(t, snap.SoilMoisture)
		require.NotNil(t, snap.WaterLevel)
		assert.Equal(t, "2024-06-02 10:00:00", snap.Timestamp)
		assert.Equal(t, map[string]any{"light": float64(880)}, snap.Extra)
	})

	t.Run("Should flag a missing data object as malformed", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ok":true,"data":[]}`)
		}))

		_, err := client.LatestSensor(context.Background())
		assert.True(t, farmerr.IsKind(err, farmerr.KindMalformedResponse))
	})

	t.Run("Should reject ok false", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"ok":false,"error":"db locked"}`)
		}))

		_, err := client.LatestSensor(context.Background())
		assert.True(t, farmerr.IsKind(err, farmerr.KindServerRejected))
	})
}

func TestClient_Trigger(t *testing.T) {
	t.Run("Should hit the device path and return the ack", func(t *testing.T) {
		var path atomic.Value
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path.Store(r.URL.Path)
			writeJSON(w, http.StatusOK, `{"status":"ok","message":"queued"}`)
		}))

		ack, err := client.Trigger(context.Background(), DeviceSensor)
		require.NoError(t, err)
		assert.Equal(t, "/trigger/esp32", path.Load())
		assert.True(t, ack.OK())
		assert.Equal(t, "queued", ack.Message)
	})

	t.Run("Should reject a non-ok status", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"status":"busy"}`)
		}))

		ack, err := client.Trigger(context.Background(), DeviceCamera)
		assert.True(t, farmerr.IsKind(err, farmerr.KindServerRejected))
		require.NotNil(t, ack)
		assert.Equal(t, "busy", ack.Status)
	})

	t.Run("Should refuse unknown devices without a request", func(t *testing.T) {
		var hits atomic.Int32
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
		}))

		_, err := client.Trigger(context.Background(), "drone")
		assert.True(t, farmerr.IsKind(err, farmerr.KindUserInputMissing))
		assert.Zero(t, hits.Load())
	})
}

func TestClient_FetchImage(t *testing.T) {
	t.Run("Should resolve relative references against the base URL", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/uploads/a.jpg", r.URL.Path)
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
		}))

		img, err := client.FetchImage(context.Background(), "/uploads/a.jpg")
		require.NoError(t, err)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, img.Data)
		assert.Equal(t, "image/jpeg", img.ContentType)
	})

	t.Run("Should reject a missing image", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"error":"no image"}`)
		}))

		_, err := client.LatestImage(context.Background())
		assert.True(t, farmerr.IsKind(err, farmerr.KindServerRejected))
	})
}

func TestClient_Health(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	}))
	assert.NoError(t, client.Health(context.Background()))
}
