package preview

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SetPreview(t *testing.T) {
	t.Run("Should keep at most one live handle per slot", func(t *testing.T) {
		m := NewManager()
		var handles []*Handle
		for i := 0; i < 10; i++ {
			handles = append(handles, m.SetPreview(SlotUpload, []byte{byte(i)}, fmt.Sprintf("%d.jpg", i), "image/jpeg"))
			assert.Equal(t, 1, m.Live())
		}

		for _, h := range handles[:9] {
			assert.True(t, h.Released())
			_, err := h.Bytes()
			assert.ErrorIs(t, err, ErrReleased)
		}
		last := handles[9]
		assert.Same(t, last, m.Current(SlotUpload))
		data, err := last.Bytes()
		require.NoError(t, err)
		assert.Equal(t, []byte{9}, data)
	})

	t.Run("Should release the previous handle before returning", func(t *testing.T) {
		m := NewManager()
		first := m.SetPreview(SlotUpload, []byte("a"), "a.jpg", "image/jpeg")
		second := m.SetPreview(SlotUpload, []byte("b"), "b.jpg", "image/jpeg")
		assert.True(t, first.Released())
		assert.False(t, second.Released())
		assert.Equal(t, Stats{Created: 2, Released: 1}, m.Stats())
	})

	t.Run("Should keep slots independent", func(t *testing.T) {
		m := NewManager()
		up := m.SetPreview(SlotUpload, []byte("a"), "a.jpg", "image/jpeg")
		cam := m.SetPreview(SlotCamera, []byte("b"), "b.jpg", "image/jpeg")
		assert.False(t, up.Released())
		assert.False(t, cam.Released())
		assert.Equal(t, 2, m.Live())
	})

	t.Run("Should give every handle a distinct blob URL", func(t *testing.T) {
		m := NewManager()
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			u := m.SetPreview(SlotUpload, nil, "x", "").URL()
			assert.True(t, strings.HasPrefix(u, "blob:"))
			assert.False(t, seen[u])
			seen[u] = true
		}
	})
}

func TestManager_Release(t *testing.T) {
	t.Run("Should treat a double release as a no-op", func(t *testing.T) {
		m := NewManager()
		h := m.SetPreview(SlotUpload, []byte("a"), "a.jpg", "image/jpeg")
		m.Release(h)
		m.Release(h)
		m.Release(nil)
		assert.Nil(t, m.Current(SlotUpload))
		assert.Equal(t, Stats{Created: 1, Released: 1}, m.Stats())
	})

	t.Run("Should not clear a newer handle when releasing an old one", func(t *testing.T) {
		m := NewManager()
		old := m.SetPreview(SlotUpload, []byte("a"), "a.jpg", "image/jpeg")
		fresh := m.SetPreview(SlotUpload, []byte("b"), "b.jpg", "image/jpeg")
		m.Release(old)
		assert.Same(t, fresh, m.Current(SlotUpload))
	})

	t.Run("Should clear a slot", func(t *testing.T) {
		m := NewManager()
		h := m.SetPreview(SlotCamera, []byte("a"), "a.jpg", "image/jpeg")
		m.Clear(SlotCamera)
		m.Clear(SlotCamera)
		assert.True(t, h.Released())
		assert.Zero(t, m.Live())
	})
}

func TestManager_ReleaseAll(t *testing.T) {
	t.Run("Should leave nothing alive after teardown", func(t *testing.T) {
		m := NewManager()
		for i := 0; i < 5; i++ {
			m.SetPreview(SlotUpload, []byte("a"), "a.jpg", "image/jpeg")
			m.SetPreview(SlotCamera, []byte("b"), "b.jpg", "image/jpeg")
		}
		loose := m.Create([]byte("c"), "c.jpg", "image/jpeg")

		m.ReleaseAll()

		assert.Zero(t, m.Live())
		assert.True(t, loose.Released())
		assert.Nil(t, m.Current(SlotUpload))
		assert.Nil(t, m.Current(SlotCamera))
		s := m.Stats()
		assert.Equal(t, s.Created, s.Released)
	})

	t.Run("Should stay consistent under concurrent replacement", func(t *testing.T) {
		m := NewManager()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				slot := SlotUpload
				if i%2 == 0 {
					slot = SlotCamera
				}
				m.SetPreview(slot, []byte{byte(i)}, "x.jpg", "image/jpeg")
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 2, m.Live())
		m.ReleaseAll()
		assert.Zero(t, m.Live())
	})
}
