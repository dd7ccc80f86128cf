package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileGrid(t *testing.T) {
	tests := []struct {
		n          int
		rows, cols int
	}{
		{0, 1, 1},
		{1, 1, 1},
		{2, 1, 2},
		{3, 1, 3},
		{4, 2, 2},
		{5, 2, 3},
		{6, 2, 3},
		{7, 2, 4},
		{8, 2, 4},
		{9, 3, 4},
		{13, 4, 4},
	}
	for _, tt := range tests {
		rows, cols := TileGrid(tt.n)
		assert.Equal(t, tt.rows, rows, "rows for %d", tt.n)
		assert.Equal(t, tt.cols, cols, "cols for %d", tt.n)
		assert.GreaterOrEqual(t, rows*cols, tt.n)
	}
}

func TestTileCell(t *testing.T) {
	row, col := TileCell(5, 3)
	assert.Equal(t, 1, row)
	assert.Equal(t, 2, col)

	row, col = TileCell(2, 0)
	assert.Equal(t, 2, row)
	assert.Equal(t, 0, col)
}
