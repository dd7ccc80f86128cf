package helpers

// =============================================================================
// Status Tile Grid
// =============================================================================
// Lays out N sensor tiles on a landscape window. Small counts get hand-picked
// layouts; larger ones fill rows of at most MaxTileCols.
// =============================================================================

// MaxTileCols caps the tile grid width.
const MaxTileCols = 4

// TileGrid returns (rows, cols) for n tiles. n <= 0 still yields a 1x1 grid
// so the empty-state placeholder has a cell.
func TileGrid(n int) (rows, cols int) {
	switch {
	case n <= 1:
		return 1, 1
	case n <= 3:
		return 1, n
	case n == 4:
		return 2, 2
	case n <= 6:
		return 2, 3
	default:
		cols = MaxTileCols
		rows = (n + cols - 1) / cols
		return rows, cols
	}
}

// TileCell returns the (row, col) of tile i in a grid with cols columns.
func TileCell(i, cols int) (row, col int) {
	if cols < 1 {
		cols = 1
	}
	return i / cols, i % cols
}
