package engine

// CriticalCells returns the cells of player that overflow on the next marker
func CriticalCells(g *Grid, player Player) []Coord {
	var critical []Coord
	for c, cell := range g.All() {
		if cell.Owner == player && cell.Stock == Capacity-1 {
			critical = append(critical, c)
		}
	}
	return critical
}

// DegreeCounts returns how many cells have each neighbour count
func DegreeCounts(g *Grid) map[int]int {
	counts := make(map[int]int)
	for c := range g.All() {
		counts[g.Degree(c)]++
	}
	return counts
}

// TotalStock sums the markers on the board
func TotalStock(g *Grid) int {
	total := 0
	for _, cell := range g.cells {
		total += cell.Stock
	}
	return total
}

// NewSaturatedGrid returns a grid where player owns every cell one marker
// short of overflowing. Any move on it sets off a full-board cascade.
func NewSaturatedGrid(rows, cols int, player Player) (*Grid, error) {
	g, err := NewGrid(rows, cols)
	if err != nil {
		return nil, err
	}
	for c := range g.All() {
		g.setCell(c, Capacity-1, player)
	}
	return g, nil
}
