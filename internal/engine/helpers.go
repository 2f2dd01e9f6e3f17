package engine

// TotalHP sums the current hit points of a roster.
func TotalHP(cards []BattleCard) int {
	total := 0
	for _, c := range cards {
		total += c.CurrentHP
	}
	return total
}

func aliveCount(cards []BattleCard) int {
	n := 0
	for _, c := range cards {
		if c.Alive() {
			n++
		}
	}
	return n
}

// findCard returns the roster index of the card with the given id, or -1.
func findCard(cards []BattleCard, id string) int {
	for i := range cards {
		if cards[i].ID == id {
			return i
		}
	}
	return -1
}
