package game

// Grade is the player tier derived from their leaderboard rank. Higher grades
// boost generated card stats.
type Grade string

const (
	GradeS        Grade = "S-Rank"
	GradeA        Grade = "A-Rank"
	GradeB        Grade = "B-Rank"
	GradeC        Grade = "C-Rank"
	GradeD        Grade = "D-Rank"
	GradeUngraded Grade = "Ungraded"
)

// Grades lists every grade from strongest to weakest.
var Grades = []Grade{GradeS, GradeA, GradeB, GradeC, GradeD, GradeUngraded}

// Valid reports whether g is one of the known grades.
func (g Grade) Valid() bool {
	for _, k := range Grades {
		if g == k {
			return true
		}
	}
	return false
}
