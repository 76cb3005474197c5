package enums

// Rating is the letter band assigned to a performance score.
type Rating string

const (
	RatingAPlus Rating = "A+"
	RatingA     Rating = "A"
	RatingB     Rating = "B"
	RatingC     Rating = "C"
	RatingD     Rating = "D"
)

// Severity is the presentation tag paired with a rating.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityLime    Severity = "lime"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// RatingBand maps an inclusive lower score bound onto a rating.
type RatingBand struct {
	MinScore float64
	Rating   Rating
	Severity Severity
	Comment  string
}

var ratingBands = []RatingBand{
	{MinScore: 90, Rating: RatingAPlus, Severity: SeveritySuccess, Comment: "Exceptional performance"},
	{MinScore: 75, Rating: RatingA, Severity: SeverityLime, Comment: "Excellent work"},
	{MinScore: 60, Rating: RatingB, Severity: SeverityWarning, Comment: "Good performance"},
	{MinScore: 40, Rating: RatingC, Severity: SeverityWarning, Comment: "Needs improvement"},
	{MinScore: 0, Rating: RatingD, Severity: SeverityDanger, Comment: "Requires attention"},
}

// BandFor returns the first band whose lower bound the score reaches.
func BandFor(score float64) RatingBand {
	for _, band := range ratingBands {
		if score >= band.MinScore {
			return band
		}
	}
	return ratingBands[len(ratingBands)-1]
}
