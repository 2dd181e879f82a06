package messages

// YieldRecord is the model output for one cutting date.
type YieldRecord struct {
	Date  string  `json:"date"`  // YYYY-MM-DD of the cut
	Yield float64 `json:"yield"` // model B1 estimate, passed through unclamped
	CN    int     `json:"CN"`    // cut number within the season, from 1
}
