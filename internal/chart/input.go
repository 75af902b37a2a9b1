package chart

// DefaultName is stored when a submission carries no name.
const DefaultName = "no name provided"

// Input is a fully validated chart submission. Instances are produced only
// by Validate: every required field is present and in range.
type Input struct {
	// BirthDate in YYYY-MM-DD form.
	BirthDate string `json:"date"`

	// BirthTime in HH:MM:SS form, second precision.
	BirthTime string `json:"time"`

	// Latitude in degrees, [-90, 90].
	Latitude float64 `json:"lat"`

	// Longitude in degrees, [-180, 180].
	Longitude float64 `json:"lng"`

	// Name is the trimmed submitted name, or DefaultName when absent.
	Name string `json:"name"`
}
