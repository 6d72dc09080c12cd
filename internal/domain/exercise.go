package domain

// Exercise is the catalog entry a session is recorded against.
// PointsPerRep of zero means the catalog has no explicit value and the
// points calculator falls back to its per-family default.
type Exercise struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	PointsPerRep int    `json:"points_per_rep" yaml:"points_per_rep"`
}
