package models

// DiscoveryResult summarizes one discovery run.
type DiscoveryResult struct {
	ProjectID string             `json:"project_id"`
	Total     int                `json:"total"`
	ByKind    map[ObjectKind]int `json:"by_kind"`
	Duration  string             `json:"duration"`
}
