package model

// PolarPoint is one sailing sample for polar performance diagrams.
// Each field is nil when its inputs were not recorded.
type PolarPoint struct {
	TWA *float64 `json:"twa"`
	STW *float64 `json:"stw"`
	SOG *float64 `json:"sog"`
	TWS *float64 `json:"tws"`
	AWS *float64 `json:"aws"`
}

// PolarDataset is the exported polar point collection.
type PolarDataset struct {
	Points []PolarPoint `json:"points"`
}
