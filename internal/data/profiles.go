package data

import (
	"encoding/json"
	"fmt"
	"os"

	"illuminator/internal/model"
)

// ProfileFile matches the JSON shape of a forecast profile:
//
//	{
//	  "data": [
//	    {"slot": "2012-01-01 00:00:00", "value": 7.5},
//	    ...
//	  ]
//	}
type ProfileFile struct {
	Data []ProfilePoint `json:"data"`
}

type ProfilePoint struct {
	Slot  string  `json:"slot"`
	Value float64 `json:"value"`
}

// LoadProfileJSON reads a forecast profile into a slot-indexed series.
func LoadProfileJSON(path string) (model.Series, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf ProfileFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, err
	}
	out := model.NewSeries()
	for _, p := range pf.Data {
		slot, err := model.ParseSlot(p.Slot)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out.Set(slot, p.Value)
	}
	return out, nil
}

// SeriesFromMap converts an inline slot->value profile.
func SeriesFromMap(m map[string]float64) (model.Series, error) {
	out := model.NewSeries()
	for k, v := range m {
		slot, err := model.ParseSlot(k)
		if err != nil {
			return nil, err
		}
		out.Set(slot, v)
	}
	return out, nil
}
