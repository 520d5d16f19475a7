package models

import "strings"

// knownModelsDB is a static table of known printer/copier models per
// manufacturer and series, used to validate exact-match candidates and to
// filter numeric placeholder expansion down to models that actually exist.
var knownModelsDB = map[string]map[string][]string{
	"konica_minolta": {
		"i-series": {"C450i", "C451i", "C550i", "C551i", "C650i", "C651i", "C750i", "C751i"},
		"c-series": {"C450", "C550", "C650", "C750", "C850", "C950"},
		"bizhub":   {"bizhub C450", "bizhub C550", "bizhub C650", "bizhub C750"},
	},
	"hp": {
		"laserjet_pro": {"HP LaserJet Pro 400", "HP LaserJet Pro 500", "HP LaserJet Pro 600"},
		"laserjet":     {"HP 400", "HP 500", "HP 600"},
		"deskjet_2000": {"DeskJet 2130", "DeskJet 2132", "DeskJet 2134"},
	},
	"lexmark": {
		"cs_series": {"Lexmark CS725", "Lexmark CS820", "Lexmark CS925"},
	},
}

// knownModelsFor flattens the table for one manufacturer, or all
// manufacturers if manufacturer is unknown/empty, into a lookup set.
func knownModelsFor(manufacturer string) map[string]bool {
	out := map[string]bool{}
	add := func(series map[string][]string) {
		for _, models := range series {
			for _, m := range models {
				out[strings.ToUpper(m)] = true
			}
		}
	}
	if series, ok := knownModelsDB[manufacturer]; ok {
		add(series)
		return out
	}
	for _, series := range knownModelsDB {
		add(series)
	}
	return out
}

func knownSeriesModels(manufacturer string) map[string][]string {
	if series, ok := knownModelsDB[manufacturer]; ok {
		return series
	}
	merged := map[string][]string{}
	for _, series := range knownModelsDB {
		for name, models := range series {
			merged[name] = append(merged[name], models...)
		}
	}
	return merged
}
