package sales

import (
	"fmt"
	"strings"
)

// AllRegions is the label of the country-wide option; it is sent to the
// API as an empty region.
const AllRegions = "Brasil"

const (
	MinYear = 2020
	MaxYear = 2023
)

var Regions = []string{AllRegions, "Centro-Oeste", "Nordeste", "Norte", "Sudeste", "Sul"}

var stateRegions = map[string]string{
	"AC": "Norte", "AP": "Norte", "AM": "Norte", "PA": "Norte", "RO": "Norte", "RR": "Norte", "TO": "Norte",
	"AL": "Nordeste", "BA": "Nordeste", "CE": "Nordeste", "MA": "Nordeste", "PB": "Nordeste",
	"PE": "Nordeste", "PI": "Nordeste", "RN": "Nordeste", "SE": "Nordeste",
	"DF": "Centro-Oeste", "GO": "Centro-Oeste", "MT": "Centro-Oeste", "MS": "Centro-Oeste",
	"ES": "Sudeste", "MG": "Sudeste", "RJ": "Sudeste", "SP": "Sudeste",
	"PR": "Sul", "RS": "Sul", "SC": "Sul",
}

var stateNames = map[string]string{
	"acre": "AC", "amapá": "AP", "amazonas": "AM", "pará": "PA", "rondônia": "RO", "roraima": "RR",
	"tocantins": "TO", "alagoas": "AL", "bahia": "BA", "ceará": "CE", "maranhão": "MA",
	"paraíba": "PB", "pernambuco": "PE", "piauí": "PI", "rio grande do norte": "RN",
	"sergipe": "SE", "distrito federal": "DF", "goiás": "GO", "mato grosso": "MT",
	"mato grosso do sul": "MS", "espírito santo": "ES", "minas gerais": "MG",
	"rio de janeiro": "RJ", "são paulo": "SP", "paraná": "PR", "rio grande do sul": "RS",
	"santa catarina": "SC",
}

// NormalizeRegion maps user input to a canonical region name. The
// country-wide option and the empty string both normalize to "".
func NormalizeRegion(region string) (string, error) {
	region = strings.TrimSpace(region)
	if region == "" || strings.EqualFold(region, AllRegions) {
		return "", nil
	}
	for _, r := range Regions[1:] {
		if strings.EqualFold(r, region) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown region %q", region)
}

// ValidYear reports whether year is 0 (all years) or inside the range the
// data API serves.
func ValidYear(year int) bool {
	return year == 0 || (year >= MinYear && year <= MaxYear)
}

// RegionOf returns the region of a purchase location given as a state
// code ("SP") or a state name ("São Paulo").
func RegionOf(location string) (string, bool) {
	key := strings.TrimSpace(location)
	if r, ok := stateRegions[strings.ToUpper(key)]; ok {
		return r, true
	}
	if code, ok := stateNames[strings.ToLower(key)]; ok {
		return stateRegions[code], true
	}
	return "", false
}
