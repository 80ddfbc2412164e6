// Package timezone resolves CDR location country codes to time zones.
//
// OCPI 2.2.1 tariff restrictions are evaluated against local time at the
// charge point. The CDR carries the location's ISO 3166-1 alpha-3 country
// code; this package maps it to an IANA zone so restriction checks can use
// local wall-clock time. The table is read-only after initialization.
package timezone

import "time"

// countryZones maps ISO 3166-1 alpha-3 country codes to IANA zone names.
// Countries spanning several zones are listed with the zone of their most
// populous area or are omitted.
var countryZones = map[string]string{
	"ALB": "Europe/Tirane",
	"AND": "Europe/Andorra",
	"AUT": "Europe/Vienna",
	"BEL": "Europe/Brussels",
	"BGR": "Europe/Sofia",
	"BIH": "Europe/Sarajevo",
	"BLR": "Europe/Minsk",
	"CHE": "Europe/Zurich",
	"CYP": "Asia/Nicosia",
	"CZE": "Europe/Prague",
	"DEU": "Europe/Berlin",
	"DNK": "Europe/Copenhagen",
	"ESP": "Europe/Madrid",
	"EST": "Europe/Tallinn",
	"FIN": "Europe/Helsinki",
	"FRA": "Europe/Paris",
	"GBR": "Europe/London",
	"GRC": "Europe/Athens",
	"HRV": "Europe/Zagreb",
	"HUN": "Europe/Budapest",
	"IRL": "Europe/Dublin",
	"ISL": "Atlantic/Reykjavik",
	"ITA": "Europe/Rome",
	"LIE": "Europe/Vaduz",
	"LTU": "Europe/Vilnius",
	"LUX": "Europe/Luxembourg",
	"LVA": "Europe/Riga",
	"MCO": "Europe/Monaco",
	"MDA": "Europe/Chisinau",
	"MKD": "Europe/Skopje",
	"MLT": "Europe/Malta",
	"MNE": "Europe/Podgorica",
	"NLD": "Europe/Amsterdam",
	"NOR": "Europe/Oslo",
	"POL": "Europe/Warsaw",
	"PRT": "Europe/Lisbon",
	"ROU": "Europe/Bucharest",
	"SRB": "Europe/Belgrade",
	"SVK": "Europe/Bratislava",
	"SVN": "Europe/Ljubljana",
	"SWE": "Europe/Stockholm",
	"TUR": "Europe/Istanbul",
	"UKR": "Europe/Kyiv",
}

// Localize returns t converted to the local time of the given country.
// Unknown country codes and unloadable zones fall back to returning t
// unchanged; resolution failure is never an error.
func Localize(t time.Time, country string) time.Time {
	zone, ok := countryZones[country]
	if !ok {
		return t
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return t
	}
	return t.In(loc)
}

// Known reports whether a country code has a zone mapping
func Known(country string) bool {
	_, ok := countryZones[country]
	return ok
}
