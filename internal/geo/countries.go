package geo

import "strings"

// Display names shown in analytics, keyed by ISO 3166-1 alpha-2 code.
var countryNames = map[string]string{
	"ES": "España",
	"MX": "México",
	"AR": "Argentina",
	"CO": "Colombia",
	"CL": "Chile",
	"US": "Estados Unidos",
	"PE": "Perú",
	"BR": "Brasil",
	"VE": "Venezuela",
	"EC": "Ecuador",
	"UY": "Uruguay",
	"PY": "Paraguay",
	"BO": "Bolivia",
	"PA": "Panamá",
	"CR": "Costa Rica",
	"DO": "República Dominicana",
	"GT": "Guatemala",
	"SV": "El Salvador",
	"HN": "Honduras",
	"NI": "Nicaragua",
	"PR": "Puerto Rico",
	"CU": "Cuba",
	"PT": "Portugal",
	"FR": "Francia",
	"DE": "Alemania",
	"IT": "Italia",
	"GB": "Reino Unido",
	"CA": "Canadá",
}

// CountryName expands a two-letter code to its display name.
// Unknown codes and values that are already names are returned unchanged.
func CountryName(country string) string {
	if len(country) == 2 {
		if name, ok := countryNames[strings.ToUpper(country)]; ok {
			return name
		}
	}
	return country
}
