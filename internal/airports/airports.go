// Package airports provides the static European airport directory used
// for autocomplete and code lookups. The table is compiled in; there is
// no external data source.
package airports

import "strings"

// Airport is one entry of the directory.
type Airport struct {
	ICAO    string  `json:"icao"`
	IATA    string  `json:"iata"`
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// maxResults caps Search output.
const maxResults = 20

var directory = []Airport{
	// Portugal
	{"LPPT", "LIS", "Lisbon Portela Airport", "Lisbon", "Portugal", 38.7756, -9.1354},
	{"LPPR", "OPO", "Francisco Sá Carneiro Airport", "Porto", "Portugal", 41.2481, -8.6814},
	{"LPFR", "FAO", "Faro Airport", "Faro", "Portugal", 37.0144, -7.9659},
	{"LPMA", "FNC", "Madeira Airport", "Funchal", "Portugal", 32.6979, -16.7745},
	{"LPPD", "PDL", "João Paulo II Airport", "Ponta Delgada", "Portugal", 37.7412, -25.6979},
	// Spain
	{"LEMD", "MAD", "Madrid Barajas Airport", "Madrid", "Spain", 40.4936, -3.5668},
	{"LEBL", "BCN", "Barcelona El Prat Airport", "Barcelona", "Spain", 41.2971, 2.0785},
	{"LEPA", "PMI", "Palma de Mallorca Airport", "Palma", "Spain", 39.5517, 2.7388},
	{"LEMG", "AGP", "Málaga Airport", "Málaga", "Spain", 36.6749, -4.4991},
	{"LEAL", "ALC", "Alicante Airport", "Alicante", "Spain", 38.2822, -0.5582},
	{"LEVC", "VLC", "Valencia Airport", "Valencia", "Spain", 39.4893, -0.4816},
	{"GCTS", "TFS", "Tenerife South Airport", "Tenerife", "Spain", 28.0445, -16.5725},
	{"GCLP", "LPA", "Gran Canaria Airport", "Las Palmas", "Spain", 27.9319, -15.3866},
	// United Kingdom
	{"EGLL", "LHR", "London Heathrow Airport", "London", "United Kingdom", 51.4700, -0.4543},
	{"EGKK", "LGW", "London Gatwick Airport", "London", "United Kingdom", 51.1481, -0.1903},
	{"EGSS", "STN", "London Stansted Airport", "London", "United Kingdom", 51.8850, 0.2350},
	{"EGCC", "MAN", "Manchester Airport", "Manchester", "United Kingdom", 53.3537, -2.2750},
	{"EGPH", "EDI", "Edinburgh Airport", "Edinburgh", "United Kingdom", 55.9500, -3.3725},
	{"EGBB", "BHX", "Birmingham Airport", "Birmingham", "United Kingdom", 52.4539, -1.7480},
	// France
	{"LFPG", "CDG", "Paris Charles de Gaulle Airport", "Paris", "France", 49.0097, 2.5479},
	{"LFPO", "ORY", "Paris Orly Airport", "Paris", "France", 48.7233, 2.3794},
	{"LFMN", "NCE", "Nice Côte d'Azur Airport", "Nice", "France", 43.6584, 7.2159},
	{"LFLL", "LYS", "Lyon Saint-Exupéry Airport", "Lyon", "France", 45.7256, 5.0811},
	{"LFML", "MRS", "Marseille Provence Airport", "Marseille", "France", 43.4393, 5.2214},
	// Germany
	{"EDDF", "FRA", "Frankfurt Airport", "Frankfurt", "Germany", 50.0379, 8.5622},
	{"EDDM", "MUC", "Munich Airport", "Munich", "Germany", 48.3538, 11.7861},
	{"EDDB", "BER", "Berlin Brandenburg Airport", "Berlin", "Germany", 52.3667, 13.5033},
	{"EDDL", "DUS", "Düsseldorf Airport", "Düsseldorf", "Germany", 51.2895, 6.7668},
	{"EDDH", "HAM", "Hamburg Airport", "Hamburg", "Germany", 53.6304, 9.9882},
	// Italy
	{"LIRF", "FCO", "Rome Fiumicino Airport", "Rome", "Italy", 41.8003, 12.2389},
	{"LIMC", "MXP", "Milan Malpensa Airport", "Milan", "Italy", 45.6306, 8.7281},
	{"LIPZ", "VCE", "Venice Marco Polo Airport", "Venice", "Italy", 45.5053, 12.3519},
	{"LIRN", "NAP", "Naples Airport", "Naples", "Italy", 40.8860, 14.2908},
	// Netherlands / Belgium
	{"EHAM", "AMS", "Amsterdam Schiphol Airport", "Amsterdam", "Netherlands", 52.3086, 4.7639},
	{"EHEH", "EIN", "Eindhoven Airport", "Eindhoven", "Netherlands", 51.4501, 5.3743},
	{"EBBR", "BRU", "Brussels Airport", "Brussels", "Belgium", 50.9014, 4.4844},
	// Switzerland / Austria
	{"LSZH", "ZRH", "Zurich Airport", "Zurich", "Switzerland", 47.4647, 8.5492},
	{"LSGG", "GVA", "Geneva Airport", "Geneva", "Switzerland", 46.2381, 6.1089},
	{"LOWW", "VIE", "Vienna International Airport", "Vienna", "Austria", 48.1103, 16.5697},
	// Nordics
	{"EKCH", "CPH", "Copenhagen Airport", "Copenhagen", "Denmark", 55.6181, 12.6561},
	{"ESSA", "ARN", "Stockholm Arlanda Airport", "Stockholm", "Sweden", 59.6519, 17.9186},
	{"ENGM", "OSL", "Oslo Gardermoen Airport", "Oslo", "Norway", 60.1976, 11.1004},
	{"EFHK", "HEL", "Helsinki-Vantaa Airport", "Helsinki", "Finland", 60.3172, 24.9633},
	{"BIKF", "KEF", "Keflavík International Airport", "Reykjavík", "Iceland", 63.9850, -22.6056},
	// Ireland / Poland / Czechia / Greece / Turkey
	{"EIDW", "DUB", "Dublin Airport", "Dublin", "Ireland", 53.4213, -6.2701},
	{"EPWA", "WAW", "Warsaw Chopin Airport", "Warsaw", "Poland", 52.1657, 20.9671},
	{"LKPR", "PRG", "Václav Havel Airport Prague", "Prague", "Czechia", 50.1008, 14.2600},
	{"LGAV", "ATH", "Athens International Airport", "Athens", "Greece", 37.9364, 23.9445},
	{"LTFM", "IST", "Istanbul Airport", "Istanbul", "Turkey", 41.2753, 28.7519},
}

// All returns the full directory.
func All() []Airport {
	return directory
}

// Search matches q against ICAO, IATA, name, city and country,
// case-insensitively. Queries shorter than two characters return
// nothing; results are capped at 20.
func Search(q string) []Airport {
	q = strings.ToLower(strings.TrimSpace(q))
	if len(q) < 2 {
		return nil
	}

	var matches []Airport
	for _, a := range directory {
		if strings.Contains(strings.ToLower(a.ICAO), q) ||
			strings.Contains(strings.ToLower(a.IATA), q) ||
			strings.Contains(strings.ToLower(a.Name), q) ||
			strings.Contains(strings.ToLower(a.City), q) ||
			strings.Contains(strings.ToLower(a.Country), q) {
			matches = append(matches, a)
			if len(matches) >= maxResults {
				break
			}
		}
	}
	return matches
}

// ByCode returns the airport with the given ICAO or IATA code, or nil.
func ByCode(code string) *Airport {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	for i := range directory {
		if directory[i].ICAO == code || directory[i].IATA == code {
			return &directory[i]
		}
	}
	return nil
}
