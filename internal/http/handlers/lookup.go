package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/valyala/fasthttp"

	"flightlogbook/internal/airports"
	"flightlogbook/internal/opensky"
	"flightlogbook/internal/ratelimit"
)

// SearchAirports matches the static airport directory against ?q=.
func SearchAirports() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		q := string(ctx.QueryArgs().Peek("q"))
		results := airports.Search(q)
		if results == nil {
			results = []airports.Airport{}
		}
		jsonResponse(ctx, fasthttp.StatusOK, results)
	}
}

// AllAirports returns the full directory.
func AllAirports() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		jsonResponse(ctx, fasthttp.StatusOK, airports.All())
	}
}

// AirportByCode looks up one airport by ICAO or IATA code.
func AirportByCode() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		code, _ := ctx.UserValue("code").(string)
		airport := airports.ByCode(code)
		if airport == nil {
			errResponse(ctx, fasthttp.StatusNotFound, "airport not found")
			return
		}
		jsonResponse(ctx, fasthttp.StatusOK, airport)
	}
}

// aircraftResult is one live aircraft returned by the lookup endpoint.
type aircraftResult struct {
	Icao24        string `json:"icao24"`
	Callsign      string `json:"callsign"`
	OriginCountry string `json:"origin_country,omitempty"`
	Registration  string `json:"registration,omitempty"`
	Model         string `json:"model,omitempty"`
	Manufacturer  string `json:"manufacturer,omitempty"`
	Operator      string `json:"operator,omitempty"`
}

// statesEnvelope is the minimal shape of an OpenSky states response.
type statesEnvelope struct {
	States [][]any `json:"states"`
}

// maxAircraftResults caps the live search output; metadata lookups are
// further capped because each one is a separate best-effort call.
const (
	maxAircraftResults  = 20
	maxMetadataLookups  = 5
	nearAirportBoxDelta = 0.5 // ~50km radius
)

// SearchAircraft proxies a live aircraft search through OpenSky. With
// ?airport=CODE the search is confined to a small bounding box around
// that airport (cheaper against provider credits); otherwise it spans
// European airspace. The shared OpenSky quota bucket gates every call.
func SearchAircraft(client *opensky.Client, quota *ratelimit.Bucket) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if !quota.TryConsume(1) {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			ctx.SetContentType("application/json")
			ctx.SetBodyString(`{"error":"Flight data temporarily unavailable","message":"External quota exhausted. Please try again later."}`)
			return
		}

		query := europeQuery()
		if code := string(ctx.QueryArgs().Peek("airport")); code != "" {
			airport := airports.ByCode(code)
			if airport == nil {
				errResponse(ctx, fasthttp.StatusNotFound, "airport not found")
				return
			}
			query = nearAirportQuery(airport.Lat, airport.Lon)
		}

		body, err := client.FetchStates(query)
		if err != nil {
			log.Printf("aircraft lookup fetch error: %v", err)
			jsonResponse(ctx, fasthttp.StatusOK, []aircraftResult{})
			return
		}

		q := strings.ToLower(strings.TrimSpace(string(ctx.QueryArgs().Peek("q"))))
		results := parseStates(body, q)

		// Registration/model/operator come from OpenSky's aircraft
		// database; failures are swallowed, the result just stays bare.
		for i := range results {
			if i >= maxMetadataLookups {
				break
			}
			meta, err := client.FetchAircraftMetadata(results[i].Icao24)
			if err != nil {
				continue
			}
			results[i].Registration = meta.Registration
			results[i].Model = meta.Model
			results[i].Manufacturer = meta.Manufacturer
			results[i].Operator = meta.Operator
		}

		jsonResponse(ctx, fasthttp.StatusOK, results)
	}
}

// European bounding box, SW to NE corner.
func europeQuery() string {
	return "/states/all?lamin=34.0&lomin=-25.0&lamax=71.0&lomax=45.0"
}

func nearAirportQuery(lat, lon float64) string {
	return fmt.Sprintf("/states/all?lamin=%.2f&lomin=%.2f&lamax=%.2f&lomax=%.2f",
		lat-nearAirportBoxDelta, lon-nearAirportBoxDelta, lat+nearAirportBoxDelta, lon+nearAirportBoxDelta)
}

// parseStates extracts icao24/callsign/origin country from a raw states
// payload, filtering by q. Rows without a callsign are skipped; a
// malformed payload yields an empty result rather than an error.
func parseStates(body, q string) []aircraftResult {
	var envelope statesEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		log.Printf("aircraft lookup parse error: %v", err)
		return []aircraftResult{}
	}

	results := []aircraftResult{}
	for _, state := range envelope.States {
		if len(state) < 3 {
			continue
		}
		icao24, _ := state[0].(string)
		callsign, _ := state[1].(string)
		country, _ := state[2].(string)

		callsign = strings.TrimSpace(callsign)
		if callsign == "" {
			continue
		}

		if q != "" &&
			!strings.Contains(strings.ToLower(icao24), q) &&
			!strings.Contains(strings.ToLower(callsign), q) &&
			!strings.Contains(strings.ToLower(country), q) {
			continue
		}

		results = append(results, aircraftResult{
			Icao24:        icao24,
			Callsign:      callsign,
			OriginCountry: country,
		})
		if len(results) >= maxAircraftResults {
			break
		}
	}
	return results
}
