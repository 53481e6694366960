package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const sampleStates = `{"time":1700000000,"states":[
	["3c6444","DLH9U   ","Germany",null,1700000000,6.7,51.2,1200.5],
	["484506","KLM1023 ","Netherlands",null,1700000000,4.7,52.3,900.0],
	["aaaaaa","        ","France",null,1700000000,2.5,48.8,500.0],
	["bbbbbb"]
]}`

func TestParseStatesExtractsRows(t *testing.T) {
	results := parseStates(sampleStates, "")
	require.Len(t, results, 2, "empty callsigns and short rows are skipped")

	assert.Equal(t, "3c6444", results[0].Icao24)
	assert.Equal(t, "DLH9U", results[0].Callsign, "callsign padding is trimmed")
	assert.Equal(t, "Germany", results[0].OriginCountry)
	assert.Equal(t, "KLM1023", results[1].Callsign)
}

func TestParseStatesFiltersByQuery(t *testing.T) {
	assert.Len(t, parseStates(sampleStates, "klm"), 1)
	assert.Len(t, parseStates(sampleStates, "germany"), 1)
	assert.Len(t, parseStates(sampleStates, "484506"), 1)
	assert.Empty(t, parseStates(sampleStates, "ryanair"))
}

func TestParseStatesMalformedPayload(t *testing.T) {
	assert.Empty(t, parseStates("not json", ""))
	assert.Empty(t, parseStates(`{"states":null}`, ""))
	assert.Empty(t, parseStates(`{}`, ""))
}

func TestParseStatesCapsResults(t *testing.T) {
	big := `{"states":[`
	for i := 0; i < 40; i++ {
		if i > 0 {
			big += ","
		}
		big += `["abc123","CALL1","Nowhere"]`
	}
	big += `]}`

	assert.Len(t, parseStates(big, ""), maxAircraftResults)
}

func TestNearAirportQueryBoundingBox(t *testing.T) {
	q := nearAirportQuery(50.0, 8.5)
	assert.Equal(t, "/states/all?lamin=49.50&lomin=8.00&lamax=50.50&lomax=9.00", q)
}

func newQueryCtx(uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.SetRequestURI(uri)
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func TestParsePageDefaults(t *testing.T) {
	page, size := parsePage(newQueryCtx("/api/sightings"), 20)
	assert.Equal(t, 0, page)
	assert.Equal(t, 20, size)
}

func TestParsePageExplicit(t *testing.T) {
	page, size := parsePage(newQueryCtx("/api/sightings?page=3&size=50"), 20)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)
}

func TestParsePageCapsSize(t *testing.T) {
	_, size := parsePage(newQueryCtx("/api/sightings?size=9999"), 20)
	assert.Equal(t, 100, size)
}

func TestParsePageIgnoresGarbage(t *testing.T) {
	page, size := parsePage(newQueryCtx("/api/sightings?page=-1&size=abc"), 20)
	assert.Equal(t, 0, page)
	assert.Equal(t, 20, size)
}

func TestPathID(t *testing.T) {
	ctx := newQueryCtx("/api/sightings/17")
	ctx.SetUserValue("id", "17")
	id, ok := pathID(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(17), id)

	for _, raw := range []string{"0", "-3", "abc", ""} {
		ctx := newQueryCtx("/api/sightings/x")
		ctx.SetUserValue("id", raw)
		_, ok := pathID(ctx)
		assert.False(t, ok, raw)
		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
	}
}
