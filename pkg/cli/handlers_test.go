package cli

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/chefskiss/pkg/feature"
	"github.com/mchmarny/chefskiss/pkg/runtime"
	"github.com/mchmarny/chefskiss/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyGate(t *testing.T) *runtime.Gate {
	t.Helper()
	rt, err := runtime.Load(context.Background(), runtime.Sources{Model: testModel, Data: testData})
	require.NoError(t, err)
	g := &runtime.Gate{}
	g.Set(rt)
	return g
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	gate := &runtime.Gate{}
	h := makeRouter(gate, nil)

	w := serve(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[healthResponse](t, w)
	assert.Equal(t, statusLoading, resp.Status)
	assert.False(t, resp.ModelLoaded)
	assert.Equal(t, feature.Subtypes(), resp.AvailableSubtypes)

	h = makeRouter(readyGate(t), nil)
	w = serve(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[healthResponse](t, w)
	assert.Equal(t, statusHealthy, resp.Status)
	assert.True(t, resp.ModelLoaded)
	assert.True(t, resp.DataLoaded)
	assert.True(t, resp.ExplainerAvailable)
	assert.Equal(t, 3, resp.TotalZipCodes)
}

func TestPredict(t *testing.T) {
	h := makeRouter(readyGate(t), nil)

	w := serve(h, http.MethodPost, "/predict", `{"city":"Philadelphia","state":"PA","subtype":"Italian","price_range":2.0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decode[score.Response](t, w)
	assert.Equal(t, "Philadelphia", resp.City)
	assert.Equal(t, 2, resp.Total)
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Percent, 0.0)
		assert.LessOrEqual(t, r.Percent, 100.0)
		assert.Equal(t, score.RatingFor(r.Percent), r.Rating)
		assert.NotEmpty(t, r.Features)
	}

	// identical requests give identical bodies
	again := serve(h, http.MethodPost, "/predict", `{"city":"Philadelphia","state":"PA","subtype":"Italian","price_range":2.0}`)
	assert.Equal(t, w.Body.String(), again.Body.String())
}

func TestPredict_NonFiniteCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	csv := "zip_code,city,state,subtype,price_range,five_year_survivor,total_population\n" +
		"19103,Philadelphia,PA,Pizza,1.0,1,inf\n" +
		"19104,Philadelphia,PA,Thai,2.0,0,700\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0600))

	rt, err := runtime.Load(context.Background(), runtime.Sources{Model: testModel, Data: path})
	require.NoError(t, err)
	gate := &runtime.Gate{}
	gate.Set(rt)

	w := serve(makeRouter(gate, nil), http.MethodPost, "/predict", `{"city":"Philadelphia","subtype":"Italian","price_range":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[score.Response](t, w)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "19104", resp.Results[0].ID)
	assert.NotEmpty(t, resp.Results[0].Features)
}

func TestWriteJSON_Unencodable(t *testing.T) {
	w := httptest.NewRecorder()

	writeJSON(w, http.StatusOK, map[string]float64{"value": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[errorResponse](t, w)
	assert.Equal(t, codeEncoding, resp.Error)
}

func TestPredict_Errors(t *testing.T) {
	ready := makeRouter(readyGate(t), nil)
	loading := makeRouter(&runtime.Gate{}, nil)

	tests := []struct {
		name   string
		h      http.Handler
		body   string
		status int
		code   string
	}{
		{"malformed", ready, `{"city":`, http.StatusBadRequest, codeBadRequest},
		{"missing price", ready, `{"city":"Tampa","subtype":"Thai"}`, http.StatusUnprocessableEntity, codeInvalid},
		{"price too high", ready, `{"city":"Tampa","subtype":"Thai","price_range":4.5}`, http.StatusUnprocessableEntity, codeInvalid},
		{"price too low", ready, `{"city":"Tampa","subtype":"Thai","price_range":0}`, http.StatusUnprocessableEntity, codeInvalid},
		{"unknown subtype", ready, `{"city":"Tampa","subtype":"Martian","price_range":2}`, http.StatusUnprocessableEntity, codeInvalid},
		{"empty city", ready, `{"city":" ","subtype":"Thai","price_range":2}`, http.StatusUnprocessableEntity, codeInvalid},
		{"not ready", loading, `{"city":"Tampa","subtype":"Thai","price_range":2}`, http.StatusServiceUnavailable, codeNotReady},
		{"unknown city", ready, `{"city":"Gotham","state":"NY","subtype":"Thai","price_range":2}`, http.StatusNotFound, codeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(tt.h, http.MethodPost, "/predict", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decode[errorResponse](t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.NotEmpty(t, resp.Detail)
			assert.Equal(t, w.Header().Get(requestIDHeader), resp.RequestID)
		})
	}
}

func TestPredict_NotFoundHint(t *testing.T) {
	h := makeRouter(readyGate(t), nil)
	w := serve(h, http.MethodPost, "/predict", `{"city":"Gotham","state":"NY","subtype":"Thai","price_range":2}`)
	resp := decode[errorResponse](t, w)
	assert.Contains(t, resp.Detail, "Gotham, NY")
	assert.Contains(t, resp.Detail, "/cities")
}

func TestPredict_WrongMethod(t *testing.T) {
	h := makeRouter(readyGate(t), nil)
	w := serve(h, http.MethodGet, "/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCities(t *testing.T) {
	w := serve(makeRouter(&runtime.Gate{}, nil), http.MethodGet, "/cities", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(makeRouter(readyGate(t), nil), http.MethodGet, "/cities", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]map[string]any](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "Philadelphia", list[0]["city"])
	assert.Equal(t, "PA", list[0]["state"])
	assert.Equal(t, float64(2), list[0]["zip_count"])
}

func TestSubtypes(t *testing.T) {
	w := serve(makeRouter(&runtime.Gate{}, nil), http.MethodGet, "/subtypes", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]string](t, w)
	assert.Len(t, list, 21)
	assert.Contains(t, list, "Fast Food")
}

func TestZipCodes(t *testing.T) {
	h := makeRouter(readyGate(t), nil)

	w := serve(h, http.MethodGet, "/zip-codes", "")
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[zipCodesResponse](t, w)
	assert.Equal(t, []string{"19103", "19104", "33602"}, all.ZipCodes)
	assert.Equal(t, 3, all.Total)

	w = serve(h, http.MethodGet, "/zip-codes?city=PHILADELPHIA&state=pa", "")
	require.Equal(t, http.StatusOK, w.Code)
	city := decode[zipCodesResponse](t, w)
	assert.Equal(t, []string{"19103", "19104"}, city.ZipCodes)

	w = serve(h, http.MethodGet, "/zip-codes?city=Gotham", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(makeRouter(&runtime.Gate{}, nil), http.MethodGet, "/zip-codes", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
