package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/filter"
	"github.com/af-corp/wayfinder/internal/filter/secrets"
	"github.com/af-corp/wayfinder/internal/router"
	"github.com/af-corp/wayfinder/internal/store"
	"github.com/af-corp/wayfinder/internal/travel"
	"github.com/af-corp/wayfinder/internal/types"
	"github.com/af-corp/wayfinder/internal/weather"
)

type fakeRecommender struct {
	recs          []types.Recommendation
	err           error
	gotInterests  []string
	gotBudget     string
	attractions   map[int64]types.Attraction
	attractionErr error
}

func (f *fakeRecommender) Recommendations(_ context.Context, interests []string, budget string) ([]types.Recommendation, error) {
	f.gotInterests, f.gotBudget = interests, budget
	return f.recs, f.err
}

func (f *fakeRecommender) Attraction(_ context.Context, id int64) (*types.Attraction, error) {
	if f.attractionErr != nil {
		return nil, f.attractionErr
	}
	a, ok := f.attractions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

type fakeDestinations struct{ gotCountry string }

func (f *fakeDestinations) List(_ context.Context, country string) ([]types.Destination, error) {
	f.gotCountry = country
	return []types.Destination{{ID: 1, Name: "Kyoto", Country: "Japan"}}, nil
}

type fakeWeather struct {
	gotDest string
	gotDate time.Time
}

func (f *fakeWeather) Forecast(_ context.Context, destination string, date time.Time) *weather.Forecast {
	f.gotDest, f.gotDate = destination, date
	return weather.Fallback(date)
}

type fakePlanner struct {
	got travel.ItineraryRequest
	err error
}

func (f *fakePlanner) Plan(_ context.Context, req travel.ItineraryRequest) (*travel.Itinerary, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &travel.Itinerary{Destination: req.Destination, Duration: req.Duration, Interests: req.Interests, Budget: "moderate"}, nil
}

type fakeGenerator struct {
	text  string
	err   error
	calls int
	got   *types.GenerationRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req *types.GenerationRequest) (string, error) {
	f.calls++
	f.got = req
	return f.text, f.err
}

type fakeProviders struct{}

func (fakeProviders) Health() []router.ProviderHealth {
	return []router.ProviderHealth{{
		Provider:     types.ProviderGroq,
		Priority:     1,
		Registered:   true,
		CircuitStats: router.CircuitStats{State: router.StateClosed},
	}}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fixture struct {
	recommender  *fakeRecommender
	destinations *fakeDestinations
	weather      *fakeWeather
	planner      *fakePlanner
	generator    *fakeGenerator
	handler      *Handler
	router       http.Handler
}

func newFixture(t *testing.T, mutate ...func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		recommender: &fakeRecommender{
			recs:        []types.Recommendation{{Destination: types.Destination{ID: 1, Name: "Tokyo"}, Attractions: []types.Attraction{}, RecommendedActivities: []string{"Akihabara"}}},
			attractions: map[int64]types.Attraction{7: {ID: 7, Name: "Kinkaku-ji"}},
		},
		destinations: &fakeDestinations{},
		weather:      &fakeWeather{},
		planner:      &fakePlanner{},
		generator:    &fakeGenerator{text: "hello"},
	}
	deps := Deps{
		Recommender:  f.recommender,
		Destinations: f.destinations,
		Weather:      f.weather,
		Planner:      f.planner,
		Generator:    f.generator,
		Structured:   router.NewStructuredDecoder(f.generator),
		Providers:    fakeProviders{},
		Guard: filter.NewChain(secrets.NewScanner(func() config.SecretsFilterConfig {
			return config.SecretsFilterConfig{Enabled: true}
		})),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version: "test",
	}
	for _, m := range mutate {
		m(&deps)
	}
	f.handler = NewHandler(deps)
	f.handler.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(RequestID)
	f.handler.Mount(r, "/v1/api")
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"test"}`, rec.Body.String())

	f = newFixture(t, func(d *Deps) { d.DB = fakePinger{err: errors.New("dial tcp: refused")} })
	rec = f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"unreachable"`)
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDReachesHandlerContext(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "abc-123", seen)
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestRecommendations(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/api/recommendations", `{"interests":["food"],"budget":"low"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"recommendedActivities":["Akihabara"]`)
	assert.Equal(t, []string{"food"}, f.recommender.gotInterests)
	assert.Equal(t, "low", f.recommender.gotBudget)
}

func TestRecommendations_Validation(t *testing.T) {
	f := newFixture(t)
	for name, body := range map[string]string{
		"no interests":  `{"budget":"low"}`,
		"no budget":     `{"interests":["food"]}`,
		"not an array":  `{"interests":"food","budget":"low"}`,
		"empty body":    ``,
		"trailing data": `{"interests":[],"budget":"low"} {}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/api/recommendations", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid request parameters. Interests array and budget are required.", decode(t, rec).Error)
		})
	}
}

func TestRecommendations_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.recommender.err = errors.New("connection refused")

	rec := f.do(t, http.MethodPost, "/v1/api/recommendations", `{"interests":["food"],"budget":"low"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to get travel recommendations", decode(t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAttractionDetails(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/api/attractions/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"name":"Kinkaku-ji"`)

	rec = f.do(t, http.MethodGet, "/v1/api/attractions/8", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Attraction not found", decode(t, rec).Error)

	rec = f.do(t, http.MethodGet, "/v1/api/attractions/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.recommender.attractionErr = errors.New("timeout")
	rec = f.do(t, http.MethodGet, "/v1/api/attractions/7", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListDestinations(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/api/destinations?country=Japan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Japan", f.destinations.gotCountry)
	assert.Contains(t, string(decode(t, rec).Data), `"name":"Kyoto"`)
}

func TestWeatherForecast(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/api/weather/Atlantis?date=2026-11-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Atlantis", f.weather.gotDest)
	assert.JSONEq(t,
		`{"date":"2026-11-02","temperature":{"min":20,"max":25,"average":22},"conditions":"Moderate","humidity":60,"windSpeed":5}`,
		string(decode(t, rec).Data))

	rec = f.do(t, http.MethodGet, "/v1/api/weather/Tokyo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-10-18", f.weather.gotDate.Format(time.DateOnly))

	rec = f.do(t, http.MethodGet, "/v1/api/weather/Tokyo?date=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateItinerary(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/api/generate-itinerary", `{"destination":"Tokyo","duration":3,"interests":["food"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tokyo", f.planner.got.Destination)
	assert.Equal(t, 3, f.planner.got.Duration)

	rec = f.do(t, http.MethodPost, "/v1/api/generate-itinerary", `{"destination":"Tokyo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing required fields: duration, interests", decode(t, rec).Error)

	f.planner.err = errors.New("boom")
	rec = f.do(t, http.MethodPost, "/v1/api/generate-itinerary", `{"destination":"Tokyo","duration":3,"interests":["food"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate itinerary", decode(t, rec).Error)
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/api/ai/generate", `{"prompt":"Suggest a day in Kyoto","maxTokens":200}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"hello"}`, string(decode(t, rec).Data))
	assert.Equal(t, 200, f.generator.got.MaxTokens)
	assert.Equal(t, types.DefaultTemperature, f.generator.got.Temperature)
}

func TestGenerate_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/api/ai/generate", `{"prompt":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, types.ErrEmptyPrompt.Error(), decode(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/v1/api/ai/generate", `{"prompt":"hi","temperature":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.generator.calls)
}

func TestGenerate_BlockedPrompt(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/api/ai/generate",
		`{"prompt":"use my key gsk_abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGH"}`)
	assert.Equal(t, http.StatusUnavailableForLegalReasons, rec.Code)
	assert.NotContains(t, rec.Body.String(), "gsk_abcdefghij")
	assert.Zero(t, f.generator.calls)
}

func TestGenerate_AllProvidersFailed(t *testing.T) {
	f := newFixture(t)
	f.generator.err = &router.AllProvidersFailedError{Attempts: []*router.ProviderCallError{
		{Provider: types.ProviderOpenAI, Priority: 1, Err: errors.New("openai returned status 429")},
	}}

	rec := f.do(t, http.MethodPost, "/v1/api/ai/generate", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to generate text", decode(t, rec).Error)
	assert.NotContains(t, rec.Body.String(), "429")
}

func TestStructuredResponse(t *testing.T) {
	f := newFixture(t)
	f.generator.text = "```json\n{\"a\":1}\n```"

	rec := f.do(t, http.MethodPost, "/v1/api/ai/structured-response", `{"prompt":"give me a","responseType":"Thing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"a":1}`, string(decode(t, rec).Data))
	assert.Contains(t, f.generator.got.Prompt, `expected response type "Thing"`)

	f.generator.text = "not json"
	rec = f.do(t, http.MethodPost, "/v1/api/ai/structured-response", `{"prompt":"give me a","responseType":"Thing"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Model response was not valid JSON", decode(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/v1/api/ai/structured-response", `{"prompt":"give me a"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "responseType is required", decode(t, rec).Error)
}

func TestProviderStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/api/ai/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := string(decode(t, rec).Data)
	assert.Contains(t, data, `"provider":"groq"`)
	assert.Contains(t, data, `"state":"closed"`)
}

func TestGenerateItinerary_BlockedDestination(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/api/generate-itinerary",
		`{"destination":"Tokyo gsk_abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGH","duration":2,"interests":["food"]}`)
	assert.Equal(t, http.StatusUnavailableForLegalReasons, rec.Code)
	assert.NotContains(t, rec.Body.String(), "gsk_abcdefghij")
	assert.Empty(t, f.planner.got.Destination, "planner must not run for a blocked prompt")
	assert.Zero(t, f.generator.calls)
}
