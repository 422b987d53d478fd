package travel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visaeval/visaeval-backend/pkg/cache"
	"github.com/visaeval/visaeval-backend/pkg/config"
	"github.com/visaeval/visaeval-backend/pkg/errors"
	"github.com/visaeval/visaeval-backend/pkg/testutil"
)

const checkBody = `{"data":{
	"destination":{"code":"DE","name":"Germany","continent":"Europe","capital":"Berlin","currency":"EUR","passport_validity":"3 months beyond stay","embassy_url":"https://example.org/embassy"},
	"visa_rules":{
		"primary_rule":{"name":"Visa required","duration":"","color":"red"},
		"secondary_rule":{"name":"eVisa","duration":"90 days","color":"yellow","link":"https://example.org/evisa"}
	},
	"mandatory_registration":{"name":"Anmeldung","color":"yellow","link":"https://example.org/anmeldung"}
}}`

// fakeRapidAPI counts calls and replies with checkBody.
type fakeRapidAPI struct {
	calls  atomic.Int32
	status int
	delay  time.Duration
	mu     sync.Mutex
	last   checkRequest
	key    string
}

func (f *fakeRapidAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	f.mu.Lock()
	_ = json.NewDecoder(r.Body).Decode(&f.last)
	f.key = r.Header.Get("X-RapidAPI-Key")
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if r.URL.Path != "/v2/visa/check" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	_, _ = w.Write([]byte(checkBody))
}

func newClient(t *testing.T, fake *fakeRapidAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(config.TravelConfig{BaseURL: srv.URL, APIKey: "rapid-key", Timeout: 5 * time.Second})
}

// =============================================================================
// Country codes
// =============================================================================

func TestCountryCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Germany", "DE", true},
		{" uk ", "GB", true},
		{"United Kingdom", "GB", true},
		{"IND", "IN", true},
		{"D", "DE", true},
		{"deu", "DE", true},
		{"fr", "FR", true},
		{"Atlantis", "", false},
		{"XX", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CountryCode(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// Client
// =============================================================================

func TestNewClient_WithoutKey(t *testing.T) {
	assert.Nil(t, NewClient(config.TravelConfig{BaseURL: "http://localhost"}))
}

func TestClient_Check(t *testing.T) {
	fake := &fakeRapidAPI{}
	c := newClient(t, fake)

	r, err := c.Check(context.Background(), "IN", "DE")
	require.NoError(t, err)

	fake.mu.Lock()
	assert.Equal(t, checkRequest{Passport: "IN", Destination: "DE"}, fake.last)
	assert.Equal(t, "rapid-key", fake.key)
	fake.mu.Unlock()

	assert.Equal(t, SourceAPI, r.Source)
	assert.Equal(t, "Germany", r.Destination.Name)
	assert.True(t, r.VisaRequired)
	assert.False(t, r.VisaFree)
	assert.False(t, r.NeedsEVisa)
	require.NotNil(t, r.Secondary)
	assert.Equal(t, "https://example.org/evisa", r.Secondary.Link)
	assert.Equal(t, []string{"Mandatory registration required: Anmeldung"}, r.Notes())
}

func TestClient_CheckError(t *testing.T) {
	c := newClient(t, &fakeRapidAPI{status: http.StatusTooManyRequests})

	_, err := c.Check(context.Background(), "IN", "DE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api returned 429")
}

// =============================================================================
// Service
// =============================================================================

func TestService_Offline(t *testing.T) {
	svc := NewService(nil, nil, 0, nil)

	tests := []struct {
		passport, destination string
		visaRequired          bool
		rule                  string
	}{
		{"India", "Germany", true, "Visa required"},
		{"FRA", "Germany", false, "Freedom of movement"},
		{"Canada", "CA", false, "Citizen"},
		{"USA", "Ireland", true, "Visa required"},
	}
	for _, tt := range tests {
		t.Run(tt.passport+"->"+tt.destination, func(t *testing.T) {
			r, err := svc.Requirements(context.Background(), tt.passport, tt.destination)
			require.NoError(t, err)
			assert.Equal(t, SourceOffline, r.Source)
			assert.Equal(t, tt.visaRequired, r.VisaRequired)
			assert.Equal(t, tt.rule, r.Primary.Name)
		})
	}
}

func TestService_UnknownCountry(t *testing.T) {
	svc := NewService(nil, nil, 0, nil)

	_, err := svc.Requirements(context.Background(), "Atlantis", "Germany")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details, "passport")
}

func TestService_CachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "visaeval:")
	t.Cleanup(func() { _ = rc.Close() })

	fake := &fakeRapidAPI{}
	svc := NewService(newClient(t, fake), rc, time.Hour, nil)
	ctx := context.Background()

	first, err := svc.Requirements(ctx, "India", "Germany")
	require.NoError(t, err)
	second, err := svc.Requirements(ctx, "IND", "DE")
	require.NoError(t, err)

	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, first.Primary, second.Primary)
	assert.True(t, mr.Exists("visaeval:travel:IN:DE"))

	mr.FastForward(2 * time.Hour)
	_, err = svc.Requirements(ctx, "India", "Germany")
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestService_SingleFlight(t *testing.T) {
	mc := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = mc.Close() })

	fake := &fakeRapidAPI{delay: 100 * time.Millisecond}
	svc := NewService(newClient(t, fake), mc, time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := svc.Requirements(context.Background(), "India", "Germany")
			assert.NoError(t, err)
			assert.Equal(t, SourceAPI, r.Source)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestService_FallsBackOfflineOnUpstreamError(t *testing.T) {
	mc := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = mc.Close() })

	fake := &fakeRapidAPI{status: http.StatusInternalServerError}
	svc := NewService(newClient(t, fake), mc, time.Hour, nil)

	r, err := svc.Requirements(context.Background(), "India", "Germany")
	require.NoError(t, err)
	assert.Equal(t, SourceOffline, r.Source)
	assert.Equal(t, 0, mc.Len(), "offline answers are not cached")
}

// =============================================================================
// Documents
// =============================================================================

func TestRequirement_Documents(t *testing.T) {
	r := offline("IN", "DE", time.Now())

	docs := r.Documents("Skilled Work")
	assert.Contains(t, docs, "Visa application form")
	assert.Contains(t, docs, "Job offer letter")
	assert.NotContains(t, docs, "Letter of acceptance")

	free := offline("FR", "DE", time.Now())
	assert.Equal(t, []string{"Valid passport", "Passport valid for 6 months beyond stay"}, free.Documents(""))
}

// =============================================================================
// Handler
// =============================================================================

func TestHandler_Requirements(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/travel/requirements", NewHandler(NewService(nil, nil, 0, nil)).Requirements)

	rr := testutil.ExecuteRequest(r, httptest.NewRequest(http.MethodGet, "/travel/requirements?passport=IND&destination=Germany&purpose=work", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var body struct {
		Passport     string   `json:"passport"`
		VisaRequired bool     `json:"visa_required"`
		Source       string   `json:"source"`
		Documents    []string `json:"documents"`
		Notes        []string `json:"notes"`
	}
	testutil.ParseEnvelope(t, rr, &body)
	assert.Equal(t, "IN", body.Passport)
	assert.True(t, body.VisaRequired)
	assert.Equal(t, SourceOffline, body.Source)
	assert.Contains(t, body.Documents, "Work contract")
	assert.Empty(t, body.Notes)

	rr = testutil.ExecuteRequest(r, httptest.NewRequest(http.MethodGet, "/travel/requirements?passport=IND", nil))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	env := testutil.ParseEnvelope(t, rr, nil)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "destination")
}
