package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
	"cashflow/internal/records"
	"cashflow/internal/records/memory"
	"cashflow/internal/services"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	_, err := s.CreateObligation(ctx, core.Obligation{Name: "Rent", Category: "Housing", Amount: core.Money{Cents: 145000}, Frequency: core.FrequencyMonthly, DueDay: 1})
	require.NoError(t, err)
	storage, err := s.CreateObligation(ctx, core.Obligation{Name: "Storage unit", Category: "Housing", Amount: core.Money{Cents: 8500}, Frequency: core.FrequencyMonthly, DueDay: 31})
	require.NoError(t, err)
	_, err = s.CreateCreditAccount(ctx, core.CreditAccount{Name: "Visa", Type: core.AccountCreditCard, MinimumPayment: core.Money{Cents: 3500}, PaymentDueDay: 15})
	require.NoError(t, err)
	_, err = s.CreateRecurringIncomeRule(ctx, core.RecurringIncomeRule{
		Source: "Payroll", Amount: core.Money{Cents: 188234}, Frequency: core.IncomeBiWeekly,
		StartDate: core.NewDate(2025, 11, 5), Active: true,
	})
	require.NoError(t, err)
	_, err = s.AddPastDueInstance(ctx, core.PastDueInstance{OwnerKind: core.OwnerBill, OwnerID: storage.ID, Period: "October 2025", Amount: core.Money{Cents: 8500}})
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, store records.Store, opts ...Option) *Server {
	t.Helper()
	svc := services.NewProjectionService(store, services.WithClock(func() time.Time {
		return time.Date(2025, time.November, 15, 9, 0, 0, 0, time.UTC)
	}))
	srv := NewServer(":0", store, svc, opts...)
	t.Cleanup(srv.limiter.stop)
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), "body: %s", rr.Body.String())
}

type projectionBody struct {
	Today       string `json:"today"`
	Checkpoints []struct {
		Date             string  `json:"date"`
		DaysAway         int     `json:"days_away"`
		PeriodEnd        string  `json:"period_end"`
		TotalObligations float64 `json:"total_obligations"`
		TotalIncome      float64 `json:"total_income"`
		FundingGap       float64 `json:"funding_gap"`
		Status           string  `json:"status"`
		Obligations      []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"obligations"`
	} `json:"checkpoints"`
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	notReady := newTestServer(t, memory.New(), WithReadiness(func(context.Context) error {
		return errors.New("database locked")
	}))
	rr = do(t, notReady, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "trace-123", rr.Header().Get("X-Request-ID"))
}

func TestProjectionEndpoint(t *testing.T) {
	srv := newTestServer(t, seededStore(t))

	rr := do(t, srv, http.MethodGet, "/api/projection", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body projectionBody
	decode(t, rr, &body)
	assert.Equal(t, "2025-11-15", body.Today)
	require.Len(t, body.Checkpoints, 3)

	first := body.Checkpoints[0]
	assert.Equal(t, "2025-11-20", first.Date)
	assert.Equal(t, 5, first.DaysAway)
	assert.Equal(t, "2025-11-30", first.PeriodEnd)
	assert.InDelta(t, 170.0, first.FundingGap, 0.001)
	assert.Equal(t, "warning", first.Status)

	var names []string
	for _, o := range first.Obligations {
		names = append(names, o.Name)
	}
	assert.Contains(t, names, "Storage unit - October 2025 (PAST DUE)")
}

func TestProjectionEndpointExplicitToday(t *testing.T) {
	srv := newTestServer(t, seededStore(t))

	rr := do(t, srv, http.MethodGet, "/api/projection?today=2026-01-02", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body projectionBody
	decode(t, rr, &body)
	assert.Equal(t, "2026-01-02", body.Today)
	assert.Equal(t, "2026-01-10", body.Checkpoints[0].Date)

	rr = do(t, srv, http.MethodGet, "/api/projection?today=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var errBody errorResponse
	decode(t, rr, &errBody)
	assert.Contains(t, errBody.Error, "invalid today")
}

func TestProjectionReflectsWrites(t *testing.T) {
	srv := newTestServer(t, seededStore(t))

	rr := do(t, srv, http.MethodGet, "/api/projection", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var before projectionBody
	decode(t, rr, &before)

	rr = do(t, srv, http.MethodPost, "/api/obligations",
		`{"name":"Gym","category":"Health","amount":"50.00","frequency":"monthly","due_day":25}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/projection", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var after projectionBody
	decode(t, rr, &after)

	assert.InDelta(t, before.Checkpoints[0].FundingGap+50, after.Checkpoints[0].FundingGap, 0.001)
}

// gatedStore holds the first snapshot it serves until release is closed.
type gatedStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Snapshot(ctx context.Context) (records.Snapshot, error) {
	first := false
	g.once.Do(func() { first = true })
	snap, err := g.Store.Snapshot(ctx)
	if first {
		close(g.entered)
		<-g.release
	}
	return snap, err
}

func obligationNames(body projectionBody, checkpoint int) []string {
	var names []string
	for _, o := range body.Checkpoints[checkpoint].Obligations {
		names = append(names, o.Name)
	}
	return names
}

func TestProjectionReflectsWriteDuringInFlightRequest(t *testing.T) {
	store := &gatedStore{Store: seededStore(t), entered: make(chan struct{}), release: make(chan struct{})}
	srv := newTestServer(t, store)

	slow := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		slow <- do(t, srv, http.MethodGet, "/api/projection", "")
	}()
	<-store.entered

	rr := do(t, srv, http.MethodPost, "/api/obligations",
		`{"name":"Car","category":"Transport","amount":"120.00","frequency":"monthly","due_day":25}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/projection", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var during projectionBody
	decode(t, rr, &during)
	assert.Contains(t, obligationNames(during, 0), "Car")

	close(store.release)
	stale := <-slow
	require.Equal(t, http.StatusOK, stale.Code)
	var early projectionBody
	decode(t, stale, &early)
	assert.NotContains(t, obligationNames(early, 0), "Car")

	rr = do(t, srv, http.MethodGet, "/api/projection", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var after projectionBody
	decode(t, rr, &after)
	assert.Contains(t, obligationNames(after, 0), "Car")
	assert.InDelta(t, during.Checkpoints[0].FundingGap, after.Checkpoints[0].FundingGap, 0.001)
}

func TestCheckpointsEndpoint(t *testing.T) {
	srv := newTestServer(t, seededStore(t))

	rr := do(t, srv, http.MethodGet, "/api/checkpoints", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Checkpoints []string `json:"checkpoints"`
		Periods     []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"periods"`
	}
	decode(t, rr, &body)
	assert.Equal(t, []string{"2025-11-20", "2025-12-01", "2025-12-10"}, body.Checkpoints)
	require.Len(t, body.Periods, 3)
	assert.Equal(t, "2025-11-30", body.Periods[0].End)
	assert.Equal(t, "2025-12-19", body.Periods[2].End)
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t, seededStore(t))

	rr := do(t, srv, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var settings core.CheckpointSettings
	decode(t, rr, &settings)
	assert.Equal(t, core.ModeFixedDays, settings.Mode)

	rr = do(t, srv, http.MethodPatch, "/api/settings", `{"mode":"custom-days","custom_days":"5,ten"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPatch, "/api/settings", `{"count":1000000000}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/settings", "")
	decode(t, rr, &settings)
	assert.Equal(t, 3, settings.Count)

	rr = do(t, srv, http.MethodPatch, "/api/settings", `{"mode":"custom-days","custom_days":"5,25","count":2}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/checkpoints", "")
	var body struct {
		Checkpoints []string `json:"checkpoints"`
	}
	decode(t, rr, &body)
	assert.Equal(t, []string{"2025-11-25", "2025-12-05"}, body.Checkpoints)
}

func TestObligationErrors(t *testing.T) {
	srv := newTestServer(t, seededStore(t))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/obligations", `{"name":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/obligations", ``, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/obligations", `{"name":"X","colour":"red"}`, http.StatusBadRequest},
		{"negative amount", http.MethodPost, "/api/obligations", `{"name":"X","category":"Y","amount":-5,"frequency":"monthly","due_day":3}`, http.StatusUnprocessableEntity},
		{"missing name", http.MethodPost, "/api/obligations", `{"category":"Y","amount":5,"frequency":"monthly","due_day":3}`, http.StatusUnprocessableEntity},
		{"bad id", http.MethodPatch, "/api/obligations/abc", `{}`, http.StatusBadRequest},
		{"unknown id", http.MethodPatch, "/api/obligations/999", `{"name":"Z"}`, http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/obligations/999", ``, http.StatusNotFound},
		{"wrong method", http.MethodPut, "/api/obligations", `{}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.want != http.StatusMethodNotAllowed {
				var body errorResponse
				decode(t, rr, &body)
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestObligationLifecycle(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodPost, "/api/obligations",
		`{"name":"Internet","category":"Utilities","amount":60,"frequency":"monthly","due_day":22,"autopay":true}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created core.Obligation
	decode(t, rr, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, core.StatusPending, created.Status)

	rr = do(t, srv, http.MethodPatch, "/api/obligations/"+itoa(created.ID), `{"amount":"65.50"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated core.Obligation
	decode(t, rr, &updated)
	assert.Equal(t, int64(6550), updated.Amount.Cents)

	rr = do(t, srv, http.MethodPost, "/api/obligations/mark-paid", `{"start":"2025-11-20","end":"2025-11-30"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var marked map[string]int
	decode(t, rr, &marked)
	assert.Equal(t, 1, marked["updated"])

	rr = do(t, srv, http.MethodGet, "/api/obligations", "")
	var list []core.Obligation
	decode(t, rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, core.StatusPaid, list[0].Status)
	assert.Equal(t, "2025-11-15", list[0].LastPaidDate.String())

	rr = do(t, srv, http.MethodPost, "/api/obligations/mark-paid", `{"start":"2025-11-30","end":"2025-11-20"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/obligations/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCreditAccountEndpoints(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodPost, "/api/credit-accounts",
		`{"name":"Visa","account_type":"credit_card","minimum_payment":35,"payment_due_day":25}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var acct core.CreditAccount
	decode(t, rr, &acct)

	path := "/api/credit-accounts/" + itoa(acct.ID) + "/overrides/2025/11"
	rr = do(t, srv, http.MethodPut, path, `{"amount":"0"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodPut, "/api/credit-accounts/"+itoa(acct.ID)+"/overrides/2025/13", `{"amount":10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodPut, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, srv, http.MethodPut, "/api/credit-accounts/999/overrides/2025/11", `{"amount":10}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// a zero override suppresses November's payment
	rr = do(t, srv, http.MethodGet, "/api/projection", "")
	var body projectionBody
	decode(t, rr, &body)
	for _, o := range body.Checkpoints[0].Obligations {
		assert.NotEqual(t, "Visa - Min Payment", o.Name)
	}

	rr = do(t, srv, http.MethodPatch, "/api/credit-accounts/"+itoa(acct.ID), `{"minimum_payment":40}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/credit-accounts", "")
	var list []core.CreditAccount
	decode(t, rr, &list)
	require.Len(t, list, 1)
	assert.Equal(t, int64(4000), list[0].MinimumPayment.Cents)
	require.Len(t, list[0].Overrides, 1)
	assert.True(t, list[0].Overrides[0].Amount.IsZero())
}

func TestIncomeRuleEndpoints(t *testing.T) {
	srv := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodPost, "/api/income-rules",
		`{"source":"Payroll","amount":"1882.34","frequency":"bi-weekly","start_date":"2025-11-05"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var rule core.RecurringIncomeRule
	decode(t, rr, &rule)
	assert.True(t, rule.Active)

	rr = do(t, srv, http.MethodPost, "/api/income-rules",
		`{"source":"Rent share","amount":300,"frequency":"monthly","start_date":"2025-11-01"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "monthly rule without day_of_month")

	rr = do(t, srv, http.MethodPatch, "/api/income-rules/"+itoa(rule.ID), `{"amount":1900}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodDelete, "/api/income-rules/"+itoa(rule.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/income-rules", "")
	var list []core.RecurringIncomeRule
	decode(t, rr, &list)
	assert.Empty(t, list)
}

func TestPastDueEndpoints(t *testing.T) {
	store := seededStore(t)
	srv := newTestServer(t, store)

	rr := do(t, srv, http.MethodPost, "/api/past-due", `{"item_type":"credit","owner_id":3,"period":"October 2025","amount":35}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created core.PastDueInstance
	decode(t, rr, &created)
	assert.Equal(t, "Visa", created.ItemName)
	assert.Equal(t, "2025-11-15", created.CreatedDate.String())

	rr = do(t, srv, http.MethodPost, "/api/past-due", `{"item_type":"bill","owner_id":999,"period":"October 2025","amount":35}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/past-due", `{"item_type":"loan","owner_id":1,"period":"October 2025","amount":35}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/past-due/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/past-due", "")
	var list []core.PastDueInstance
	decode(t, rr, &list)
	assert.Len(t, list, 1)
}

// brokenSettingsStore serves a custom-days configuration the scheduler rejects.
type brokenSettingsStore struct {
	*memory.Store
}

var unparsableDays = core.CheckpointSettings{Mode: core.ModeCustomDays, Count: 3, CustomDays: "1,ten"}

func (brokenSettingsStore) GetCheckpointSettings(context.Context) (core.CheckpointSettings, error) {
	return unparsableDays, nil
}

func (b brokenSettingsStore) Snapshot(ctx context.Context) (records.Snapshot, error) {
	snap, err := b.Store.Snapshot(ctx)
	snap.Settings = unparsableDays
	return snap, err
}

func TestProjectionMisconfigured(t *testing.T) {
	srv := newTestServer(t, brokenSettingsStore{seededStore(t)})

	rr := do(t, srv, http.MethodGet, "/api/projection", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body errorResponse
	decode(t, rr, &body)
	assert.Contains(t, body.Error, "invalid projection configuration")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
