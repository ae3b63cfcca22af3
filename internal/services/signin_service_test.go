package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/config"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/lms"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

func init() {
	utils.InitLogger("signin-service-test")
}

// -----------------------------------------------------------------------------
// In-memory fakes
// -----------------------------------------------------------------------------

type fakeUserRepo struct {
	auto []*models.UserWithCookie
}

func (f *fakeUserRepo) Create(context.Context, *models.User) error { return nil }
func (f *fakeUserRepo) GetByID(context.Context, uuid.UUID) (*models.User, error) {
	return nil, utils.ErrUserNotFound
}
func (f *fakeUserRepo) ListWithCookies(context.Context) ([]*models.UserWithCookie, error) {
	return f.auto, nil
}
func (f *fakeUserRepo) ListAutoEnabled(context.Context) ([]*models.UserWithCookie, error) {
	return f.auto, nil
}
func (f *fakeUserRepo) Rename(context.Context, uuid.UUID, string) error { return nil }
func (f *fakeUserRepo) SetAuto(context.Context, uuid.UUID, bool) error  { return nil }
func (f *fakeUserRepo) Delete(context.Context, uuid.UUID) error         { return nil }

type fakeCookieRepo struct {
	latest map[uuid.UUID]*models.Cookie
}

func (f *fakeCookieRepo) Create(context.Context, *models.Cookie) error { return nil }
func (f *fakeCookieRepo) LatestForUser(_ context.Context, userID uuid.UUID) (*models.Cookie, error) {
	return f.latest[userID], nil
}
func (f *fakeCookieRepo) ListExpiring(context.Context, time.Time) ([]*models.Cookie, error) {
	return nil, nil
}

type fakeAbsenceRepo struct {
	absent map[uuid.UUID]bool
}

func (f *fakeAbsenceRepo) Create(context.Context, *models.Absence) error { return nil }
func (f *fakeAbsenceRepo) Delete(context.Context, uuid.UUID) error       { return nil }
func (f *fakeAbsenceRepo) IsAbsent(_ context.Context, userID uuid.UUID, _ time.Time) (bool, error) {
	return f.absent[userID], nil
}

type fakeScanRepo struct {
	mu      sync.Mutex
	records []*models.ScanRecord
}

func (f *fakeScanRepo) Create(_ context.Context, rec *models.ScanRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}
func (f *fakeScanRepo) List(context.Context, int, int, *uuid.UUID) ([]*models.ScanRecord, error) {
	return f.records, nil
}

type fakeAttemptRepo struct {
	mu      sync.Mutex
	records []*models.SigninAttempt
}

func (f *fakeAttemptRepo) Create(_ context.Context, a *models.SigninAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, a)
	return nil
}
func (f *fakeAttemptRepo) List(context.Context, int, int, *uuid.UUID) ([]*models.SigninAttempt, error) {
	return f.records, nil
}

// fakeLMS routes every call through pluggable funcs and counts the number
// rollcall calls so brute-force probe volume can be asserted.
type fakeLMS struct {
	mu          sync.Mutex
	numberCalls int

	answerQR     func(cookie, rollcallID string, body lms.CheckinRequest) (*lms.CheckinResult, error)
	answerNumber func(cookie, rollcallID string, body lms.CheckinRequest) (*lms.CheckinResult, error)
	rollcalls    func(cookie string) ([]lms.Rollcall, error)
}

func (f *fakeLMS) AnswerQRRollcall(_ context.Context, cookie, rollcallID string, body lms.CheckinRequest) (*lms.CheckinResult, error) {
	return f.answerQR(cookie, rollcallID, body)
}

func (f *fakeLMS) AnswerNumberRollcall(_ context.Context, cookie, rollcallID string, body lms.CheckinRequest) (*lms.CheckinResult, error) {
	f.mu.Lock()
	f.numberCalls++
	f.mu.Unlock()
	return f.answerNumber(cookie, rollcallID, body)
}

func (f *fakeLMS) ActiveRollcalls(_ context.Context, cookie string) ([]lms.Rollcall, error) {
	return f.rollcalls(cookie)
}

func (f *fakeLMS) numberCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numberCalls
}

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

func strPtr(s string) *string { return &s }

func testUser(name string, cookie *string) *models.UserWithCookie {
	return &models.UserWithCookie{
		User: models.User{
			ID:        uuid.New(),
			Name:      name,
			IsAuto:    true,
			CreatedAt: time.Now().UTC(),
		},
		LatestCookie: cookie,
	}
}

func okResult() *lms.CheckinResult {
	return &lms.CheckinResult{StatusCode: 200, Body: []byte(`{"message":"ok"}`)}
}

func rejectedResult() *lms.CheckinResult {
	return &lms.CheckinResult{StatusCode: 400, Body: []byte(`{"message":"wrong code"}`)}
}

func numericTask(id string) lms.Rollcall {
	return lms.Rollcall{RollcallID: json.Number(id), Status: "absent", IsNumber: true, IsRadar: false}
}

func newTestService(
	users *fakeUserRepo,
	cookies *fakeCookieRepo,
	absences *fakeAbsenceRepo,
	scans *fakeScanRepo,
	attempts *fakeAttemptRepo,
	client *fakeLMS,
	batchSize int,
) SigninService {
	cfg := &config.Config{BruteForceBatchSize: batchSize}
	return NewSigninService(cfg, users, cookies, absences, scans, attempts, client)
}

// -----------------------------------------------------------------------------
// QR scan flow
// -----------------------------------------------------------------------------

func TestProcessScanFansOutToEveryEligibleUser(t *testing.T) {
	good := testUser("alice", strPtr("session=alice"))
	noCookie := testUser("bob", nil)
	flaky := testUser("carol", strPtr("session=carol"))

	attempts := &fakeAttemptRepo{}
	scans := &fakeScanRepo{}
	client := &fakeLMS{
		answerQR: func(cookie, rollcallID string, _ lms.CheckinRequest) (*lms.CheckinResult, error) {
			if cookie == "session=carol" {
				return nil, errors.New("connection reset")
			}
			return okResult(), nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{good, noCookie, flaky}},
		&fakeCookieRepo{}, &fakeAbsenceRepo{}, scans, attempts, client, 500,
	)

	res, err := svc.ProcessScan(context.Background(), "3~checkin-data!4~593359", nil)
	require.NoError(t, err)
	require.NotNil(t, res.ScanRecord)
	require.Equal(t, "3~checkin-data!4~593359", res.ScanRecord.Result)
	require.Len(t, res.Attempts, 3)

	// One batch, one scan record, every attempt persisted.
	require.Len(t, scans.records, 1)
	require.Len(t, attempts.records, 3)

	byUser := map[uuid.UUID]*models.SigninAttempt{}
	for _, a := range res.Attempts {
		byUser[a.UserID] = a
	}

	require.Equal(t, models.AttemptSuccess, byUser[good.ID].Outcome)
	require.Equal(t, 200, *byUser[good.ID].ResponseStatus)

	require.Equal(t, models.AttemptFailure, byUser[noCookie.ID].Outcome)
	require.Equal(t, utils.ErrNoCookie.Error(), *byUser[noCookie.ID].Error)

	require.Equal(t, models.AttemptFailure, byUser[flaky.ID].Outcome)
	require.Contains(t, *byUser[flaky.ID].Error, "connection reset")
}

func TestProcessScanMissingRollcallID(t *testing.T) {
	u := testUser("alice", strPtr("session=alice"))
	attempts := &fakeAttemptRepo{}
	var qrCalls int32
	client := &fakeLMS{
		answerQR: func(string, string, lms.CheckinRequest) (*lms.CheckinResult, error) {
			atomic.AddInt32(&qrCalls, 1)
			return okResult(), nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{u}},
		&fakeCookieRepo{}, &fakeAbsenceRepo{}, &fakeScanRepo{}, attempts, client, 500,
	)

	res, err := svc.ProcessScan(context.Background(), "not-a-checkin-code", nil)
	require.NoError(t, err)
	require.Len(t, res.Attempts, 1)
	require.Equal(t, models.AttemptFailure, res.Attempts[0].Outcome)
	require.Contains(t, *res.Attempts[0].Error, "rollcallId")

	// No request left the process for an undecodable scan.
	require.EqualValues(t, 0, atomic.LoadInt32(&qrCalls))
}

func TestProcessScanSkipsAbsentUsers(t *testing.T) {
	present := testUser("alice", strPtr("session=alice"))
	away := testUser("bob", strPtr("session=bob"))

	client := &fakeLMS{
		answerQR: func(string, string, lms.CheckinRequest) (*lms.CheckinResult, error) {
			return okResult(), nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{present, away}},
		&fakeCookieRepo{},
		&fakeAbsenceRepo{absent: map[uuid.UUID]bool{away.ID: true}},
		&fakeScanRepo{}, &fakeAttemptRepo{}, client, 500,
	)

	res, err := svc.ProcessScan(context.Background(), "3~data!4~111", nil)
	require.NoError(t, err)
	require.Len(t, res.Attempts, 1)
	require.Equal(t, present.ID, res.Attempts[0].UserID)
}

// -----------------------------------------------------------------------------
// Digital flow
// -----------------------------------------------------------------------------

func TestProcessDigitalBruteForceFindsCode(t *testing.T) {
	requester := testUser("alice", strPtr("session=alice"))
	other := testUser("bob", strPtr("session=bob"))

	attempts := &fakeAttemptRepo{}
	client := &fakeLMS{
		rollcalls: func(string) ([]lms.Rollcall, error) {
			return []lms.Rollcall{numericTask("4242")}, nil
		},
		answerNumber: func(_, _ string, body lms.CheckinRequest) (*lms.CheckinResult, error) {
			if body.NumberCode == "0007" {
				return okResult(), nil
			}
			return rejectedResult(), nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{requester, other}},
		&fakeCookieRepo{latest: map[uuid.UUID]*models.Cookie{
			requester.ID: {ID: uuid.New(), UserID: requester.ID, Value: "session=alice"},
		}},
		&fakeAbsenceRepo{}, &fakeScanRepo{}, attempts, client, 10,
	)

	res, err := svc.ProcessDigital(context.Background(), nil, requester.ID)
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	require.Len(t, res.Attempts, 2)
	for _, a := range res.Attempts {
		require.Equal(t, models.AttemptSuccess, a.Outcome)
		require.Contains(t, string(a.RequestPayload), `"0007"`)
	}

	// The hit sits in the first batch of ten, so later batches are never
	// probed: ten probes plus one fan-out call per user.
	require.LessOrEqual(t, client.numberCallCount(), 10+len(res.Attempts))

	// Probes leave no attempt records, only the fan-out does.
	require.Len(t, attempts.records, 2)
}

func TestProcessDigitalExplicitCode(t *testing.T) {
	requester := testUser("alice", strPtr("session=alice"))

	var sent lms.CheckinRequest
	var sentMu sync.Mutex
	client := &fakeLMS{
		rollcalls: func(string) ([]lms.Rollcall, error) {
			return []lms.Rollcall{numericTask("4242")}, nil
		},
		answerNumber: func(_, _ string, body lms.CheckinRequest) (*lms.CheckinResult, error) {
			sentMu.Lock()
			sent = body
			sentMu.Unlock()
			return okResult(), nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{requester}},
		&fakeCookieRepo{latest: map[uuid.UUID]*models.Cookie{
			requester.ID: {ID: uuid.New(), UserID: requester.ID, Value: "session=alice"},
		}},
		&fakeAbsenceRepo{}, &fakeScanRepo{}, &fakeAttemptRepo{}, client, 10,
	)

	res, err := svc.ProcessDigital(context.Background(), strPtr("1234"), requester.ID)
	require.NoError(t, err)
	require.Len(t, res.Attempts, 1)
	require.Equal(t, models.AttemptSuccess, res.Attempts[0].Outcome)
	require.Equal(t, "1234", sent.NumberCode)

	// No search ran, so exactly one call per user.
	require.Equal(t, 1, client.numberCallCount())
}

func TestProcessDigitalSecondSearchIsRejected(t *testing.T) {
	requester := testUser("alice", strPtr("session=alice"))

	entered := make(chan struct{})
	release := make(chan struct{})
	var enterOnce sync.Once
	client := &fakeLMS{
		rollcalls: func(string) ([]lms.Rollcall, error) {
			enterOnce.Do(func() { close(entered) })
			<-release
			return nil, nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{requester}},
		&fakeCookieRepo{latest: map[uuid.UUID]*models.Cookie{
			requester.ID: {ID: uuid.New(), UserID: requester.ID, Value: "session=alice"},
		}},
		&fakeAbsenceRepo{}, &fakeScanRepo{}, &fakeAttemptRepo{}, client, 10,
	)

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.ProcessDigital(context.Background(), nil, requester.ID)
		firstDone <- err
	}()

	<-entered // first request holds the search lock

	_, err := svc.ProcessDigital(context.Background(), nil, requester.ID)
	require.ErrorIs(t, err, utils.ErrSearchInProgress)

	close(release)
	require.ErrorIs(t, <-firstDone, utils.ErrNoActiveTask)

	// Lock is released once the first request finishes.
	_, err = svc.ProcessDigital(context.Background(), nil, requester.ID)
	require.ErrorIs(t, err, utils.ErrNoActiveTask)
}

func TestProcessDigitalExplicitCodeBypassesSearchLock(t *testing.T) {
	requester := testUser("alice", strPtr("session=alice"))

	client := &fakeLMS{
		rollcalls: func(string) ([]lms.Rollcall, error) {
			return []lms.Rollcall{numericTask("4242")}, nil
		},
		answerNumber: func(string, string, lms.CheckinRequest) (*lms.CheckinResult, error) {
			return okResult(), nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{requester}},
		&fakeCookieRepo{latest: map[uuid.UUID]*models.Cookie{
			requester.ID: {ID: uuid.New(), UserID: requester.ID, Value: "session=alice"},
		}},
		&fakeAbsenceRepo{}, &fakeScanRepo{}, &fakeAttemptRepo{}, client, 10,
	)

	inner := svc.(*signinService)
	require.True(t, inner.search.TryAcquire())
	defer inner.search.Release()

	res, err := svc.ProcessDigital(context.Background(), strPtr("1234"), requester.ID)
	require.NoError(t, err)
	require.Len(t, res.Attempts, 1)
}

func TestProcessDigitalErrorCases(t *testing.T) {
	requester := testUser("alice", strPtr("session=alice"))
	withCookie := &fakeCookieRepo{latest: map[uuid.UUID]*models.Cookie{
		requester.ID: {ID: uuid.New(), UserID: requester.ID, Value: "session=alice"},
	}}

	t.Run("no eligible users", func(t *testing.T) {
		svc := newTestService(
			&fakeUserRepo{}, withCookie, &fakeAbsenceRepo{},
			&fakeScanRepo{}, &fakeAttemptRepo{}, &fakeLMS{}, 10,
		)
		_, err := svc.ProcessDigital(context.Background(), nil, requester.ID)
		require.ErrorIs(t, err, utils.ErrNoEligibleUsers)
	})

	t.Run("requester has no cookie", func(t *testing.T) {
		svc := newTestService(
			&fakeUserRepo{auto: []*models.UserWithCookie{requester}},
			&fakeCookieRepo{}, &fakeAbsenceRepo{},
			&fakeScanRepo{}, &fakeAttemptRepo{}, &fakeLMS{}, 10,
		)
		_, err := svc.ProcessDigital(context.Background(), nil, requester.ID)
		require.ErrorIs(t, err, utils.ErrNoCookie)
	})

	t.Run("radar feed unreachable", func(t *testing.T) {
		client := &fakeLMS{
			rollcalls: func(string) ([]lms.Rollcall, error) {
				return nil, errors.New("dial tcp: timeout")
			},
		}
		svc := newTestService(
			&fakeUserRepo{auto: []*models.UserWithCookie{requester}},
			withCookie, &fakeAbsenceRepo{},
			&fakeScanRepo{}, &fakeAttemptRepo{}, client, 10,
		)
		_, err := svc.ProcessDigital(context.Background(), nil, requester.ID)
		require.ErrorIs(t, err, utils.ErrTransport)
	})

	t.Run("no numeric rollcall open", func(t *testing.T) {
		client := &fakeLMS{
			rollcalls: func(string) ([]lms.Rollcall, error) {
				return []lms.Rollcall{
					{RollcallID: "1", Status: "absent", IsNumber: false, IsRadar: false},
					{RollcallID: "2", Status: "absent", IsNumber: true, IsRadar: true},
					{RollcallID: "3", Status: "on_call", IsNumber: true, IsRadar: false},
				}, nil
			},
		}
		svc := newTestService(
			&fakeUserRepo{auto: []*models.UserWithCookie{requester}},
			withCookie, &fakeAbsenceRepo{},
			&fakeScanRepo{}, &fakeAttemptRepo{}, client, 10,
		)
		_, err := svc.ProcessDigital(context.Background(), nil, requester.ID)
		require.ErrorIs(t, err, utils.ErrNoActiveTask)
	})
}

func TestProcessDigitalSearchExhausted(t *testing.T) {
	requester := testUser("alice", strPtr("session=alice"))

	client := &fakeLMS{
		rollcalls: func(string) ([]lms.Rollcall, error) {
			return []lms.Rollcall{numericTask("4242")}, nil
		},
		answerNumber: func(string, string, lms.CheckinRequest) (*lms.CheckinResult, error) {
			return rejectedResult(), nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{requester}},
		&fakeCookieRepo{latest: map[uuid.UUID]*models.Cookie{
			requester.ID: {ID: uuid.New(), UserID: requester.ID, Value: "session=alice"},
		}},
		&fakeAbsenceRepo{}, &fakeScanRepo{}, &fakeAttemptRepo{}, client, 2500,
	)

	_, err := svc.ProcessDigital(context.Background(), nil, requester.ID)
	require.ErrorIs(t, err, utils.ErrCodeExhausted)
	require.Equal(t, searchSpaceSize, client.numberCallCount())

	// The lock is released even on failure.
	inner := svc.(*signinService)
	require.True(t, inner.search.TryAcquire())
	inner.search.Release()
}

// -----------------------------------------------------------------------------
// SearchLock
// -----------------------------------------------------------------------------

func TestSearchLockSingleHolder(t *testing.T) {
	l := NewSearchLock()
	require.True(t, l.TryAcquire())
	require.False(t, l.TryAcquire())
	l.Release()
	require.True(t, l.TryAcquire())
	l.Release()
}

func TestSearchLockUnderContention(t *testing.T) {
	l := NewSearchLock()

	var won int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire() {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, won)
}

// Guards the request-shape invariant: QR attempts carry data, numeric
// attempts carry numberCode, never both.
func TestAttemptRequestShape(t *testing.T) {
	u := testUser("alice", strPtr("session=alice"))

	var qrBody, numBody lms.CheckinRequest
	client := &fakeLMS{
		answerQR: func(_, _ string, body lms.CheckinRequest) (*lms.CheckinResult, error) {
			qrBody = body
			return okResult(), nil
		},
		answerNumber: func(_, _ string, body lms.CheckinRequest) (*lms.CheckinResult, error) {
			numBody = body
			return okResult(), nil
		},
	}

	svc := newTestService(
		&fakeUserRepo{auto: []*models.UserWithCookie{u}},
		&fakeCookieRepo{latest: map[uuid.UUID]*models.Cookie{
			u.ID: {ID: uuid.New(), UserID: u.ID, Value: "session=alice"},
		}},
		&fakeAbsenceRepo{}, &fakeScanRepo{}, &fakeAttemptRepo{}, client, 10,
	)
	inner := svc.(*signinService)

	qr := inner.attempt(context.Background(), u, attemptSpec{rollcallID: "42", data: "payload"})
	require.Equal(t, models.AttemptSuccess, qr.Outcome)
	require.Equal(t, "payload", qrBody.Data)
	require.Empty(t, qrBody.NumberCode)
	require.NotEmpty(t, qrBody.DeviceID)
	_, parseErr := uuid.Parse(qrBody.DeviceID)
	require.NoError(t, parseErr)

	num := inner.attempt(context.Background(), u, attemptSpec{rollcallID: "42", numberCode: "0042"})
	require.Equal(t, models.AttemptSuccess, num.Outcome)
	require.Equal(t, "0042", numBody.NumberCode)
	require.Empty(t, numBody.Data)
	require.NotEqual(t, qrBody.DeviceID, numBody.DeviceID)

	require.False(t, strings.Contains(string(qr.RequestPayload), "numberCode"))
}
