// internal/services/signin_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/config"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/lms"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/models"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/repositories"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/scancode"
	"github.com/gaojunran/tronclass-signin-api-cqupt/internal/utils"
)

const searchSpaceSize = 10000 // numeric codes "0000".."9999"

// LMSClient is the slice of the LMS backend the signin flows need.
type LMSClient interface {
	AnswerQRRollcall(ctx context.Context, cookie, rollcallID string, body lms.CheckinRequest) (*lms.CheckinResult, error)
	AnswerNumberRollcall(ctx context.Context, cookie, rollcallID string, body lms.CheckinRequest) (*lms.CheckinResult, error)
	ActiveRollcalls(ctx context.Context, cookie string) ([]lms.Rollcall, error)
}

type ScanSigninResult struct {
	ScanRecord *models.ScanRecord      `json:"scan_result"`
	Attempts   []*models.SigninAttempt `json:"signin_results"`
}

type DigitalSigninResult struct {
	Tasks    []lms.Rollcall          `json:"tasks"`
	Attempts []*models.SigninAttempt `json:"signin_results"`
}

type SigninService interface {
	// ProcessScan records the raw scan, decodes it and checks every eligible
	// user in concurrently. The batch never fails as a whole; per-user
	// failures become failure-flavored attempt records.
	ProcessScan(ctx context.Context, scanResult string, requesterID *uuid.UUID) (*ScanSigninResult, error)

	// ProcessDigital answers open numeric rollcalls. With an explicit code it
	// fans out immediately; without one it brute-forces the 4-digit space
	// using the requester's account, guarded by the process-wide SearchLock.
	ProcessDigital(ctx context.Context, code *string, requesterID uuid.UUID) (*DigitalSigninResult, error)
}

type signinService struct {
	cfg      *config.Config
	users    repositories.UserRepository
	cookies  repositories.CookieRepository
	absences repositories.AbsenceRepository
	scans    repositories.ScanRecordRepository
	attempts repositories.SigninAttemptRepository
	lms      LMSClient
	search   *SearchLock
}

func NewSigninService(
	cfg *config.Config,
	users repositories.UserRepository,
	cookies repositories.CookieRepository,
	absences repositories.AbsenceRepository,
	scans repositories.ScanRecordRepository,
	attempts repositories.SigninAttemptRepository,
	lmsClient LMSClient,
) SigninService {
	return &signinService{
		cfg:      cfg,
		users:    users,
		cookies:  cookies,
		absences: absences,
		scans:    scans,
		attempts: attempts,
		lms:      lmsClient,
		search:   NewSearchLock(),
	}
}

// -----------------------------------------------------------------------------
// QR scan flow
// -----------------------------------------------------------------------------

func (s *signinService) ProcessScan(ctx context.Context, scanResult string, requesterID *uuid.UUID) (*ScanSigninResult, error) {
	rec := &models.ScanRecord{
		ID:        uuid.New(),
		Result:    scanResult,
		UserID:    requesterID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.scans.Create(ctx, rec); err != nil {
		return nil, err
	}

	payload := scancode.Decode(scanResult)
	rollcallID, _ := payload.Text(scancode.KeyRollcallID)
	data, _ := payload.Text(scancode.KeyData)

	eligible, err := s.eligibleUsers(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	attempts := s.fanOut(ctx, eligible, attemptSpec{
		rollcallID:   rollcallID,
		data:         data,
		scanRecordID: &rec.ID,
	})
	return &ScanSigninResult{ScanRecord: rec, Attempts: attempts}, nil
}

// -----------------------------------------------------------------------------
// Digital (numeric) flow
// -----------------------------------------------------------------------------

func (s *signinService) ProcessDigital(ctx context.Context, code *string, requesterID uuid.UUID) (*DigitalSigninResult, error) {
	explicit := code != nil && *code != ""
	if !explicit {
		if !s.search.TryAcquire() {
			return nil, utils.ErrSearchInProgress
		}
		defer s.search.Release()
	}

	eligible, err := s.eligibleUsers(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, utils.ErrNoEligibleUsers
	}

	cookie, err := s.cookies.LatestForUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if cookie == nil {
		return nil, utils.ErrNoCookie
	}

	tasks, err := s.lms.ActiveRollcalls(ctx, cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrTransport, err)
	}

	var numeric []lms.Rollcall
	for _, task := range tasks {
		if task.NeedsNumberCode() {
			numeric = append(numeric, task)
		}
	}
	if len(numeric) == 0 {
		return nil, utils.ErrNoActiveTask
	}

	var all []*models.SigninAttempt
	for _, task := range numeric {
		rollcallID := task.RollcallID.String()

		taskCode := ""
		if explicit {
			taskCode = *code
		} else {
			taskCode, err = s.bruteForce(ctx, rollcallID, cookie.Value)
			if err != nil {
				return nil, err
			}
		}

		all = append(all, s.fanOut(ctx, eligible, attemptSpec{
			rollcallID: rollcallID,
			numberCode: taskCode,
		})...)
	}

	return &DigitalSigninResult{Tasks: numeric, Attempts: all}, nil
}

// bruteForce walks "0000".."9999" in ascending batches, probing every code in
// a batch concurrently with the requester's cookie. Batches are strictly
// sequential so a hit short-circuits the rest of the space; probes are
// audit-suppressed — only the final fan-out writes attempt records.
func (s *signinService) bruteForce(ctx context.Context, rollcallID, cookie string) (string, error) {
	batchSize := s.cfg.BruteForceBatchSize
	utils.Logger.Infof("Starting numeric-code search for rollcall %s (batch size %d)", rollcallID, batchSize)

	for start := 0; start < searchSpaceSize; start += batchSize {
		end := start + batchSize
		if end > searchSpaceSize {
			end = searchSpaceSize
		}

		hits := make([]bool, end-start)
		var wg sync.WaitGroup
		for n := start; n < end; n++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				hits[n-start] = s.probe(ctx, cookie, rollcallID, fmt.Sprintf("%04d", n))
			}(n)
		}
		wg.Wait()

		for i, hit := range hits {
			if hit {
				code := fmt.Sprintf("%04d", start+i)
				utils.Logger.Infof("Found numeric code %s for rollcall %s", code, rollcallID)
				return code, nil
			}
		}
	}

	utils.Logger.Warnf("Numeric-code search exhausted for rollcall %s", rollcallID)
	return "", utils.ErrCodeExhausted
}

// probe fires one throwaway attempt and reports only acceptance. Errors are
// swallowed: a failed probe and a wrong code are the same thing here.
func (s *signinService) probe(ctx context.Context, cookie, rollcallID, code string) bool {
	res, err := s.lms.AnswerNumberRollcall(ctx, cookie, rollcallID, lms.CheckinRequest{
		NumberCode: code,
		DeviceID:   uuid.NewString(),
	})
	return err == nil && res.OK()
}

// -----------------------------------------------------------------------------
// Eligibility
// -----------------------------------------------------------------------------

// eligibleUsers returns the auto-enabled users not on leave at the given
// instant, in stored order.
func (s *signinService) eligibleUsers(ctx context.Context, at time.Time) ([]*models.UserWithCookie, error) {
	auto, err := s.users.ListAutoEnabled(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]*models.UserWithCookie, 0, len(auto))
	for _, u := range auto {
		absent, err := s.absences.IsAbsent(ctx, u.ID, at)
		if err != nil {
			return nil, err
		}
		if !absent {
			eligible = append(eligible, u)
		}
	}
	return eligible, nil
}

// -----------------------------------------------------------------------------
// Fan-out and single attempts
// -----------------------------------------------------------------------------

type attemptSpec struct {
	rollcallID   string
	data         string // QR mode
	numberCode   string // numeric mode
	scanRecordID *uuid.UUID
}

// fanOut runs one attempt per user concurrently and gathers every result:
// no per-user failure, panic included, aborts the siblings. Every gathered
// record is persisted before returning; results arrive in completion order.
func (s *signinService) fanOut(ctx context.Context, users []*models.UserWithCookie, spec attemptSpec) []*models.SigninAttempt {
	results := make([]*models.SigninAttempt, len(users))

	var wg sync.WaitGroup
	for i, u := range users {
		wg.Add(1)
		go func(i int, u *models.UserWithCookie) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					utils.Logger.Errorf("signin attempt panicked for user %s: %v", u.ID, r)
				}
			}()
			results[i] = s.attempt(ctx, u, spec)
		}(i, u)
	}
	wg.Wait()

	out := make([]*models.SigninAttempt, 0, len(results))
	for _, rec := range results {
		if rec == nil {
			continue
		}
		if err := s.attempts.Create(ctx, rec); err != nil {
			utils.Logger.WithError(err).Warnf("failed to persist signin attempt for user %s", rec.UserID)
		}
		out = append(out, rec)
	}
	return out
}

// attempt performs one outbound check-in call for one user. It never returns
// an error: transport and precondition failures become failure records.
func (s *signinService) attempt(ctx context.Context, u *models.UserWithCookie, spec attemptSpec) *models.SigninAttempt {
	rec := &models.SigninAttempt{
		ID:           uuid.New(),
		UserID:       u.ID,
		Cookie:       u.LatestCookie,
		ScanRecordID: spec.scanRecordID,
		Outcome:      models.AttemptFailure,
		CreatedAt:    time.Now().UTC(),
	}

	if u.LatestCookie == nil {
		return failAttempt(rec, utils.ErrNoCookie.Error())
	}
	if spec.rollcallID == "" {
		return failAttempt(rec, "scan payload has no rollcallId")
	}
	if spec.data == "" && spec.numberCode == "" {
		return failAttempt(rec, "scan payload has no data field")
	}

	req := lms.CheckinRequest{
		Data:       spec.data,
		NumberCode: spec.numberCode,
		DeviceID:   uuid.NewString(),
	}
	rec.RequestPayload, _ = json.Marshal(req)

	var (
		res *lms.CheckinResult
		err error
	)
	if spec.numberCode != "" {
		res, err = s.lms.AnswerNumberRollcall(ctx, *u.LatestCookie, spec.rollcallID, req)
	} else {
		res, err = s.lms.AnswerQRRollcall(ctx, *u.LatestCookie, spec.rollcallID, req)
	}
	if err != nil {
		return failAttempt(rec, fmt.Sprintf("%s: %v", utils.ErrTransport, err))
	}

	status := res.StatusCode
	rec.ResponseStatus = &status
	rec.ResponseBody = asJSON(res.Body)
	if res.OK() {
		rec.Outcome = models.AttemptSuccess
	}
	return rec
}

func failAttempt(rec *models.SigninAttempt, msg string) *models.SigninAttempt {
	rec.Outcome = models.AttemptFailure
	rec.Error = &msg
	return rec
}

// asJSON wraps a response body so it always fits a jsonb column, even when
// the upstream answers with HTML or plain text.
func asJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}
