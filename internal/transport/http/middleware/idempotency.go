package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"hrflow/internal/platform/querier"
	"hrflow/internal/transport/http/api"
)

var (
	ErrIdempotencyConflict   = errors.New("idempotency key conflicts with existing request")
	ErrIdempotencyInProgress = errors.New("a request with this idempotency key is still in progress")
)

const (
	IdempotencyHeader = "Idempotency-Key"

	// reservationTTL bounds how long a crashed request can hold a key.
	reservationTTL = 5 * time.Minute
)

// IdempotencyBackend reserves a key before the handler runs and stores the
// response once it succeeds. Reserve reports reserved=false with the stored
// response when the key already completed.
type IdempotencyBackend interface {
	Reserve(ctx context.Context, employeeCode, endpoint, key, requestHash string) (stored json.RawMessage, reserved bool, err error)
	Complete(ctx context.Context, employeeCode, endpoint, key, requestHash string, response json.RawMessage) error
	Release(ctx context.Context, employeeCode, endpoint, key string) error
}

type IdempotencyStore struct {
	db querier.Querier
}

func NewIdempotencyStore(db querier.Querier) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *IdempotencyStore) Reserve(ctx context.Context, employeeCode, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	if s == nil || s.db == nil {
		return nil, true, nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (employee_code, key, endpoint, request_hash, response_json)
    VALUES ($1, $2, $3, $4, NULL)
    ON CONFLICT (employee_code, key, endpoint)
    DO UPDATE SET request_hash = EXCLUDED.request_hash, created_at = now()
    WHERE idempotency_keys.response_json IS NULL
      AND idempotency_keys.created_at < now() - make_interval(secs => $5)
  `, employeeCode, key, endpoint, requestHash, reservationTTL.Seconds())
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 1 {
		return nil, true, nil
	}

	var storedHash string
	var stored []byte
	err = s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE employee_code = $1 AND key = $2 AND endpoint = $3
  `, employeeCode, key, endpoint).Scan(&storedHash, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		// Released between our insert and this read.
		return nil, false, ErrIdempotencyInProgress
	}
	if err != nil {
		return nil, false, err
	}
	if storedHash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	if stored == nil {
		return nil, false, ErrIdempotencyInProgress
	}
	return stored, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, employeeCode, endpoint, key, requestHash string, response json.RawMessage) error {
	if s == nil || s.db == nil {
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    UPDATE idempotency_keys
    SET response_json = $5
    WHERE employee_code = $1 AND key = $2 AND endpoint = $3
      AND request_hash = $4 AND response_json IS NULL
  `, employeeCode, key, endpoint, requestHash, response)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, employeeCode, endpoint, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE employee_code = $1 AND key = $2 AND endpoint = $3 AND response_json IS NULL
  `, employeeCode, key, endpoint)
	return err
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bodyRecorder) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

// Idempotent replays the stored response when an authenticated caller
// repeats a request with the same Idempotency-Key and body. The key is
// reserved before the handler runs, so a concurrent duplicate gets 409
// instead of a second execution. Requests without the header pass through.
func Idempotent(store IdempotencyBackend) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			user, ok := GetUser(r.Context())
			if key == "" || !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			reqID := GetRequestID(r.Context())
			logger := zerolog.Ctx(r.Context())

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusBadRequest, "invalid_payload", "could not read request body", reqID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			hash := RequestHash(payload)
			endpoint := r.Method + " " + r.URL.Path

			stored, reserved, err := store.Reserve(r.Context(), user.EmployeeCode, endpoint, key, hash)
			switch {
			case errors.Is(err, ErrIdempotencyConflict):
				api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), reqID)
				return
			case errors.Is(err, ErrIdempotencyInProgress):
				w.Header().Set("Retry-After", "1")
				api.Fail(w, http.StatusConflict, "idempotency_in_progress", err.Error(), reqID)
				return
			case err != nil:
				logger.Warn().Err(err).Msg("idempotency reserve failed")
				next.ServeHTTP(w, r)
				return
			case !reserved:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(stored)
				return
			}

			completed := false
			defer func() {
				if completed {
					return
				}
				ctx := context.WithoutCancel(r.Context())
				if err := store.Release(ctx, user.EmployeeCode, endpoint, key); err != nil {
					logger.Warn().Err(err).Msg("idempotency release failed")
				}
			}()

			rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= 300 || !json.Valid(rec.body.Bytes()) {
				return
			}
			ctx := context.WithoutCancel(r.Context())
			if err := store.Complete(ctx, user.EmployeeCode, endpoint, key, hash, rec.body.Bytes()); err != nil {
				logger.Warn().Err(err).Msg("idempotency save failed")
				return
			}
			completed = true
		})
	}
}
