// Package integration provides end-to-end tests for the record encryption API
// against both PostgreSQL and MySQL databases. The suite needs the docker
// compose test databases; it skips when they are unreachable.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldvault/fieldvault/internal/app"
	"github.com/fieldvault/fieldvault/internal/config"
	"github.com/fieldvault/fieldvault/internal/testutil"
)

// testContext holds the container-backed server and the database used to
// inspect persisted state.
type testContext struct {
	container *app.Container
	server    *httptest.Server
	db        *sql.DB
	dbDriver  string
}

func setupIntegrationTest(t *testing.T, dbDriver string) *testContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		db = testutil.SetupPostgresDB(t)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		db = testutil.SetupMySQLDB(t)
		dsn = testutil.GetMySQLTestDSN()
	}

	cfg := &config.Config{
		LogLevel:             "error",
		ServerHost:           "localhost",
		ServerPort:           0,
		DBDriver:             dbDriver,
		DBConnectionString:   dsn,
		DBMaxOpenConnections: 5,
		DBMaxIdleConnections: 2,
		DBConnMaxLifetime:    time.Minute,
		KeyWrapperProvider:   "memory",
		SecretStoreProvider:  "memory",
		KeyCacheTTL:          time.Hour,
		FieldAlgorithm:       "aes-gcm",
		MetricsEnabled:       false,
		RateLimitEnabled:     false,
	}

	container := app.NewContainer(cfg)
	httpServer, err := container.HTTPServer()
	require.NoError(t, err, "failed to build http server")

	server := httptest.NewServer(httpServer.GetHandler())

	t.Cleanup(func() {
		server.Close()
		_ = container.Shutdown(context.Background())
		if dbDriver == "postgres" {
			testutil.CleanupPostgresDB(t, db)
		} else {
			testutil.CleanupMySQLDB(t, db)
		}
		testutil.TeardownDB(t, db)
	})

	return &testContext{
		container: container,
		server:    server,
		db:        db,
		dbDriver:  dbDriver,
	}
}

func (tc *testContext) post(t *testing.T, path string, body map[string]any) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	//nolint:gosec // localhost test server
	resp, err := http.Post(tc.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var decoded map[string]any
	if len(respBody) > 0 {
		require.NoError(t, json.Unmarshal(respBody, &decoded))
	}
	return resp.StatusCode, decoded
}

func runAPITests(t *testing.T, dbDriver string) {
	t.Run("encrypt then decrypt round trip", func(t *testing.T) {
		tc := setupIntegrationTest(t, dbDriver)

		status, encResp := tc.post(t, "/v1/records/User/encrypt", map[string]any{
			"entity_key": "user-1",
			"record": map[string]any{
				"email":    "Alice@Example.com",
				"password": "hunter2",
				"age":      30,
			},
		})
		require.Equal(t, http.StatusOK, status)

		record := encResp["record"].(map[string]any)
		assert.NotEqual(t, "Alice@Example.com", record["email"])
		assert.NotEmpty(t, record["email_nonce"])
		assert.NotEmpty(t, record["email_tag"])
		assert.NotEmpty(t, record["email_hash"])
		assert.NotEqual(t, "hunter2", record["password"])
		assert.NotEmpty(t, record["password_nonce"])
		assert.Equal(t, float64(30), record["age"])

		keyAddress := encResp["key_address"].(map[string]any)
		assert.NotEmpty(t, keyAddress["key_ring_id"])
		assert.NotEmpty(t, keyAddress["key_id"])

		status, decResp := tc.post(t, "/v1/records/User/decrypt", map[string]any{
			"entity_key": "user-1",
			"record":     record,
		})
		require.Equal(t, http.StatusOK, status)

		decRecord := decResp["record"].(map[string]any)
		assert.Equal(t, "Alice@Example.com", decRecord["email"])
		assert.Equal(t, "hunter2", decRecord["password"])
		assert.Equal(t, float64(30), decRecord["age"])
		assert.NotContains(t, decRecord, "email_nonce")
		assert.NotContains(t, decRecord, "email_tag")
	})

	t.Run("entity reuses its key across operations", func(t *testing.T) {
		tc := setupIntegrationTest(t, dbDriver)

		status, first := tc.post(t, "/v1/records/User/encrypt", map[string]any{
			"entity_key": "user-1",
			"record":     map[string]any{"email": "a@example.com"},
		})
		require.Equal(t, http.StatusOK, status)

		status, second := tc.post(t, "/v1/records/User/encrypt", map[string]any{
			"entity_key": "user-1",
			"record":     map[string]any{"email": "b@example.com"},
		})
		require.Equal(t, http.StatusOK, status)

		assert.Equal(t, 1, testutil.CountEntityKeys(t, tc.db))
		assert.Equal(t, first["key_address"], second["key_address"])
	})

	t.Run("entities get isolated keys but deterministic hashes", func(t *testing.T) {
		tc := setupIntegrationTest(t, dbDriver)

		status, alice := tc.post(t, "/v1/records/User/encrypt", map[string]any{
			"entity_key": "user-1",
			"record":     map[string]any{"email": "same@example.com"},
		})
		require.Equal(t, http.StatusOK, status)

		status, bob := tc.post(t, "/v1/records/User/encrypt", map[string]any{
			"entity_key": "user-2",
			"record":     map[string]any{"email": "same@example.com"},
		})
		require.Equal(t, http.StatusOK, status)

		assert.Equal(t, 2, testutil.CountEntityKeys(t, tc.db))
		assert.NotEqual(t, alice["key_address"], bob["key_address"])

		aliceRecord := alice["record"].(map[string]any)
		bobRecord := bob["record"].(map[string]any)
		// Search hash is deterministic across entities; ciphertexts are not.
		assert.Equal(t, aliceRecord["email_hash"], bobRecord["email_hash"])
		assert.NotEqual(t, aliceRecord["email"], bobRecord["email"])
	})

	t.Run("tampered ciphertext fails decryption", func(t *testing.T) {
		tc := setupIntegrationTest(t, dbDriver)

		status, encResp := tc.post(t, "/v1/records/User/encrypt", map[string]any{
			"entity_key": "user-1",
			"record":     map[string]any{"email": "a@example.com"},
		})
		require.Equal(t, http.StatusOK, status)

		record := encResp["record"].(map[string]any)
		record["email_tag"] = "00000000000000000000000000000000"

		status, decResp := tc.post(t, "/v1/records/User/decrypt", map[string]any{
			"entity_key": "user-1",
			"record":     record,
		})
		require.Equal(t, http.StatusUnprocessableEntity, status)
		assert.NotEmpty(t, decResp["error"])
	})

	t.Run("unknown model is rejected", func(t *testing.T) {
		tc := setupIntegrationTest(t, dbDriver)

		status, _ := tc.post(t, "/v1/records/Unknown/encrypt", map[string]any{
			"entity_key": "user-1",
			"record":     map[string]any{"email": "a@example.com"},
		})
		require.Equal(t, http.StatusUnprocessableEntity, status)
	})
}

func TestAPIPostgres(t *testing.T) {
	runAPITests(t, "postgres")
}

func TestAPIMySQL(t *testing.T) {
	runAPITests(t, "mysql")
}
