package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/fieldvault/fieldvault/internal/crypto/domain"
	keymetaDomain "github.com/fieldvault/fieldvault/internal/keymeta/domain"
	keymetaMocks "github.com/fieldvault/fieldvault/internal/keymeta/usecase/mocks"
	recordsDomain "github.com/fieldvault/fieldvault/internal/records/domain"
	"github.com/fieldvault/fieldvault/internal/records/http/dto"
	recordsUsecase "github.com/fieldvault/fieldvault/internal/records/usecase"
	"github.com/fieldvault/fieldvault/internal/records/usecase/mocks"
)

// matchEntityKeyCtx matches an EntityKeyContext carrying the given key.
func matchEntityKeyCtx(entity cryptoDomain.EntityKey) interface{} {
	return mock.MatchedBy(func(keyCtx recordsUsecase.EntityKeyContext) bool {
		return keyCtx.EntityKey() == entity
	})
}

// setupTestHandler creates a test handler with mocked dependencies.
func setupTestHandler(t *testing.T) (*RecordHandler, *mocks.MockOrchestrator) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockOrchestrator := new(mocks.MockOrchestrator)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := NewRecordHandler(mockOrchestrator, new(keymetaMocks.MockEntityKeyRepository), logger)

	return handler, mockOrchestrator
}

// createTestContext builds a gin context carrying a JSON request body.
func createTestContext(t *testing.T, method, target string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func testMetadata() cryptoDomain.KeyMetadata {
	return cryptoDomain.KeyMetadata{
		SchemaVersion: cryptoDomain.KeyMetadataSchemaVersion,
		KeyAddress: cryptoDomain.KeyAddress{
			LocationID: "us-east1",
			KeyRingID:  "fieldvault-user-1",
			KeyID:      "wrapping-key",
			KeyVersion: "1",
		},
		SecretAddress: "secret-user-1",
	}
}

func TestRecordHandler_EncryptHandler(t *testing.T) {
	t.Run("Success_EncryptsConfiguredFields", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		record := map[string]any{"email": "alice@example.com"}
		encrypted := map[string]any{
			"email":       "0a1b2c",
			"email_nonce": "3d4e5f",
			"email_tag":   "6a7b8c",
			"email_hash":  "9d0e1f",
		}

		mockOrchestrator.On("EncryptObject", mock.Anything, "User", record, mock.Anything).
			Return(encrypted, testMetadata(), nil).
			Once()

		request := dto.EncryptRecordRequest{EntityKey: "user-1", Record: record}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/encrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.EncryptRecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "User", response.Model)
		assert.Equal(t, "user-1", response.EntityKey)
		assert.Equal(t, "0a1b2c", response.Record["email"])
		assert.Equal(t, "3d4e5f", response.Record["email_nonce"])
		assert.Equal(t, "fieldvault-user-1", response.KeyAddress.KeyRingID)
		mockOrchestrator.AssertExpectations(t)
	})

	t.Run("Success_NormalizesMixedCaseEntityKey", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		record := map[string]any{"email": "alice@example.com"}
		encrypted := map[string]any{"email": "0a1b2c"}

		// A key provisioned for "alice" must also serve requests that spell
		// the identifier "Alice"; the handler canonicalizes before resolving.
		mockOrchestrator.On("EncryptObject", mock.Anything, "User", record, matchEntityKeyCtx("alice")).
			Return(encrypted, testMetadata(), nil).
			Once()

		request := dto.EncryptRecordRequest{EntityKey: "Alice", Record: record}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/encrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.EncryptRecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "alice", response.EntityKey)
		mockOrchestrator.AssertExpectations(t)
	})

	t.Run("Error_EntityKeyWithInvalidCharacters", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		request := dto.EncryptRecordRequest{
			EntityKey: "user/1",
			Record:    map[string]any{"email": "alice@example.com"},
		}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/encrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockOrchestrator.AssertNotCalled(t, "EncryptObject")
	})

	t.Run("Success_RetriesAfterProvisioningRace", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		record := map[string]any{"email": "alice@example.com"}
		encrypted := map[string]any{"email": "0a1b2c"}

		mockOrchestrator.On("EncryptObject", mock.Anything, "User", record, mock.Anything).
			Return(nil, cryptoDomain.KeyMetadata{}, keymetaDomain.ErrEntityKeyAlreadyExists).
			Once()
		mockOrchestrator.On("EncryptObject", mock.Anything, "User", record, mock.Anything).
			Return(encrypted, testMetadata(), nil).
			Once()

		request := dto.EncryptRecordRequest{EntityKey: "user-1", Record: record}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/encrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockOrchestrator.AssertExpectations(t)
	})

	t.Run("Error_PersistentConflict", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		record := map[string]any{"email": "alice@example.com"}

		mockOrchestrator.On("EncryptObject", mock.Anything, "User", record, mock.Anything).
			Return(nil, cryptoDomain.KeyMetadata{}, keymetaDomain.ErrEntityKeyAlreadyExists).
			Twice()

		request := dto.EncryptRecordRequest{EntityKey: "user-1", Record: record}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/encrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockOrchestrator.AssertExpectations(t)
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/encrypt", nil)
		c.Params = gin.Params{{Key: "model", Value: "User"}}
		c.Request.Body = io.NopCloser(bytes.NewReader([]byte("invalid json")))

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "bad_request", response["error"])
	})

	t.Run("Error_EmptyEntityKey", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		request := dto.EncryptRecordRequest{
			EntityKey: "",
			Record:    map[string]any{"email": "alice@example.com"},
		}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/encrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Error_EmptyRecord", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		request := dto.EncryptRecordRequest{
			EntityKey: "user-1",
			Record:    map[string]any{},
		}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/encrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_UnknownModel", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		record := map[string]any{"email": "alice@example.com"}

		mockOrchestrator.On("EncryptObject", mock.Anything, "Unknown", record, mock.Anything).
			Return(nil, cryptoDomain.KeyMetadata{}, recordsDomain.ErrModelNotConfigured).
			Once()

		request := dto.EncryptRecordRequest{EntityKey: "user-1", Record: record}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/Unknown/encrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "Unknown"}}

		handler.EncryptHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "invalid_input", response["error"])
	})
}

func TestRecordHandler_DecryptHandler(t *testing.T) {
	t.Run("Success_DecryptsFields", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		record := map[string]any{
			"email":       "0a1b2c",
			"email_nonce": "3d4e5f",
			"email_tag":   "6a7b8c",
		}
		decrypted := map[string]any{"email": "alice@example.com"}

		mockOrchestrator.On("DecryptObject", mock.Anything, "User", record, mock.Anything).
			Return(decrypted, []byte("wrapped"), nil).
			Once()

		request := dto.DecryptRecordRequest{EntityKey: "user-1", Record: record}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/decrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.DecryptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.DecryptRecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "alice@example.com", response.Record["email"])
		assert.NotContains(t, response.Record, "email_nonce")
		mockOrchestrator.AssertExpectations(t)
	})

	t.Run("Success_NormalizesMixedCaseEntityKey", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		record := map[string]any{
			"email":       "0a1b2c",
			"email_nonce": "3d4e5f",
			"email_tag":   "6a7b8c",
		}
		decrypted := map[string]any{"email": "alice@example.com"}

		mockOrchestrator.On("DecryptObject", mock.Anything, "User", record, matchEntityKeyCtx("alice")).
			Return(decrypted, []byte("wrapped"), nil).
			Once()

		request := dto.DecryptRecordRequest{EntityKey: "ALICE", Record: record}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/decrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.DecryptHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockOrchestrator.AssertExpectations(t)
	})

	t.Run("Error_MissingKeyMetadata", func(t *testing.T) {
		handler, mockOrchestrator := setupTestHandler(t)

		record := map[string]any{
			"email":       "0a1b2c",
			"email_nonce": "3d4e5f",
			"email_tag":   "6a7b8c",
		}

		mockOrchestrator.On("DecryptObject", mock.Anything, "User", record, mock.Anything).
			Return(nil, nil, cryptoDomain.ErrDekResolution).
			Once()

		request := dto.DecryptRecordRequest{EntityKey: "user-1", Record: record}
		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/decrypt", request)
		c.Params = gin.Params{{Key: "model", Value: "User"}}

		handler.DecryptHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(t, http.MethodPost, "/v1/records/User/decrypt", nil)
		c.Params = gin.Params{{Key: "model", Value: "User"}}
		c.Request.Body = io.NopCloser(bytes.NewReader([]byte("not json")))

		handler.DecryptHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
