package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/marup-app/marup-server/internal/auth"
	"github.com/marup-app/marup-server/internal/engine"
	"github.com/marup-app/marup-server/internal/events"
	"github.com/marup-app/marup-server/internal/storage/sqlite"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store, events.NewNotifier(store))
	jwt := auth.NewJWTManager("handlers-test-secret", time.Hour)
	h := New(store, eng, auth.NewPasswordAuthenticator(store), jwt, nil)

	r := gin.New()
	h.Register(r)
	return r
}

func httpDo(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// registerUser registers a user and returns their token and profile.
func registerUser(t *testing.T, r *gin.Engine, email, name string) (string, map[string]any) {
	t.Helper()
	w := httpDo(r, "POST", "/api/auth/register", "", gin.H{
		"email":     email,
		"full_name": name,
		"password":  "a strong password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func createGroup(t *testing.T, r *gin.Engine, token string) groupResponse {
	t.Helper()
	w := httpDo(r, "POST", "/api/groups", token, gin.H{
		"name":                "Street Marup",
		"contribution_amount": 1000,
		"max_members":         3,
		"duration_months":     3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var group groupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &group))
	return group
}

func TestAuthFlow(t *testing.T) {
	r := setupRouter(t)

	token, user := registerUser(t, r, "asha@example.com", "Asha")
	require.NotEmpty(t, user["user_code"])

	// Registering the same email again conflicts.
	w := httpDo(r, "POST", "/api/auth/register", "", gin.H{
		"email":     "asha@example.com",
		"full_name": "Asha",
		"password":  "a strong password",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// Bad password is rejected.
	w = httpDo(r, "POST", "/api/auth/login", "", gin.H{
		"email":    "asha@example.com",
		"password": "wrong password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httpDo(r, "POST", "/api/auth/login", "", gin.H{
		"email":    "asha@example.com",
		"password": "a strong password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Protected routes require a token.
	w = httpDo(r, "GET", "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httpDo(r, "GET", "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.Equal(t, user["user_code"], me["user_code"])
	require.NotContains(t, w.Body.String(), "password")
}

func TestGroupLifecycleOverHTTP(t *testing.T) {
	r := setupRouter(t)
	ownerToken, _ := registerUser(t, r, "owner@example.com", "Owner")
	memberToken, _ := registerUser(t, r, "member@example.com", "Member")

	group := createGroup(t, r, ownerToken)
	require.NotEmpty(t, group.GroupCode)
	require.NotEmpty(t, group.CurrentRoundID)
	require.True(t, group.Active)

	t.Run("group is findable by code", func(t *testing.T) {
		w := httpDo(r, "GET", "/api/groups/code/"+group.GroupCode, memberToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var found groupResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
		require.Equal(t, group.ID, found.ID)
	})

	t.Run("invalid group parameters are rejected", func(t *testing.T) {
		w := httpDo(r, "POST", "/api/groups", ownerToken, gin.H{
			"name":                "Bad",
			"contribution_amount": 1000,
			"max_members":         1,
			"duration_months":     3,
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("join request lifecycle", func(t *testing.T) {
		w := httpDo(r, "POST", "/api/groups/"+group.ID+"/join-requests", memberToken, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var request joinRequestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &request))

		// Only the owner may decide.
		w = httpDo(r, "POST", "/api/join-requests/"+request.ID+"/approve", memberToken, nil)
		require.Equal(t, http.StatusForbidden, w.Code)

		w = httpDo(r, "POST", "/api/join-requests/"+request.ID+"/approve", ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		// Deciding twice conflicts.
		w = httpDo(r, "POST", "/api/join-requests/"+request.ID+"/approve", ownerToken, nil)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("contribute and resolve", func(t *testing.T) {
		for _, token := range []string{ownerToken, memberToken} {
			w := httpDo(r, "POST", "/api/rounds/"+group.CurrentRoundID+"/contributions", token, gin.H{"amount": 1000})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		}

		// Double contribution conflicts.
		w := httpDo(r, "POST", "/api/rounds/"+group.CurrentRoundID+"/contributions", ownerToken, gin.H{"amount": 1000})
		require.Equal(t, http.StatusConflict, w.Code)

		// Non-owner cannot resolve.
		w = httpDo(r, "POST", "/api/rounds/"+group.CurrentRoundID+"/resolve", memberToken, nil)
		require.Equal(t, http.StatusForbidden, w.Code)

		w = httpDo(r, "POST", "/api/rounds/"+group.CurrentRoundID+"/resolve", ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var res struct {
			Round       roundResponse  `json:"round"`
			Winner      memberResponse `json:"winner"`
			Payout      payoutResponse `json:"payout"`
			GroupClosed bool           `json:"group_closed"`
			NextRound   *roundResponse `json:"next_round"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.True(t, res.Round.Completed)
		require.Equal(t, float64(2000), res.Payout.Amount)
		require.Equal(t, res.Winner.UserID, res.Payout.UserID)
		require.False(t, res.GroupClosed)
		require.NotNil(t, res.NextRound)

		// Resolving again conflicts.
		w = httpDo(r, "POST", "/api/rounds/"+group.CurrentRoundID+"/resolve", ownerToken, nil)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("winner got a notification", func(t *testing.T) {
		w := httpDo(r, "GET", "/api/notifications", ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "round_resolved")
	})

	t.Run("group detail includes members and rounds", func(t *testing.T) {
		w := httpDo(r, "GET", "/api/groups/"+group.ID, ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var detail struct {
			Group   groupResponse    `json:"group"`
			Members []memberResponse `json:"members"`
			Rounds  []roundResponse  `json:"rounds"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
		require.Len(t, detail.Members, 2)
		require.Len(t, detail.Rounds, 2)
	})

	t.Run("only the owner deletes the group", func(t *testing.T) {
		w := httpDo(r, "DELETE", "/api/groups/"+group.ID, memberToken, nil)
		require.Equal(t, http.StatusForbidden, w.Code)
		w = httpDo(r, "DELETE", "/api/groups/"+group.ID, ownerToken, nil)
		require.Equal(t, http.StatusNoContent, w.Code)
		w = httpDo(r, "GET", "/api/groups/"+group.ID, ownerToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMessages(t *testing.T) {
	r := setupRouter(t)
	ownerToken, _ := registerUser(t, r, "owner@example.com", "Owner")
	otherToken, other := registerUser(t, r, "other@example.com", "Other")

	group := createGroup(t, r, ownerToken)

	t.Run("group chat is members only", func(t *testing.T) {
		w := httpDo(r, "POST", "/api/groups/"+group.ID+"/messages", otherToken, gin.H{"content": "hello"})
		require.Equal(t, http.StatusConflict, w.Code)

		w = httpDo(r, "POST", "/api/groups/"+group.ID+"/messages", ownerToken, gin.H{"content": "hello"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = httpDo(r, "GET", "/api/groups/"+group.ID+"/messages", ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var messages []messageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
		require.Len(t, messages, 1)
		require.Equal(t, "hello", messages[0].Content)
	})

	t.Run("private conversation", func(t *testing.T) {
		otherID := other["user_id"].(string)
		w := httpDo(r, "POST", "/api/messages/"+otherID, ownerToken, gin.H{"content": "psst"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = httpDo(r, "GET", "/api/messages/"+otherID, ownerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var messages []messageResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
		require.Len(t, messages, 1)
		require.Equal(t, "psst", messages[0].Content)
	})
}

func TestUserSearch(t *testing.T) {
	r := setupRouter(t)
	token, _ := registerUser(t, r, "asha@example.com", "Asha Devi")
	registerUser(t, r, "bina@example.com", "Bina Rao")

	w := httpDo(r, "GET", "/api/users/search?q=Bina", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var results []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	require.Equal(t, "Bina Rao", results[0]["full_name"])

	w = httpDo(r, "GET", "/api/users/search", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentsUnconfigured(t *testing.T) {
	r := setupRouter(t)
	token, _ := registerUser(t, r, "owner@example.com", "Owner")
	group := createGroup(t, r, token)

	w := httpDo(r, "POST", "/api/groups/"+group.ID+"/checkout", token, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
