package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLockAcquire_Success(t *testing.T) {
	ta := setupApp(t)
	assetID := ta.createAsset(t)

	resp, err := ta.doAuthRequest(t, http.MethodPost, "/api/assets/"+assetID+"/lock/", `{"ttlSeconds": 120}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["holderId"] != testUserID {
		t.Errorf("expected holderId %s, got %v", testUserID, result["holderId"])
	}
	if result["assetId"] != assetID {
		t.Errorf("expected assetId %s, got %v", assetID, result["assetId"])
	}
	if result["expiresAt"] == nil {
		t.Error("expected 'expiresAt' in response")
	}
}

func TestLockAcquire_DefaultTTL(t *testing.T) {
	ta := setupApp(t)
	assetID := ta.createAsset(t)

	// No body at all: the service default applies.
	resp, err := ta.doAuthRequest(t, http.MethodPost, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusOK)
}

func TestLockAcquire_NotOwner(t *testing.T) {
	ta := setupApp(t)
	assetID := ta.createAsset(t)

	resp, err := ta.doAuthRequestAs(t, "intruder-456", http.MethodPost, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusForbidden)
}

func TestLockAcquire_HeldByAnotherSession(t *testing.T) {
	ta := setupApp(t)
	assetID := ta.createAsset(t)

	// Another session (a running edit job, say) holds the asset.
	if _, err := ta.locks.Acquire(context.Background(), assetID, uuid.New().String(), time.Minute); err != nil {
		t.Fatalf("failed to plant competing lock: %v", err)
	}

	resp, err := ta.doAuthRequest(t, http.MethodPost, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusConflict)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "LOCK_HELD" {
		t.Errorf("expected error code LOCK_HELD, got %v", errObj["code"])
	}
}

func TestLockRelease_Success(t *testing.T) {
	ta := setupApp(t)
	assetID := ta.createAsset(t)

	resp, err := ta.doAuthRequest(t, http.MethodPost, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("acquire request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	resp, err = ta.doAuthRequest(t, http.MethodDelete, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("release request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNoContent)

	// No lock remains.
	resp, err = ta.doAuthRequest(t, http.MethodGet, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestLockRelease_NotHolder(t *testing.T) {
	ta := setupApp(t)
	assetID := ta.createAsset(t)

	if _, err := ta.locks.Acquire(context.Background(), assetID, uuid.New().String(), time.Minute); err != nil {
		t.Fatalf("failed to plant competing lock: %v", err)
	}

	resp, err := ta.doAuthRequest(t, http.MethodDelete, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusConflict)

	result := parseJSON(t, resp)
	errObj := result["error"].(map[string]interface{})
	if errObj["code"] != "NOT_LOCK_HOLDER" {
		t.Errorf("expected error code NOT_LOCK_HOLDER, got %v", errObj["code"])
	}
}

func TestLockGet_Active(t *testing.T) {
	ta := setupApp(t)
	assetID := ta.createAsset(t)

	resp, err := ta.doAuthRequest(t, http.MethodPost, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("acquire request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	resp, err = ta.doAuthRequest(t, http.MethodGet, "/api/assets/"+assetID+"/lock/", "")
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["holderId"] != testUserID {
		t.Errorf("expected holderId %s, got %v", testUserID, result["holderId"])
	}
}

func TestLockGet_AssetNotFound(t *testing.T) {
	ta := setupApp(t)

	resp, err := ta.doAuthRequest(t, http.MethodGet, "/api/assets/"+uuid.New().String()+"/lock/", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	assertStatus(t, resp, http.StatusNotFound)
}
