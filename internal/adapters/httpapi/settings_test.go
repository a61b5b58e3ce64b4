package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Guilhem-Bonnet/vnshelf/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/vnshelf/internal/app"
	"github.com/Guilhem-Bonnet/vnshelf/internal/domain"
	"github.com/go-chi/chi/v5"
)

func TestSettingsHandler_PutKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewSettingsRepository(db.SQL)
	svc := app.NewSettingsService(repo, nil)

	h := NewSettingsHandler(svc)

	r := chi.NewRouter()
	h.Routes(r)

	body := []byte(`{"language":"ja"}`)
	req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: want %d, got %d (%s)", http.StatusOK, rr.Code, rr.Body.String())
	}

	var got domain.Settings
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Language != "ja" {
		t.Fatalf("language: want %q, got %q", "ja", got.Language)
	}
	if !got.NSFWBlur {
		t.Fatalf("nsfwBlur should keep its default when omitted")
	}
}

func TestSettingsHandler_RejectsUnsupportedLanguage(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r := chi.NewRouter()
	NewSettingsHandler(app.NewSettingsService(sqlite.NewSettingsRepository(db.SQL), nil)).Routes(r)

	req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader([]byte(`{"language":"fr"}`)))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: want %d, got %d", http.StatusBadRequest, rr.Code)
	}
}
