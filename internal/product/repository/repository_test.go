package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sustainly-backend/internal/product/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ProductScore{}))
	return db
}

func TestProductScoreSaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewProductScoreRepository(newTestDB(t))
	url := "https://www.amazon.com/dp/B000000001"

	missing, err := repo.FindByURL(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, missing)

	data := &domain.ProductData{ProductID: "B000000001", Title: "Kettle", SustainabilityScore: 42}
	first, err := repo.Save(ctx, url, data)
	require.NoError(t, err)

	data.SustainabilityScore = 48
	second, err := repo.Save(ctx, url, data)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "saving the same URL updates the row")

	found, err := repo.FindByURL(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 48, found.Score)

	decoded, err := DecodeProductData(found)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", decoded.Title)
	assert.Equal(t, 48, decoded.SustainabilityScore)

	byIDs, err := repo.FindByIDs(ctx, []string{found.ID, "nope"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
}

func TestDeleteScoredBefore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewProductScoreRepository(db)

	old, err := repo.Save(ctx, "https://www.amazon.com/dp/OLD0000001", &domain.ProductData{Title: "old"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&domain.ProductScore{}).
		Where("product_url = ?", "https://www.amazon.com/dp/OLD0000001").
		Update("scored_at", time.Now().Add(-48*time.Hour)).Error)
	_, err = repo.Save(ctx, "https://www.amazon.com/dp/NEW0000001", &domain.ProductData{Title: "new"})
	require.NoError(t, err)

	ids, err := repo.DeleteScoredBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{old.ID}, ids)

	gone, err := repo.FindByURL(ctx, "https://www.amazon.com/dp/OLD0000001")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestScoreAPIFetchSendsHeaders(t *testing.T) {
	var gotURL, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		gotKey = r.Header.Get("x-api-key")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"productId":"B1","title":"Mug","sustainabilityScore":77}`))
	}))
	defer srv.Close()

	src := NewScoreAPIRepository(srv.URL, "static-key", srv.Client())
	data, err := src.FetchScore(context.Background(), "https://www.amazon.com/dp/B1?x=1&y=2", "tok")
	require.NoError(t, err)

	assert.Equal(t, "https://www.amazon.com/dp/B1?x=1&y=2", gotURL)
	assert.Equal(t, "static-key", gotKey)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "Mug", data.Title)
	assert.Equal(t, 77, data.SustainabilityScore)
}

func TestScoreAPIOmitsAuthorizationWhenSignedOut(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`{"title":"Mug"}`))
	}))
	defer srv.Close()

	_, err := NewScoreAPIRepository(srv.URL, "", srv.Client()).FetchScore(context.Background(), "https://a.example/x", "")
	require.NoError(t, err)
	assert.False(t, hadAuth)
}

func TestScoreAPINon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewScoreAPIRepository(srv.URL, "k", srv.Client()).FetchScore(context.Background(), "https://a.example/x", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestScoreAPIZeroScoreVersusMissing(t *testing.T) {
	body := `{"title":"Mug","sustainabilityScore":0,"aspects":{"materials":{"score":20}}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	src := NewScoreAPIRepository(srv.URL, "", srv.Client())

	data, err := src.FetchScore(context.Background(), "https://a.example/x", "")
	require.NoError(t, err)
	assert.Equal(t, 0, data.SustainabilityScore)
	assert.Equal(t, "Mug", data.Title)

	body = `{"title":"Mug","aspects":{"materials":{"score":20}}}`
	data, err = src.FetchScore(context.Background(), "https://a.example/x", "")
	require.NoError(t, err)
	assert.Equal(t, 20, data.SustainabilityScore, "missing score is the aspect total")
}
