package pagemeta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productHTML = `<!doctype html>
<html><head>
<title>  Amazon.com: Bamboo Toothbrush (4 pack)  </title>
<meta name="description" content="Biodegradable bamboo handles.">
<meta property="og:image" content="https://images.example.com/brush.jpg">
<script>var tracking = "ignore me";</script>
</head>
<body>
<header>Sign in</header>
<div id="dp"><h1>Bamboo   Toothbrush</h1><p>BPA-free   bristles.</p></div>
<footer>Conditions of use</footer>
</body></html>`

func TestExtract(t *testing.T) {
	page, err := Extract([]byte(productHTML), "https://www.amazon.com/dp/B1")
	require.NoError(t, err)

	assert.Equal(t, "Amazon.com: Bamboo Toothbrush (4 pack)", page.Title)
	assert.Equal(t, "Biodegradable bamboo handles.", page.Description)
	assert.Equal(t, "https://images.example.com/brush.jpg", page.ImageURL)
	assert.Equal(t, "Bamboo Toothbrush BPA-free bristles.", page.Text)
	assert.NotContains(t, page.Text, "tracking")
}

func TestExtractPrefersOpenGraphAndLandingImage(t *testing.T) {
	doc := `<html><head><meta property="og:title" content="OG Title"><title>Plain</title></head>
<body><img id="landingImage" src="https://img.example.com/main.jpg"></body></html>`
	page, err := Extract([]byte(doc), "u")
	require.NoError(t, err)
	assert.Equal(t, "OG Title", page.Title)
	assert.Equal(t, "https://img.example.com/main.jpg", page.ImageURL)
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b", truncateWords("a b", 2))
	assert.Equal(t, "a b...", truncateWords("a b c", 2))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.UserAgent(), "SustainlyBot"))
		_, _ = w.Write([]byte(productHTML))
	}))
	defer srv.Close()

	page, err := NewFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, page.URL)
	assert.Contains(t, page.Title, "Bamboo Toothbrush")
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}
