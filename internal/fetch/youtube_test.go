package fetch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

func youtubeSpec() model.FilterSpec {
	return model.FilterSpec{
		Platform:       model.PlatformYouTube,
		Target:         "destiny rising",
		TimeRangeStart: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		TimeRangeEnd:   time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC),
		MinPopularity:  1000,
	}
}

func youtubeTransport(t *testing.T) *routingTransport {
	t.Helper()
	return &routingTransport{routes: []route{
		{match: "/search", body: loadFixture(t, "youtube_search.json")},
		{match: "/videos", body: loadFixture(t, "youtube_videos.json")},
		{match: "/commentThreads", body: loadFixture(t, "youtube_comments.json")},
	}}
}

func TestYouTubeFetch(t *testing.T) {
	transport := youtubeTransport(t)
	y := NewYouTube(transport, "test-key")

	items, err := y.Fetch(context.Background(), youtubeSpec(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// vid-beta has 900 views, below the 1000 view threshold.
	var gotIDs []string
	for _, item := range items {
		gotIDs = append(gotIDs, item.PlatformID)
	}
	wantIDs := []string{"vid-alpha", "vid-gamma"}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Fatalf("item IDs mismatch (-want +got):\n%s", diff)
	}

	alpha := items[0]
	want := model.RawItem{
		PlatformID:      "vid-alpha",
		Platform:        model.PlatformYouTube,
		Title:           "Launch trailer breakdown",
		Author:          "FrameByFrame",
		CreatedAt:       time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC),
		PopularityScore: 250000,
		BodyText:        "Every hidden detail in the new trailer.",
		MediaRefs:       []string{"https://i.ytimg.com/vi/vid-alpha/hqdefault.jpg"},
		Permalink:       "https://www.youtube.com/watch?v=vid-alpha",
		NumComments:     1800,
		TopComments: []model.Comment{
			{Author: "PixelPeeper", Score: 540, Body: "Frame 412 confirms the sequel tease."},
			{Author: "LoreKeeper", Score: 210, Body: "The soundtrack callback gave me chills."},
		},
	}
	if diff := cmp.Diff(want, alpha); diff != "" {
		t.Errorf("item mismatch (-want +got):\n%s", diff)
	}
}

func TestYouTubeFetchMissingAPIKey(t *testing.T) {
	y := NewYouTube(youtubeTransport(t), "")

	_, err := y.Fetch(context.Background(), youtubeSpec(), 20)
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want FetchError, got %v", err)
	}
	if fe.Platform != model.PlatformYouTube {
		t.Errorf("platform = %q", fe.Platform)
	}
}

func TestYouTubeFetchSearchError(t *testing.T) {
	transport := &routingTransport{routes: []route{
		{match: "/search", status: http.StatusForbidden, body: `{"error":{"code":403}}`},
	}}
	y := NewYouTube(transport, "test-key")

	_, err := y.Fetch(context.Background(), youtubeSpec(), 20)
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want FetchError, got %v", err)
	}
}

func TestYouTubeFetchEmptySearch(t *testing.T) {
	transport := &routingTransport{routes: []route{
		{match: "/search", body: `{"items":[]}`},
	}}
	y := NewYouTube(transport, "test-key")

	items, err := y.Fetch(context.Background(), youtubeSpec(), 20)
	if err != nil {
		t.Fatalf("empty search is a valid empty success: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
	if transport.callCount("/videos") != 0 {
		t.Error("stats lookup should be skipped when the search is empty")
	}
}

func TestYouTubeCommentFailureIsNotFatal(t *testing.T) {
	transport := &routingTransport{routes: []route{
		{match: "/search", body: loadFixture(t, "youtube_search.json")},
		{match: "/videos", body: loadFixture(t, "youtube_videos.json")},
		{match: "/commentThreads", status: http.StatusForbidden, body: "comments disabled"},
	}}
	y := NewYouTube(transport, "test-key")

	items, err := y.Fetch(context.Background(), youtubeSpec(), 20)
	if err != nil {
		t.Fatalf("comment failure must not fail the fetch: %v", err)
	}
	for _, item := range items {
		if len(item.TopComments) != 0 {
			t.Errorf("item %s has comments despite disabled endpoint", item.PlatformID)
		}
	}
}
