package matching

import (
	"testing"

	"github.com/salesagent/salesagent/internal/model"
)

func TestPostprocessFiltersDedupesAndSorts(t *testing.T) {
	matches := []model.Match{
		{TenderID: "T1", MatchedProduct: "P1", Score: 80, MatchType: model.MatchTypeAI},
		{TenderID: "T1", MatchedProduct: "P1", Score: 40, MatchType: model.MatchTypeAI},
		{TenderID: "T2", MatchedProduct: "P2", Score: 60, MatchType: model.MatchTypeAI},
	}

	result := Postprocess(matches, 50)

	if len(result) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(result))
	}

	if result[0].TenderID != "T1" || result[0].Score != 80 {
		t.Fatalf("expected T1/80 first, got %s/%v", result[0].TenderID, result[0].Score)
	}

	if result[1].TenderID != "T2" || result[1].Score != 60 {
		t.Fatalf("expected T2/60 second, got %s/%v", result[1].TenderID, result[1].Score)
	}
}

func TestPostprocessDedupKeepsFirstOccurrence(t *testing.T) {
	matches := []model.Match{
		{TenderID: "T1", MatchedProduct: "P1", Score: 40, Reasons: []string{"first"}},
		{TenderID: "T1", MatchedProduct: "P1", Score: 90, Reasons: []string{"second"}},
	}

	result := Postprocess(matches, 0)

	if len(result) != 1 {
		t.Fatalf("expected 1 match, got %d", len(result))
	}

	// First occurrence wins even when a later duplicate scores higher.
	if result[0].Score != 40 || result[0].Reasons[0] != "first" {
		t.Fatalf("expected the first occurrence to survive, got %+v", result[0])
	}
}

func TestPostprocessStableOrderForTies(t *testing.T) {
	matches := []model.Match{
		{TenderID: "T1", MatchedProduct: "P1", Score: 50},
		{TenderID: "T2", MatchedProduct: "P2", Score: 50},
		{TenderID: "T3", MatchedProduct: "P3", Score: 50},
	}

	result := Postprocess(matches, 0)

	for i, expected := range []string{"T1", "T2", "T3"} {
		if result[i].TenderID != expected {
			t.Fatalf("expected %s at position %d, got %s", expected, i, result[i].TenderID)
		}
	}
}

func TestPostprocessBoundaryScoreSurvives(t *testing.T) {
	matches := []model.Match{
		{TenderID: "T1", MatchedProduct: "P1", Score: 50},
		{TenderID: "T2", MatchedProduct: "P2", Score: 49.99},
	}

	result := Postprocess(matches, 50)

	if len(result) != 1 {
		t.Fatalf("expected exactly the boundary match, got %d matches", len(result))
	}

	if result[0].TenderID != "T1" {
		t.Fatalf("expected T1, got %s", result[0].TenderID)
	}
}

func TestPostprocessEmptyInput(t *testing.T) {
	result := Postprocess(nil, 10)

	if len(result) != 0 {
		t.Fatalf("expected empty result, got %d matches", len(result))
	}
}
