package domain

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseObjective(t *testing.T) {
	t.Parallel()

	cases := map[string]Objective{
		"":            ObjectiveConversion,
		"conversion":  ObjectiveConversion,
		"Engagement":  ObjectiveEngagement,
		" retention ": ObjectiveRetention,
	}
	for in, want := range cases {
		got, err := ParseObjective(in)
		if err != nil {
			t.Fatalf("ParseObjective(%q) returned error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseObjective(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseObjective("awareness"); !errors.Is(err, ErrInvalidObjective) {
		t.Fatalf("expected ErrInvalidObjective, got %v", err)
	}
}

func TestRequestFromQueryNormalizesSets(t *testing.T) {
	t.Parallel()

	q := url.Values{}
	q.Set("campaignName", "  Fall Sale ")
	q.Set("objective", "conversion")
	q.Set("sources", "website, website,,shopify")
	q.Set("channels", "")

	req, err := RequestFromQuery(q)
	if err != nil {
		t.Fatalf("RequestFromQuery failed: %v", err)
	}
	if req.CampaignName != "Fall Sale" {
		t.Errorf("unexpected name %q", req.CampaignName)
	}
	if len(req.Sources) != 2 || req.Sources[0] != "website" || req.Sources[1] != "shopify" {
		t.Errorf("unexpected sources %v", req.Sources)
	}
	if len(req.Channels) != 0 {
		t.Errorf("expected no channels, got %v", req.Channels)
	}
}

func TestRequestQueryRoundTrip(t *testing.T) {
	t.Parallel()

	req := NewCampaignRequest("Fall Sale", ObjectiveRetention, []string{"website"}, []string{"email", "sms"})
	got, err := RequestFromQuery(req.Query())
	if err != nil {
		t.Fatalf("RequestFromQuery failed: %v", err)
	}
	if got.CampaignName != req.CampaignName || got.Objective != req.Objective {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, req)
	}
	if len(got.Channels) != 2 || got.Channels[1] != "sms" {
		t.Fatalf("unexpected channels %v", got.Channels)
	}
}

func TestCloneDoesNotShareSlices(t *testing.T) {
	t.Parallel()

	req := NewCampaignRequest("x", ObjectiveConversion, []string{"a"}, []string{"email"})
	clone := req.Clone()
	clone.Channels[0] = "sms"
	if req.Channels[0] != "email" {
		t.Fatalf("clone mutated original: %v", req.Channels)
	}
}

func TestUnknownValues(t *testing.T) {
	t.Parallel()

	got := UnknownValues([]string{"Email", "fax"}, KnownChannels)
	if len(got) != 1 || got[0] != "fax" {
		t.Fatalf("unexpected unknown values %v", got)
	}
}

func TestMessageContentFallsBackToBody(t *testing.T) {
	t.Parallel()

	if got := (Message{Text: "hi", Body: "body"}).Content(); got != "hi" {
		t.Errorf("expected text, got %q", got)
	}
	if got := (Message{Body: "body"}).Content(); got != "body" {
		t.Errorf("expected body fallback, got %q", got)
	}
}

func TestExportName(t *testing.T) {
	t.Parallel()

	if got := (CampaignPlan{CampaignID: "CMP-0042"}).ExportName(); got != "CMP-0042.json" {
		t.Errorf("unexpected export name %q", got)
	}
	if got := (CampaignPlan{}).ExportName(); got != "campaign.json" {
		t.Errorf("unexpected fallback export name %q", got)
	}
}
