// Package domain contains core domain types for the campaign streaming system.
package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Objective is the marketing goal a campaign is generated for.
type Objective string

const (
	// ObjectiveConversion optimises for purchases and sign-ups.
	ObjectiveConversion Objective = "conversion"
	// ObjectiveEngagement optimises for interaction with the brand.
	ObjectiveEngagement Objective = "engagement"
	// ObjectiveRetention optimises for returning customers.
	ObjectiveRetention Objective = "retention"
)

// Known data sources and channels offered by the campaign builder.
var (
	KnownSources  = []string{"facebook", "website", "shopify"}
	KnownChannels = []string{"email", "sms", "whatsapp", "messenger"}
)

// ParseObjective validates an objective string. An empty value defaults to
// ObjectiveConversion.
func ParseObjective(s string) (Objective, error) {
	switch o := Objective(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return ObjectiveConversion, nil
	case ObjectiveConversion, ObjectiveEngagement, ObjectiveRetention:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidObjective, s)
	}
}

// CampaignRequest describes the campaign a client asks the server to generate.
// Sources and Channels behave as sets: duplicates and blanks are dropped and
// the first-seen order is kept.
type CampaignRequest struct {
	CampaignName string
	Objective    Objective
	Sources      []string
	Channels     []string
}

// NewCampaignRequest builds a normalized request.
func NewCampaignRequest(name string, objective Objective, sources, channels []string) CampaignRequest {
	return CampaignRequest{
		CampaignName: strings.TrimSpace(name),
		Objective:    objective,
		Sources:      uniqueNonEmpty(sources),
		Channels:     uniqueNonEmpty(channels),
	}
}

// RequestFromQuery parses the stream endpoint's query parameters.
func RequestFromQuery(q url.Values) (CampaignRequest, error) {
	objective, err := ParseObjective(q.Get("objective"))
	if err != nil {
		return CampaignRequest{}, err
	}
	return NewCampaignRequest(
		q.Get("campaignName"),
		objective,
		SplitList(q.Get("sources")),
		SplitList(q.Get("channels")),
	), nil
}

// Query encodes the request as stream endpoint query parameters.
func (r CampaignRequest) Query() url.Values {
	q := url.Values{}
	q.Set("campaignName", r.CampaignName)
	q.Set("objective", string(r.Objective))
	q.Set("sources", strings.Join(r.Sources, ","))
	q.Set("channels", strings.Join(r.Channels, ","))
	return q
}

// Clone returns a deep copy so that consumers never share the set slices.
func (r CampaignRequest) Clone() CampaignRequest {
	out := r
	out.Sources = append([]string(nil), r.Sources...)
	out.Channels = append([]string(nil), r.Channels...)
	return out
}

// SplitList splits a comma-separated list, trimming whitespace. An empty
// string yields an empty list.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return uniqueNonEmpty(parts)
}

// UnknownValues returns the entries of values that are not in known.
func UnknownValues(values, known []string) []string {
	var unknown []string
	for _, v := range values {
		found := false
		for _, k := range known {
			if strings.EqualFold(v, k) {
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, v)
		}
	}
	return unknown
}

func uniqueNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
