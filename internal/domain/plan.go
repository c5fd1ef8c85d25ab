package domain

// CampaignPlan is the structured result of a campaign generation. Every
// partial chunk on the wire is a complete CampaignPlan document.
type CampaignPlan struct {
	CampaignID   string   `json:"campaign_id"`
	CampaignName string   `json:"campaign_name"`
	Objective    string   `json:"objective"`
	Strategy     Strategy `json:"strategy"`
}

// Strategy holds the selected sources and the generated per-channel content.
type Strategy struct {
	Sources    []string         `json:"sources"`
	PerChannel []ChannelMessage `json:"per_channel"`
}

// ChannelMessage is the generated message for one channel.
type ChannelMessage struct {
	Channel string  `json:"channel"`
	Message Message `json:"message"`
}

// Message is the content of a channel message.
type Message struct {
	Text string `json:"text"`
	Body string `json:"body,omitempty"`
}

// Content returns the message text, falling back to Body for payloads that
// only carry a body.
func (m Message) Content() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Body
}

// ExportName returns the file name used when the plan is saved to disk.
func (p CampaignPlan) ExportName() string {
	if p.CampaignID == "" {
		return "campaign.json"
	}
	return p.CampaignID + ".json"
}
