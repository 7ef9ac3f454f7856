package models

// SlashCommand is the form body Slack posts for a slash command.
type SlashCommand struct {
	Command     string `form:"command"`
	Text        string `form:"text"`
	UserID      string `form:"user_id"`
	UserName    string `form:"user_name"`
	ChannelID   string `form:"channel_id"`
	TeamID      string `form:"team_id"`
	ResponseURL string `form:"response_url"`
}

// InteractionPayload is the JSON carried in the "payload" form field of an
// interactive callback.
type InteractionPayload struct {
	Type    string          `json:"type"`
	User    SlackRef        `json:"user"`
	Channel SlackRef        `json:"channel"`
	Actions []ActionPayload `json:"actions"`
	State   BlockState      `json:"state"`
}

// SlackRef identifies a user or channel.
type SlackRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ActionPayload is one clicked element.
type ActionPayload struct {
	ActionID string `json:"action_id"`
	BlockID  string `json:"block_id"`
	Value    string `json:"value"`
}

// BlockState holds input values keyed by block id then action id.
type BlockState struct {
	Values map[string]map[string]InputValue `json:"values"`
}

// InputValue is the current value of an input element.
type InputValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FirstAction returns the clicked action, if any.
func (p *InteractionPayload) FirstAction() (ActionPayload, bool) {
	if len(p.Actions) == 0 {
		return ActionPayload{}, false
	}
	return p.Actions[0], true
}

// Input returns the value typed into blockID/actionID.
func (s BlockState) Input(blockID, actionID string) (string, bool) {
	block, ok := s.Values[blockID]
	if !ok {
		return "", false
	}
	v, ok := block[actionID]
	if !ok {
		return "", false
	}
	return v.Value, true
}
