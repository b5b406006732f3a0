package studio

import "github.com/ByLCY/thumbsmith/ai"

// handleRadius 为命中手柄的最大距离（显示尺寸，px）。
const handleRadius = 8.0

// Stage 为会话所处的流程阶段。
type Stage int

const (
	StageHeadline Stage = iota
	StageVariations
	StagePrompt
	StageGenerating
	StageEditor
)

func (s Stage) String() string {
	switch s {
	case StageVariations:
		return "variations"
	case StagePrompt:
		return "prompt"
	case StageGenerating:
		return "generating"
	case StageEditor:
		return "editor"
	default:
		return "headline"
	}
}

// MarshalText 让阶段以名称形式出现在 JSON 中。
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is a read-only view of the session.
type State struct {
	Stage        Stage              `json:"stage"`
	Headline     string             `json:"headline"`
	Variations   []ai.Variation     `json:"variations"`
	Prompt       ai.ThumbnailPrompt `json:"prompt"`
	HasBase      bool               `json:"hasBase"`
	BaseWidth    int                `json:"baseWidth"`
	BaseHeight   int                `json:"baseHeight"`
	DisplayWidth int                `json:"displayWidth"`
	DisplayScale float64            `json:"displayScale"`
	Interaction  string             `json:"interaction"`
}
