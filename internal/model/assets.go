package model

import "fmt"

// MarketingBrief is the structured brief generated from the source context.
type MarketingBrief struct {
	ProductOrService string   `json:"product_or_service"`
	TargetAudience   string   `json:"target_audience"`
	ValueProposition string   `json:"value_proposition"`
	KeyBenefits      []string `json:"key_benefits"`
	ToneOfVoice      string   `json:"tone_of_voice"`
	CallToAction     string   `json:"call_to_action"`
}

// Validate checks the brief has the shape downstream prompts depend on.
func (b *MarketingBrief) Validate() error {
	if b.ProductOrService == "" {
		return fmt.Errorf("brief missing product_or_service")
	}
	if b.ValueProposition == "" {
		return fmt.Errorf("brief missing value_proposition")
	}
	return nil
}

// CreativeAngle is one distinct creative direction derived from the brief.
type CreativeAngle struct {
	AngleName   string `json:"angle_name"`
	Intent      string `json:"intent"`
	VisualFocus string `json:"visual_focus"`
}

// CreativeAngleSet wraps the model's "angles" array.
type CreativeAngleSet struct {
	Angles []CreativeAngle `json:"angles"`
}

func (s *CreativeAngleSet) Validate() error {
	if len(s.Angles) == 0 {
		return fmt.Errorf("no angles in response")
	}
	for i, a := range s.Angles {
		if a.AngleName == "" {
			return fmt.Errorf("angle %d missing angle_name", i)
		}
	}
	return nil
}

// EmailCopy is the generated marketing email.
type EmailCopy struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (e *EmailCopy) Validate() error {
	if e.Subject == "" || e.Body == "" {
		return fmt.Errorf("email missing subject or body")
	}
	return nil
}

// ImagePrompt is one full design prompt plus its user-facing summary.
type ImagePrompt struct {
	AngleName string `json:"angle_name"`
	Summary   string `json:"summary"`
	Prompt    string `json:"prompt"`
}

// ImagePromptSet wraps the model's "prompts" array.
type ImagePromptSet struct {
	Prompts []ImagePrompt `json:"prompts"`
}

func (s *ImagePromptSet) Validate() error {
	if len(s.Prompts) == 0 {
		return fmt.Errorf("no prompts in response")
	}
	for i, p := range s.Prompts {
		if p.Prompt == "" {
			return fmt.Errorf("prompt %d is empty", i)
		}
	}
	return nil
}

// CreativeItem is one creative angle's worth of image-generation work.
// It exists only in memory; the derived GeneratedImage is what gets persisted.
type CreativeItem struct {
	Index     int
	AngleName string
	Summary   string
	Prompt    string
}

// ItemsFromPrompts converts a prompt set into indexed batch items.
// The index assigned here defines canonical ordering for the whole batch.
func ItemsFromPrompts(set *ImagePromptSet) []CreativeItem {
	items := make([]CreativeItem, 0, len(set.Prompts))
	for i, p := range set.Prompts {
		name := p.AngleName
		if name == "" {
			name = fmt.Sprintf("Angle_%d", i)
		}
		items = append(items, CreativeItem{
			Index:     i,
			AngleName: name,
			Summary:   p.Summary,
			Prompt:    p.Prompt,
		})
	}
	return items
}
