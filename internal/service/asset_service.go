package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/marketgen/api/internal/client"
	"github.com/marketgen/api/internal/model"
)

var (
	blankLinesRe = regexp.MustCompile(`\n\s*\n+`)
	spacesRe     = regexp.MustCompile(`[ \t]+`)
)

// CleanText normalizes whitespace in extracted source text.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// BuildSourceContext merges the two cleaned source texts into the single
// context string every text-generation prompt is grounded on.
func BuildSourceContext(pptText, websiteText string) string {
	return strings.TrimSpace(fmt.Sprintf(
		"SOURCE: PRESENTATION\n%s\n\nSOURCE: WEBSITE\n%s", pptText, websiteText))
}

// AssetService generates the four text assets (brief, angles, email, image
// prompts) through the text-generation collaborator. Responses are salvage
// parsed and validated immediately so shape mismatches fail at the stage
// boundary instead of deep in formatting code.
type AssetService struct {
	textGen client.TextGenerator
}

func NewAssetService(textGen client.TextGenerator) *AssetService {
	return &AssetService{textGen: textGen}
}

// GenerateBrief produces the marketing brief. Every later stage depends on it.
func (s *AssetService) GenerateBrief(ctx context.Context, sourceContext string) (*model.MarketingBrief, error) {
	system := "You are a senior marketing strategist who also thinks in terms of product structure, " +
		"system components, and visual metaphors. Write briefs that are useful for both copywriting and visual design."

	user := fmt.Sprintf(`From the sources below, generate a marketing brief.
Return a JSON OBJECT with EXACTLY these keys:
- product_or_service
- target_audience
- value_proposition
- key_benefits (array of strings)
- tone_of_voice
- call_to_action

Sources:
%s
`, sourceContext)

	raw, err := s.textGen.ChatCompletionJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("brief generation failed: %w", err)
	}

	var brief model.MarketingBrief
	if err := ParseModelJSON(raw, &brief); err != nil {
		return nil, fmt.Errorf("failed to parse brief: %w", err)
	}
	if err := brief.Validate(); err != nil {
		return nil, fmt.Errorf("invalid brief: %w", err)
	}
	return &brief, nil
}

// GenerateAngles produces exactly count creative angles from the brief.
func (s *AssetService) GenerateAngles(ctx context.Context, brief *model.MarketingBrief, count int) (*model.CreativeAngleSet, error) {
	user := fmt.Sprintf(`From the brief below, generate exactly %d distinct creative angles.

Each angle must include:
- angle_name
- intent
- visual_focus (what the image should visually emphasize, e.g. workflow, system, outcome, comparison)

Brief:
%s

Return JSON object with key "angles".
`, count, mustJSON(brief))

	raw, err := s.textGen.ChatCompletionJSON(ctx, "You are a creative director.", user)
	if err != nil {
		return nil, fmt.Errorf("angle generation failed: %w", err)
	}

	var angles model.CreativeAngleSet
	if err := ParseModelJSON(raw, &angles); err != nil {
		return nil, fmt.Errorf("failed to parse angles: %w", err)
	}
	if err := angles.Validate(); err != nil {
		return nil, fmt.Errorf("invalid angles: %w", err)
	}
	return &angles, nil
}

// GenerateEmail produces the marketing email from the brief.
func (s *AssetService) GenerateEmail(ctx context.Context, brief *model.MarketingBrief) (*model.EmailCopy, error) {
	user := fmt.Sprintf(`Write a marketing email using the brief below.
Include keys: "subject", "body".
Brief:
%s

Return JSON object only.
`, mustJSON(brief))

	raw, err := s.textGen.ChatCompletionJSON(ctx, "You are a professional copywriter.", user)
	if err != nil {
		return nil, fmt.Errorf("email generation failed: %w", err)
	}

	var email model.EmailCopy
	if err := ParseModelJSON(raw, &email); err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}
	if err := email.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	return &email, nil
}

// GenerateImagePrompts turns the brief and angles into one full design prompt
// plus user-facing summary per angle.
func (s *AssetService) GenerateImagePrompts(ctx context.Context, brief *model.MarketingBrief, angles *model.CreativeAngleSet) (*model.ImagePromptSet, error) {
	system := "You are a senior visual designer specializing in professional B2B marketing visuals, " +
		"product infographics, technical diagrams, and social media brand graphics. You think in terms of " +
		"layout, visual hierarchy, and information clarity. Your outputs look designed, not illustrated."

	user := fmt.Sprintf(`You will generate image-generation prompts for marketing visuals.

CRITICAL RULE:
- The final image prompt must be LONG, STRUCTURED, and EXECUTABLE.
- Do NOT write summaries, descriptions, or captions INSIDE the image prompt.
- Write prompts that read like a design specification given to a visual designer.
- If the output could be used as a caption, it is WRONG.

NEW REQUIREMENT:
- In addition to the full image-generation prompt, generate a SHORT, USER-FACING SUMMARY.
- This summary is NOT part of the image prompt.
- It should read like a feature explanation or caption a user would see next to the image.
- It must be concise, plain-language, and explain what the visual shows and why it matters.

INTERNAL PROCESS (do not output these steps):
1. Infer product category and complexity from the marketing brief.
2. For each creative angle, derive a VISUAL BRIEF with:
   - Visual format (choose ONE): infographic, workflow diagram, system architecture, UI feature panel, comparison visual
   - Primary visual metaphor (flow, hub-and-spoke, layered stack, timeline)
   - Information density (low / medium / high)
   - Focal point
3. Convert the visual brief into a FULL DESIGN PROMPT using the REQUIRED FORMAT below.
4. Separately generate a one-sentence USER SUMMARY describing the visual at a feature level.

REQUIRED FINAL PROMPT FORMAT (MUST FOLLOW EXACTLY):

Title:
(one short internal title, not marketing copy)

Visual Type:
(explicitly state the visual format)

Layout & Composition:
(bullet points describing layout zones, hierarchy, spacing, reading order)

Core Visual Elements:
(bullet points describing what is drawn, where, and how elements relate spatially)

Data / UI Representation:
(bullet points describing charts, panels, metrics, flows, arrows, dashboards)

Style & Aesthetic:
(bullet points defining flat vs isometric, realism level, color mood, contrast)

Constraints:
(bullet points listing what must NOT appear)

Purpose:
(one sentence describing what the viewer should understand in 3 seconds)

GLOBAL CONSTRAINTS (apply to all prompts):
- Diagrammatic / schematic, not marketing poster or hero art
- No headline-style text embedded in image
- No cinematic lighting, glow, or concept art
- No realistic people as main subjects (icons or silhouettes only)
- Clean, professional, brand-neutral
- Aspect ratio: 4:5, social media feed optimized

MARKETING BRIEF:
%s

CREATIVE ANGLES:
%s

OUTPUT:
Return JSON only:
{
  "prompts": [
    {
      "angle_name": "...",
      "summary": "Plain-language explanation of what the image visualizes and the feature or insight it communicates.",
      "prompt": "FULL STRUCTURED PROMPT TEXT"
    }
  ]
}
`, mustJSON(brief), mustJSON(angles))

	raw, err := s.textGen.ChatCompletionJSON(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("image prompt generation failed: %w", err)
	}

	var prompts model.ImagePromptSet
	if err := ParseModelJSON(raw, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse image prompts: %w", err)
	}
	if err := prompts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid image prompts: %w", err)
	}
	return &prompts, nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
