package cleanup

import "strings"

// Mode names a transcript transformation.
type Mode string

const (
	ModeDefault      Mode = "default"
	ModeEmail        Mode = "email"
	ModeBullets      Mode = "bullets"
	ModeSummary      Mode = "summary"
	ModeSlack        Mode = "slack"
	ModeMeetingNotes Mode = "meeting_notes"
	ModeCodeComment  Mode = "code_comment"
)

// ModeSpec is one entry of the mode catalog. Prompt templates use
// {language} and {text} placeholders.
type ModeSpec struct {
	ID          Mode   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	systemTemplate string
	userTemplate   string
}

var modeOrder = []Mode{
	ModeDefault,
	ModeEmail,
	ModeBullets,
	ModeSummary,
	ModeSlack,
	ModeMeetingNotes,
	ModeCodeComment,
}

var modeTable = map[Mode]ModeSpec{
	ModeDefault: {
		ID:          ModeDefault,
		Name:        "Default",
		Description: "Clean up grammar and filler words",
		systemTemplate: "You are a transcript cleaner that NEVER translates. You clean up speech transcripts " +
			"by removing filler words and fixing grammar while keeping the EXACT SAME LANGUAGE as the input. " +
			"If input is {language}, output {language}. NEVER change the language. Output ONLY the cleaned text.",
		userTemplate: "Clean this {language} transcript (keep in {language}, do NOT translate):\n\n{text}",
	},
	ModeEmail: {
		ID:          ModeEmail,
		Name:        "Email",
		Description: "Format as professional email",
		systemTemplate: "You are a professional email formatter that NEVER translates. Format this transcript " +
			"as a professional email with an appropriate greeting, well-structured body paragraphs, and a " +
			"professional closing. Keep the EXACT SAME LANGUAGE as the input ({language}). NEVER change the " +
			"language. Output ONLY the formatted email, nothing else.",
		userTemplate: "Format this {language} transcript as a professional email (keep in {language}):\n\n{text}",
	},
	ModeBullets: {
		ID:          ModeBullets,
		Name:        "Bullet Points",
		Description: "Convert to organized bullet points",
		systemTemplate: "You are a content organizer that NEVER translates. Convert this transcript into clear, " +
			"organized bullet points. Extract key points and use concise language. Keep the EXACT SAME LANGUAGE " +
			"as the input ({language}). NEVER change the language. Output ONLY the bullet list using • or - " +
			"markers, nothing else.",
		userTemplate: "Convert this {language} transcript to bullet points (keep in {language}):\n\n{text}",
	},
	ModeSummary: {
		ID:          ModeSummary,
		Name:        "Summary",
		Description: "Condense into a brief summary",
		systemTemplate: "You are a summarizer that NEVER translates. Condense this transcript into a brief " +
			"summary capturing the main points. Be concise but comprehensive. Keep the EXACT SAME LANGUAGE as " +
			"the input ({language}). NEVER change the language. Output ONLY the summary, nothing else.",
		userTemplate: "Summarize this {language} transcript (keep in {language}):\n\n{text}",
	},
	ModeSlack: {
		ID:          ModeSlack,
		Name:        "Slack Message",
		Description: "Short, casual chat message",
		systemTemplate: "You are a chat message formatter that NEVER translates. Convert this transcript into a " +
			"short, casual message suitable for Slack or chat. Keep it friendly and concise. Keep the EXACT SAME " +
			"LANGUAGE as the input ({language}). NEVER change the language. Output ONLY the message, nothing else.",
		userTemplate: "Convert this {language} transcript to a casual chat message (keep in {language}):\n\n{text}",
	},
	ModeMeetingNotes: {
		ID:          ModeMeetingNotes,
		Name:        "Meeting Notes",
		Description: "Structure with key points and action items",
		systemTemplate: "You are a meeting notes formatter that NEVER translates. Structure this transcript as " +
			"meeting notes with:\n- Key Discussion Points\n- Decisions Made\n- Action Items (if any)\nKeep the " +
			"EXACT SAME LANGUAGE as the input ({language}). NEVER change the language. Output ONLY the formatted " +
			"notes, nothing else.",
		userTemplate: "Format this {language} transcript as meeting notes (keep in {language}):\n\n{text}",
	},
	ModeCodeComment: {
		ID:          ModeCodeComment,
		Name:        "Code Comment",
		Description: "Format as code documentation",
		systemTemplate: "You are a code documentation formatter that NEVER translates. Format this transcript as " +
			"a code documentation comment. Use appropriate format (JSDoc, docstring, etc. based on content). Be " +
			"technical and precise. Keep the EXACT SAME LANGUAGE as the input ({language}). NEVER change the " +
			"language. Output ONLY the formatted comment, nothing else.",
		userTemplate: "Format this {language} transcript as a code comment (keep in {language}):\n\n{text}",
	},
}

// ParseMode maps a catalog identifier to a Mode; unknown identifiers fall
// back to the default mode.
func ParseMode(s string) Mode {
	mode := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := modeTable[mode]; ok {
		return mode
	}
	return ModeDefault
}

// Modes lists the catalog in stable order.
func Modes() []ModeSpec {
	out := make([]ModeSpec, 0, len(modeOrder))
	for _, id := range modeOrder {
		out = append(out, modeTable[id])
	}
	return out
}

// Spec returns the catalog entry for a mode.
func Spec(mode Mode) ModeSpec {
	if spec, ok := modeTable[mode]; ok {
		return spec
	}
	return modeTable[ModeDefault]
}

func (s ModeSpec) systemPrompt(languageName string) string {
	return strings.ReplaceAll(s.systemTemplate, "{language}", languageName)
}

func (s ModeSpec) userPrompt(languageName, text string) string {
	prompt := strings.ReplaceAll(s.userTemplate, "{language}", languageName)
	return strings.ReplaceAll(prompt, "{text}", text)
}
