package workflow

import "strings"

// Reply texts
const (
	ReplyHelp = "✅ Copy Bot Ready\n\n" +
		"/brief – send product info\n" +
		"/write – generate copy\n" +
		"/pick – select draft\n" +
		"/revise – improve\n" +
		"/deliver – final copy"

	ReplyBriefPrompt = "Send product info (product, audience, features)."
	ReplyBriefSaved  = "✅ Brief saved. Use /write"
	ReplyPicked      = "✅ Draft selected. Use /revise or /deliver"

	ReplyNeedBrief     = "Use /brief first."
	ReplyNeedDraft     = "Use /write first."
	ReplyNeedChosen    = "Pick a draft first."
	ReplyNothingToSend = "Nothing to deliver yet."
	ReplyNotAwaiting   = "Use /brief to start a new brief."

	ReplyUnavailable = "⚠️ Generation is temporarily unavailable. Please try again."

	// ClientMessage closes every delivery
	ClientMessage = "Here's the draft. Want it shorter, more premium, or more casual?"
)

const draftPromptTemplate = `
Write 3 product descriptions (120–150 words each).

Product info:
{brief}

Rules:
- Short sentences
- Plain English
- Benefits over features
- No hype
`

const revisePromptPrefix = "Improve this copy. Make it clearer and shorter.\n\n"

// DraftPrompt builds the drafting prompt for a brief
func DraftPrompt(brief string) string {
	return strings.Replace(draftPromptTemplate, "{brief}", brief, 1)
}

// RevisePrompt builds the revision prompt for the chosen draft
func RevisePrompt(chosen string) string {
	return revisePromptPrefix + chosen
}

func draftsReply(draft string) string {
	return "✍️ Drafts:\n\n" + draft + "\n\nUse /pick"
}

func revisedReply(revised string) string {
	return "🛠 Revised:\n\n" + revised
}

func deliverReply(final string) string {
	return "📦 FINAL COPY\n\n" + final + "\n\nClient message:\n" + ClientMessage
}
