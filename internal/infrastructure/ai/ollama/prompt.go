package ollama

func buildSummaryPrompt(text, fileName string) string {
	const maxSnippet = 4000
	snippet := text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	return `You are a clinical document summarizer.
Return strict JSON object with keys:
summary (string, at most three sentences), tags (array of strings), keywords (array of strings), category (string).
No markdown, no extra keys.

File name: ` + fileName + `

Document:
` + snippet
}

func buildOCRPrompt() string {
	return `Transcribe all readable text from the attached image.
Return only the text, preserving line breaks. If no text is readable, return an empty string.`
}
