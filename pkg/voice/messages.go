package voice

// Server-to-client wire messages. Every frame the server sends is a single
// JSON object with a "type" discriminator; audio is always base64 text, never
// a binary frame.

type transcriptMsg struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	IsFinal   bool   `json:"is_final"`
	EndOfTurn bool   `json:"end_of_turn"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type llmStartMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type llmChunkMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type llmCompleteMsg struct {
	Type         string `json:"type"`
	FullResponse string `json:"full_response"`
}

type llmErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ttsAudioMsg struct {
	Type        string `json:"type"`
	AudioBase64 string `json:"audio_base64"`
	ChunkIndex  int    `json:"chunk_index"`
}

func newTranscriptMsg(text string, endOfTurn bool) transcriptMsg {
	return transcriptMsg{Type: "transcript", Text: text, IsFinal: endOfTurn, EndOfTurn: endOfTurn}
}

func newErrorMsg(message string) errorMsg {
	return errorMsg{Type: "error", Message: message}
}

func newLLMStartMsg() llmStartMsg {
	return llmStartMsg{Type: "llm_start", Message: "Generating response..."}
}

func newLLMChunkMsg(text string) llmChunkMsg {
	return llmChunkMsg{Type: "llm_chunk", Text: text}
}

func newLLMCompleteMsg(full string) llmCompleteMsg {
	return llmCompleteMsg{Type: "llm_complete", FullResponse: full}
}

func newLLMErrorMsg() llmErrorMsg {
	return llmErrorMsg{Type: "llm_error", Message: "Failed to generate response"}
}

func newTTSAudioMsg(audioBase64 string, chunkIndex int) ttsAudioMsg {
	return ttsAudioMsg{Type: "tts_audio", AudioBase64: audioBase64, ChunkIndex: chunkIndex}
}
