package mavi

import (
	"encoding/json"

	"github.com/openinterx/mavi-go/pkg/api"
)

// Request/response types for the Mavi video API. Field names mirror the
// backend's wire format.

// codeOK is the envelope status code indicating success.
const codeOK = "0000"

// envelope is the response wrapper shared by every Mavi endpoint,
// buffered and streaming alike.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// err returns the application-level error carried by the envelope, or
// nil when the status code is the success sentinel. Both the buffered
// and the streaming decode paths report failures through it so the two
// cannot drift apart.
func (e *envelope) err() *api.APIError {
	if e.Code == codeOK {
		return nil
	}
	return api.NewAPIError(e.Code, e.Msg)
}

// chatText extracts the assistant text payload from a chat envelope.
// A missing or malformed payload yields the empty string.
func (e *envelope) chatText() string {
	if len(e.Data) == 0 {
		return ""
	}
	var d chatData
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return ""
	}
	return d.Msg
}

// chatData is the nested payload of a chat envelope.
type chatData struct {
	Msg string `json:"msg"`
}

// VideoStatus describes the processing state of an uploaded video.
type VideoStatus string

const (
	// VideoStatusParse marks videos that finished processing.
	VideoStatusParse VideoStatus = "PARSE"
	// VideoStatusUnparse marks videos still being processed.
	VideoStatusUnparse VideoStatus = "UNPARSE"
	// VideoStatusFail marks videos whose processing failed.
	VideoStatusFail VideoStatus = "FAIL"
)

// Video describes one video stored on the Mavi platform.
type Video struct {
	VideoNo     string `json:"videoNo"`
	VideoName   string `json:"videoName"`
	VideoStatus string `json:"videoStatus"`
	UploadTime  int64  `json:"uploadTime"` // milliseconds since epoch
}

// Clip describes a scored fragment of a video returned by clip search.
type Clip struct {
	VideoNo           string  `json:"videoNo"`
	VideoName         string  `json:"videoName"`
	VideoStatus       string  `json:"videoStatus"`
	UploadTime        int64   `json:"uploadTime"`
	FragmentStartTime float64 `json:"fragmentStartTime"` // seconds
	FragmentEndTime   float64 `json:"fragmentEndTime"`   // seconds
	Duration          float64 `json:"duration"`          // seconds
}

// SearchMetadataRequest selects videos by upload time window, status,
// and page. Zero values are replaced per call with fresh defaults:
// start = one week ago, end = now, status = PARSE, page 1, size 10.
type SearchMetadataRequest struct {
	StartTime   int64 // milliseconds since epoch
	EndTime     int64 // milliseconds since epoch
	VideoStatus VideoStatus
	Page        int
	PageSize    int
}

// searchDBData is the payload of a searchDB envelope.
type searchDBData struct {
	VideoData []Video `json:"videoData"`
}

// searchAIData is the payload of a searchAI envelope.
type searchAIData struct {
	Videos []Video `json:"videos"`
}

// searchFragmentData is the payload of a searchVideoFragment envelope.
type searchFragmentData struct {
	Videos []Clip `json:"videos"`
}

// ChatMessage is one turn of chat history.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest asks the assistant a question about one or more videos.
type ChatRequest struct {
	VideoNos []string
	Message  string
	History  []ChatMessage
}

// chatPayload is the wire form of a chat request.
type chatPayload struct {
	VideoNos []string      `json:"videoNos"`
	Message  string        `json:"message"`
	History  []ChatMessage `json:"history"`
	Stream   bool          `json:"stream"`
}

// TranscriptionType selects what a transcription task transcribes.
type TranscriptionType string

const (
	// TranscriptionAudio transcribes the audio track.
	TranscriptionAudio TranscriptionType = "AUDIO"
	// TranscriptionVideo produces a visual description of the video.
	TranscriptionVideo TranscriptionType = "VIDEO"
)

// transcribePayload is the wire form of a subTranscription request.
type transcribePayload struct {
	VideoNo string `json:"videoNo"`
	Type    string `json:"type"`
}

// transcribeData is the payload of a subTranscription envelope.
type transcribeData struct {
	TaskNo string `json:"taskNo"`
}

// TranscriptionSegment is one timed span of transcription text.
type TranscriptionSegment struct {
	ID        int     `json:"id"`
	StartTime float64 `json:"startTime"` // seconds
	EndTime   float64 `json:"endTime"`   // seconds
	Content   string  `json:"content"`
}

// Transcription is the state of a transcription task.
type Transcription struct {
	TaskNo         string                 `json:"taskNo"`
	Status         string                 `json:"status"` // FINISH, PROCESSING, FAIL
	Transcriptions []TranscriptionSegment `json:"transcriptions"`
}

// UploadOptions carries optional upload parameters.
type UploadOptions struct {
	// CallbackURI is a publicly reachable URL that receives processing
	// results via POST once the video finishes parsing.
	CallbackURI string
}
