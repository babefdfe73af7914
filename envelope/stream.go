package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MediaType is the content type used by all streaming responses.
const MediaType = "text/event-stream"

// DoneFrame is the literal terminal sentinel ending every stream.
const DoneFrame = "data: [DONE]\n\n"

// errorStreamMessage is the fixed assistant message sent when a streaming
// operation fails. The stream degrades to this message plus the sentinel
// instead of dropping the connection.
var errorStreamMessage = map[string]any{
	"choices": []any{
		map[string]any{
			"delta": map[string]any{
				"role":    "assistant",
				"content": "The operation could not be completed. Please try again later.",
			},
		},
	},
}

// Frame formats a payload as a single event frame: "data: <json>\n\n".
func Frame(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("envelope: marshal stream frame: %w", err)
	}
	return fmt.Sprintf("data: %s\n\n", data), nil
}

// ErrorFrames returns the fixed two-frame error stream: the assistant error
// message followed by the terminal sentinel.
func ErrorFrames() []string {
	frame, err := Frame(errorStreamMessage)
	if err != nil {
		// The error message is a static structure; marshalling cannot fail.
		frame = DoneFrame
	}
	return []string{frame, DoneFrame}
}

// setStreamHeaders applies the fixed streaming headers: event-stream media
// type, caching disabled, connection kept alive.
func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", MediaType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// WriteStream writes pre-formatted event frames as they are produced,
// flushing after each one. The channel is drained to completion; callers
// close it to end the stream and are responsible for sending DoneFrame last.
func WriteStream(w http.ResponseWriter, frames <-chan string) error {
	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for frame := range frames {
		if _, err := fmt.Fprint(w, frame); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}

// WriteErrorStream writes exactly two frames: the structured assistant error
// message and the terminal sentinel. No further frames follow.
func WriteErrorStream(w http.ResponseWriter) error {
	frames := make(chan string, 2)
	for _, frame := range ErrorFrames() {
		frames <- frame
	}
	close(frames)
	return WriteStream(w, frames)
}
