package deepgram

import (
	"github.com/Nephrolytics-ai/transcribe-cli/pkg/transcribe"
	"github.com/tidwall/gjson"
)

// ExtractTranscript reads results.channels[0].alternatives[0].transcript.
// Any missing key, wrong type or empty array fails; nothing is guessed.
func ExtractTranscript(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", transcribe.NewMalformedResponseError("response is not valid JSON")
	}

	results := gjson.ParseBytes(body).Get("results")
	if !results.IsObject() {
		return "", transcribe.NewMalformedResponseError("results is missing or not an object")
	}

	channel, err := firstObject(results, "channels")
	if err != nil {
		return "", err
	}
	alternative, err := firstObject(channel, "alternatives")
	if err != nil {
		return "", err
	}

	transcript := alternative.Get("transcript")
	if transcript.Type != gjson.String {
		return "", transcribe.NewMalformedResponseError("transcript is missing or not a string")
	}
	return transcript.String(), nil
}

func firstObject(parent gjson.Result, key string) (gjson.Result, error) {
	list := parent.Get(key)
	if !list.IsArray() {
		return gjson.Result{}, transcribe.NewMalformedResponseError(key + " is missing or not an array")
	}

	first := list.Get("0")
	if !first.IsObject() {
		return gjson.Result{}, transcribe.NewMalformedResponseError(key + " is empty or its first entry is not an object")
	}
	return first, nil
}
