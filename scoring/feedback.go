package scoring

import "strings"

// Feedback messages.
const (
	MsgLookAtCamera = "Look straight at the camera"
	MsgGoodEyes     = "Great eye contact!"
	MsgHoldSteady   = "Hold your head steady"
	MsgPosture      = "Straighten your posture"
	MsgSpeakClearly = "Speak more clearly"
	MsgClearVoice   = "Clear delivery!"
	MsgKeepGoing    = "You're doing well, keep going!"
)

// Thresholds on the weighted contributions (see Details).
const (
	eyeContactLow  = 20.0
	eyeContactHigh = 30.0
	stabilityLow   = 15.0
	postureLow     = 15.0
)

// Feedback builds one comma-joined message from the face contributions.
// audioScore only contributes when positive; the live path passes 0.
func Feedback(d Details, audioScore float64) string {
	var parts []string

	switch {
	case d.EyeContact < eyeContactLow:
		parts = append(parts, MsgLookAtCamera)
	case d.EyeContact > eyeContactHigh:
		parts = append(parts, MsgGoodEyes)
	}
	if d.Stability < stabilityLow {
		parts = append(parts, MsgHoldSteady)
	}
	if d.Posture < postureLow {
		parts = append(parts, MsgPosture)
	}

	switch {
	case audioScore > 0 && audioScore < 50:
		parts = append(parts, MsgSpeakClearly)
	case audioScore > 80:
		parts = append(parts, MsgClearVoice)
	}

	if len(parts) == 0 {
		return MsgKeepGoing
	}
	return strings.Join(parts, ", ")
}
