package simulator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"chunkgen/pkg/types"
)

// Tokens 0-255 are raw bytes. EOS ends generation and has no text.
const (
	tokenEOS   uint32 = 257
	vocabBytes uint32 = 256
)

func tokenize(text string) []uint32 {
	out := make([]uint32, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = uint32(text[i])
	}
	return out
}

func detokenize(tokens []uint32) []byte {
	out := make([]byte, 0, len(tokens))
	for _, t := range tokens {
		if t < vocabBytes {
			out = append(out, byte(t))
		}
	}
	return out
}

// tokenAt returns the token occupying absolute position pos of the session
// stream (prompt followed by output).
func tokenAt(s types.Session, pos int) (uint32, bool) {
	if pos < len(s.Prompt) {
		return s.Prompt[pos], true
	}
	pos -= len(s.Prompt)
	if pos < len(s.Output) {
		return s.Output[pos], true
	}
	return 0, false
}

// keyAt and valueAt define the cache contents of one position. Values stay
// well inside float32's exact integer range.
func keyAt(layer int, tok uint32, pos int) float32 {
	return float32(layer*7919 + int(tok)*31 + pos)
}

func valueAt(layer int, tok uint32, pos int) float32 {
	return -keyAt(layer, tok, pos) / 2
}

// layerGain is what one layer adds to a token's hidden activation.
func layerGain(layer int) float32 { return float32(layer + 1) }

// expectedHidden is the activation of tok after all layers ran exactly once.
func expectedHidden(tok uint32, layers int) float32 {
	return float32(tok) + float32(layers*(layers+1)/2)
}

func initialHidden(tokens []uint32) types.Tensor {
	h := make([]float32, len(tokens))
	for i, t := range tokens {
		h[i] = float32(t)
	}
	return types.F32Tensor(h)
}

var (
	markerRE = regexp.MustCompile(`<\|[^|>]*\|>`)
	roles    = map[string]bool{"system": true, "user": true, "assistant": true}
)

// reply derives the scripted completion for a prompt: the last visible
// segment between chat markers, echoed back.
func reply(prompt []uint32, maxBytes int) []uint32 {
	text := string(detokenize(prompt))
	var last string
	for _, seg := range markerRE.Split(text, -1) {
		seg = strings.TrimSpace(seg)
		if seg == "" || roles[seg] {
			continue
		}
		last = seg
	}
	out := "Echo."
	if last != "" {
		out = "Echo: " + strings.Join(strings.Fields(last), " ")
	}
	for len(out) > maxBytes {
		_, size := utf8.DecodeLastRuneInString(out)
		out = out[:len(out)-size]
	}
	return tokenize(out)
}

// emit returns the text of output tokens past the session's output cursor
// and the new cursor. A trailing incomplete UTF-8 sequence is held back.
func emit(s types.Session) (string, int) {
	pending := detokenize(s.Output[s.OutputCursor:])
	cut := len(pending)
	for i := len(pending) - 1; i >= 0 && i >= len(pending)-utf8.UTFMax; i-- {
		if utf8.RuneStart(pending[i]) {
			if !utf8.FullRune(pending[i:]) {
				cut = i
			}
			break
		}
	}
	return string(pending[:cut]), s.OutputCursor + cut
}
