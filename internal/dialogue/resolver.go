package dialogue

import (
	"regexp"
	"strconv"
	"strings"
)

// OfferedOption is one choice as offered to the caller, carried in attributes.
type OfferedOption struct {
	OptionID      string `json:"option_id"`
	OptionText    string `json:"option_text"`
	Index         int    `json:"index"`
	NextChapterID string `json:"next_chapter_id,omitempty"`
}

var ordinals = map[string]int{
	"uno": 1, "una": 1, "primero": 1, "primera": 1, "one": 1, "first": 1,
	"dos": 2, "segundo": 2, "segunda": 2, "two": 2, "second": 2,
	"tres": 3, "tercero": 3, "tercera": 3, "three": 3, "third": 3,
}

// fillers may precede an ordinal: "la dos", "opción tres".
var fillers = map[string]bool{
	"la": true, "el": true, "opcion": true, "numero": true, "option": true, "number": true,
}

var leadingNumeral = regexp.MustCompile(`^(\d+)\b`)

// Resolve maps a spoken value to one of opts. It tries, in order: an ordinal
// word or leading numeral matched by index, the normalized option text, and
// finally the intent name against option id or text. It never guesses.
func Resolve(raw, intentName string, opts []OfferedOption) (OfferedOption, bool) {
	n := Normalize(raw)

	if idx, ok := ordinalIndex(n, len(opts)); ok {
		for _, o := range opts {
			if o.Index == idx {
				return o, true
			}
		}
	}

	if n != "" {
		for _, o := range opts {
			if Normalize(o.OptionText) == n {
				return o, true
			}
		}
	}

	intent := strings.ToLower(strings.TrimSpace(intentName))
	if intent != "" {
		ni := Normalize(intentName)
		for _, o := range opts {
			if strings.ToLower(o.OptionID) == intent {
				return o, true
			}
			if ni != "" && Normalize(o.OptionText) == ni {
				return o, true
			}
		}
	}
	return OfferedOption{}, false
}

func ordinalIndex(n string, count int) (int, bool) {
	words := strings.Fields(n)
	for len(words) > 1 && fillers[words[0]] {
		words = words[1:]
	}
	rest := strings.Join(words, " ")
	if idx, ok := ordinals[rest]; ok {
		return idx, true
	}
	if count == 1 && (rest == "continuar" || rest == "continua" || rest == "seguir") {
		return 1, true
	}
	if m := leadingNumeral.FindStringSubmatch(rest); m != nil {
		if idx, err := strconv.Atoi(m[1]); err == nil {
			return idx, true
		}
	}
	return 0, false
}

// offerOptions lists up to three options with 1-based indexes.
func offerOptions(opts []OfferedOption) []OfferedOption {
	if len(opts) > 3 {
		opts = opts[:3]
	}
	out := make([]OfferedOption, len(opts))
	for i, o := range opts {
		o.Index = i + 1
		out[i] = o
	}
	return out
}
