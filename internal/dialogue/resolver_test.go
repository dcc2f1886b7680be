package dialogue

import (
	"strconv"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"¡Sí, Mañana!":          "si manana",
		"  Abrir   la CARTA. ":  "abrir la carta",
		"Dejarla para otro día": "dejarla para otro dia",
		"":                      "",
		"...":                   "",
		"Opción-2":              "opcion 2",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

var sampleTexts = []string{"Abrir la carta ahora", "Dejarla para otro día", "Llamar a un amigo"}

func sampleOptions(n int) []OfferedOption {
	opts := make([]OfferedOption, 0, n)
	for i := 0; i < n; i++ {
		opts = append(opts, OfferedOption{OptionID: "o" + strconv.Itoa(i+1), OptionText: sampleTexts[i]})
	}
	return offerOptions(opts)
}

func TestResolveByIndexTextAndOrdinal(t *testing.T) {
	words := []string{"uno", "dos", "tres"}
	for n := 1; n <= 3; n++ {
		opts := sampleOptions(n)
		for i, o := range opts {
			inputs := []string{
				words[i],
				strings.ToUpper(words[i]),
				"opción " + words[i],
				strconv.Itoa(i + 1),
				strconv.Itoa(i+1) + " por favor",
				o.OptionText,
				strings.ToUpper(o.OptionText) + "!",
				Normalize(o.OptionText),
			}
			for _, in := range inputs {
				got, ok := Resolve(in, "ChooseOptionIntent", opts)
				if !ok || got.OptionID != o.OptionID {
					t.Errorf("n=%d Resolve(%q) = %+v, %v; want %s", n, in, got, ok, o.OptionID)
				}
			}
		}
	}
}

func TestResolveRejectsEverythingElse(t *testing.T) {
	words := []string{"uno", "dos", "tres"}
	for n := 1; n <= 3; n++ {
		opts := sampleOptions(n)
		rejects := []string{"", "cuatro", "4", "0", "hola", "abrir", "la carta", "sí"}
		for i := n; i < 3; i++ {
			rejects = append(rejects, words[i], strconv.Itoa(i+1), sampleTexts[i])
		}
		if n > 1 {
			rejects = append(rejects, "continuar")
		}
		for _, in := range rejects {
			if got, ok := Resolve(in, "ChooseOptionIntent", opts); ok {
				t.Errorf("n=%d Resolve(%q) matched %+v", n, in, got)
			}
		}
	}
}

func TestResolveContinueWithSingleOption(t *testing.T) {
	opts := sampleOptions(1)
	got, ok := Resolve("Continuar", "", opts)
	if !ok || got.OptionID != "o1" {
		t.Fatalf("got %+v, %v", got, ok)
	}
}

func TestResolveByIntentName(t *testing.T) {
	opts := sampleOptions(3)
	got, ok := Resolve("", "o2", opts)
	if !ok || got.OptionID != "o2" {
		t.Fatalf("by id: got %+v, %v", got, ok)
	}
	got, ok = Resolve("", "Llamar_a_un_amigo", opts)
	if !ok || got.OptionID != "o3" {
		t.Fatalf("by text: got %+v, %v", got, ok)
	}
}

func TestOfferOptionsCapsAtThree(t *testing.T) {
	opts := offerOptions([]OfferedOption{{OptionID: "a"}, {OptionID: "b"}, {OptionID: "c"}, {OptionID: "d"}})
	if len(opts) != 3 {
		t.Fatalf("len = %d", len(opts))
	}
	for i, o := range opts {
		if o.Index != i+1 {
			t.Fatalf("option %s index = %d", o.OptionID, o.Index)
		}
	}
}
