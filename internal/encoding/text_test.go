package encoding

import "testing"

func Test_Text(t *testing.T) {
	testCases := map[string]struct {
		input []byte
		want  string
	}{
		"plain ascii":   {[]byte("blank_template"), "blank_template"},
		"utf8":          {[]byte("méridien"), "méridien"},
		"utf16 with bom": {
			[]byte{0xFE, 0xFF, 0x00, 'N', 0x00, 'o', 0x00, 't', 0x00, 'e'},
			"Note",
		},
		"nfc normalization": {
			// e + combining acute collapses to é.
			[]byte("é"),
			"é",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := Text(tc.input); got != tc.want {
				t.Errorf("Text = %q, want %q", got, tc.want)
			}
		})
	}
}
