package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		data    string
		unique  string
		payload string
	}{
		{"\\forder_confirm|3f1c", "order_confirm", "3f1c"},
		{"\\fpaket|2", "paket", "2"},
		{"\\fcancel", "cancel", ""},
		{"plain|payload", "plain", "payload"},
		{"", "", ""},
	}
	for _, tc := range cases {
		unique, payload := ParseCallbackData(&tele.Callback{Data: tc.data})
		if unique != tc.unique || payload != tc.payload {
			t.Errorf("ParseCallbackData(%q) = (%q, %q), want (%q, %q)",
				tc.data, unique, payload, tc.unique, tc.payload)
		}
	}
}

func TestParseCallbackDataNil(t *testing.T) {
	unique, payload := ParseCallbackData(nil)
	if unique != "" || payload != "" {
		t.Errorf("nil callback: got (%q, %q), want empty", unique, payload)
	}
}
