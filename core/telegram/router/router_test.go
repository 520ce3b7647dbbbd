package router

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	tg "github.com/mangadesu/premiumbot/core/telegram"
	"github.com/mangadesu/premiumbot/core/telegram/commands"
)

// fakeContext implements just the tele.Context surface the text route
// touches. Everything else panics via the nil embedded interface.
type fakeContext struct {
	tele.Context
	sender *tele.User
	text   string
	store  map[string]interface{}
}

func newFakeContext(senderID int64, text string) *fakeContext {
	return &fakeContext{
		sender: &tele.User{ID: senderID, Username: "u"},
		text:   text,
		store:  make(map[string]interface{}),
	}
}

func (f *fakeContext) Update() tele.Update    { return tele.Update{ID: 1} }
func (f *fakeContext) Sender() *tele.User     { return f.sender }
func (f *fakeContext) Chat() *tele.Chat       { return &tele.Chat{ID: f.sender.ID, Type: tele.ChatPrivate} }
func (f *fakeContext) Message() *tele.Message { return nil }
func (f *fakeContext) Text() string           { return f.text }

func (f *fakeContext) Get(key string) interface{}      { return f.store[key] }
func (f *fakeContext) Set(key string, val interface{}) { f.store[key] = val }

func textRoute(t *testing.T, routes []tg.Route) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == tele.OnText {
			return r.Handler
		}
	}
	t.Fatal("no OnText route")
	return nil
}

func TestBareTextRespectsAdminOnlyCommands(t *testing.T) {
	const adminID = int64(111)

	executed := false
	rejected := false

	reg := tg.NewRegistry()
	reg.RegisterCommand("/pesanan", commands.Command{
		Handler:     func(c tele.Context) error { executed = true; return nil },
		Description: "daftar order menunggu",
		AdminOnly:   true,
		Hidden:      true,
	})

	handler := textRoute(t, TextRoutes(nil, reg, TextOptions{
		AdminIDs:      []int64{adminID},
		OnAdminReject: func(c tele.Context) error { rejected = true; return nil },
	}))

	if err := handler(newFakeContext(424242, "pesanan")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if executed {
		t.Fatal("admin-only handler ran for non-admin sender via bare text")
	}
	if !rejected {
		t.Fatal("reject hook not invoked for non-admin sender")
	}

	if err := handler(newFakeContext(adminID, "pesanan")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !executed {
		t.Fatal("admin-only handler did not run for listed admin")
	}
}

func TestBareTextDispatchesPublicCommands(t *testing.T) {
	executed := false

	reg := tg.NewRegistry()
	reg.RegisterCommand("/status", commands.Command{
		Handler:     func(c tele.Context) error { executed = true; return nil },
		Description: "cek status pesanan",
	})

	handler := textRoute(t, TextRoutes(nil, reg, TextOptions{AdminIDs: []int64{111}}))

	if err := handler(newFakeContext(424242, "status")); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !executed {
		t.Fatal("public command did not dispatch from bare text")
	}
}
