package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/gitter-badger/astroid/internal/message"
	"github.com/gitter-badger/astroid/internal/store"
	"github.com/gitter-badger/astroid/internal/testutil"
)

const reportMessage = `From: Alice <alice@example.com>
To: Bob <bob@example.com>, carol@example.com
Cc: Dave <dave@example.com>
Subject: [PATCH 1/2] quarterly report
Message-Id: <A@example.com>
Date: Mon, 02 Jan 2006 15:04:05 -0700
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="mix"

--mix
Content-Type: multipart/alternative; boundary="alt"

--alt
Content-Type: text/plain; charset=utf-8

Plain body
--alt
Content-Type: text/html; charset=utf-8

<p>HTML body</p>
--alt--
--mix
Content-Type: application/pdf
Content-Disposition: attachment; filename="report.pdf"

PDFDATA
--mix--
`

const latinMessage = "From: Zoe <zoe@example.com>\n" +
	"Subject: menu\n" +
	"Message-Id: <L@example.com>\n" +
	"MIME-Version: 1.0\n" +
	"Content-Type: text/plain; charset=iso-8859-1\n" +
	"Content-Transfer-Encoding: quoted-printable\n" +
	"\n" +
	"caf=E9 cr=E8me\n"

// newFixtureStore returns a store with thread t1: A (alternative body with
// a pdf attachment) and its reply B, thread latin with a single ISO-8859-1
// message L, and thread broken whose only message has no file.
func newFixtureStore(t *testing.T) *testutil.FakeStore {
	t.Helper()
	dir := t.TempDir()

	b := &testutil.FakeMessage{
		MessageID: "B",
		Path:      testutil.WriteMessage(t, dir, "B.eml", testutil.SimpleMessage("B@example.com", "Re: quarterly report", "Thanks")),
	}
	a := &testutil.FakeMessage{
		MessageID: "A",
		Path:      testutil.WriteMessage(t, dir, "A.eml", reportMessage),
		TagList:   []string{"inbox", "unread"},
		ReplyList: []*testutil.FakeMessage{b},
	}
	latin := &testutil.FakeMessage{
		MessageID: "L",
		Path:      testutil.WriteMessage(t, dir, "L.eml", latinMessage),
	}
	broken := &testutil.FakeMessage{
		MessageID: "X",
		Path:      dir + "/missing.eml",
	}

	return testutil.NewFakeStore(
		&testutil.FakeThread{ThreadID: "t1", ThreadSubject: "quarterly report", Top: []*testutil.FakeMessage{a}},
		&testutil.FakeThread{ThreadID: "latin", ThreadSubject: "menu", Top: []*testutil.FakeMessage{latin}},
		&testutil.FakeThread{ThreadID: "broken", ThreadSubject: "broken", Top: []*testutil.FakeMessage{broken}},
	)
}

// mockStore is a store.Store whose results are set per test.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) OnMessage(ctx context.Context, id string, fn func(store.Message) error) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockStore) OnThread(ctx context.Context, id string, fn func(store.Thread) error) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func serve(t *testing.T, s store.Store, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(s, message.Options{}, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}
