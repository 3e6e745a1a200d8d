package compose

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/automail/internal/cart"
	"github.com/nhle/automail/internal/model"
)

func selection(t *testing.T, refs ...model.TeacherRef) *cart.Store {
	t.Helper()
	s := cart.New()
	cart.AddAll(s, refs)
	return s
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		draft    model.Draft
		wantHTML bool
		contains []string
		excludes []string
	}{
		{
			name:     "plain is unchanged",
			draft:    model.Draft{Format: model.FormatPlain, Body: "Dear <b>Professor</b>"},
			contains: []string{"Dear <b>Professor</b>"},
		},
		{
			name:     "empty format is plain",
			draft:    model.Draft{Body: "hello"},
			contains: []string{"hello"},
		},
		{
			name:     "markdown becomes html",
			draft:    model.Draft{Format: model.FormatMarkdown, Body: "# Title\n\n**bold** and ~~gone~~"},
			wantHTML: true,
			contains: []string{"<h1", "<strong>bold</strong>", "<del>gone</del>"},
		},
		{
			name:     "markdown raw html is sanitized",
			draft:    model.Draft{Format: model.FormatMarkdown, Body: "hi <script>alert(1)</script>"},
			wantHTML: true,
			excludes: []string{"<script", "</script>"},
		},
		{
			name:     "html is sanitized",
			draft:    model.Draft{Format: model.FormatHTML, Body: `<p onclick="x()">Hello</p><iframe src="http://evil"></iframe>`},
			wantHTML: true,
			contains: []string{"<p>Hello</p>"},
			excludes: []string{"onclick", "iframe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, isHTML, err := Render(tt.draft)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHTML, isHTML)
			for _, c := range tt.contains {
				assert.Contains(t, body, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, body, e)
			}
		})
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	_, _, err := Render(model.Draft{Format: "rtf", Body: "x"})
	assert.Error(t, err)
}

func TestRenderer_HTMLTextAlternative(t *testing.T) {
	r := NewRenderer()
	b, err := r.Render(model.Draft{Format: model.FormatHTML, Body: "<p>Fish &amp; chips</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Fish & chips", b.Text)

	b, err = r.Render(model.Draft{Format: model.FormatMarkdown, Body: "*hi*"})
	require.NoError(t, err)
	assert.Equal(t, "*hi*", b.Text, "markdown source is the text rendition")
}

func TestMailing(t *testing.T) {
	sel := selection(t,
		model.TeacherRef{ID: "1", Email: "a@x.com"},
		model.TeacherRef{ID: "2", Email: "b@x.com"},
	)

	m, err := Mailing(model.Draft{Subject: " Hello ", Body: "**hi**", Format: model.FormatMarkdown}, sel)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, m.TeacherIDs)
	assert.Equal(t, "Hello", m.Subject)
	assert.True(t, m.IsHTML)
	assert.Contains(t, m.Body, "<strong>hi</strong>")
}

func TestMailing_Errors(t *testing.T) {
	one := selection(t, model.TeacherRef{ID: "1", Email: "a@x.com"})

	_, err := Mailing(model.Draft{Subject: "s", Body: "b"}, cart.New())
	assert.ErrorIs(t, err, ErrEmptySelection)

	_, err = Mailing(model.Draft{Subject: "", Body: "b"}, one)
	assert.ErrorIs(t, err, ErrEmptyDraft)

	_, err = Mailing(model.Draft{Subject: "s", Body: "b", AttachmentIDs: []string{"f1"}}, one)
	assert.ErrorIs(t, err, ErrAttachmentsUnsupported)
}

func TestDirect(t *testing.T) {
	sel := selection(t,
		model.TeacherRef{ID: "1", Email: "a@x.com"},
		model.TeacherRef{ID: "2", Email: "A@x.com"},
		model.TeacherRef{ID: "3", Email: ""},
		model.TeacherRef{ID: "4", Email: "c@x.com"},
	)

	e, err := Direct(model.Draft{Subject: "s", Body: "plain body", AttachmentIDs: []string{"f1"}}, sel,
		[]string{"cc@x.com", "cc@x.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "c@x.com"}, e.To)
	assert.Equal(t, []string{"cc@x.com"}, e.Cc)
	assert.Nil(t, e.Bcc)
	assert.False(t, e.IsHTML)
	assert.Equal(t, "plain body", e.Body)
	assert.Equal(t, []string{"f1"}, e.Attachments)
}

func TestDirect_NoAddresses(t *testing.T) {
	sel := selection(t, model.TeacherRef{ID: "1"})
	_, err := Direct(model.Draft{Subject: "s", Body: "b"}, sel, nil, nil)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestSplitAddresses(t *testing.T) {
	assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, SplitAddresses(" a@x.com, b@x.com;c@x.com ,, A@X.com"))
	assert.Nil(t, SplitAddresses("  "))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "no recipients", Summary(cart.New()))
	assert.Equal(t, "1 teacher", Summary(selection(t, model.TeacherRef{ID: "1"})))
	assert.Equal(t, "2 teachers", Summary(selection(t, model.TeacherRef{ID: "1"}, model.TeacherRef{ID: "2"})))
}

func TestWriteMIME(t *testing.T) {
	r := NewRenderer()
	body, err := r.Render(model.Draft{Format: model.FormatMarkdown, Body: "Hello **there**"})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = WriteMIME(&buf, Message{
		FromName:    "Admissions",
		FromAddress: "admissions@example.edu",
		To:          []string{"li@example.edu", "wang@example.edu"},
		Subject:     "Graduate programme",
		Body:        body,
		Date:        time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Attachments: []Attachment{{Filename: "brochure.pdf", ContentType: "application/pdf", Content: strings.NewReader("PDF")}},
	})
	require.NoError(t, err)

	mr, err := mail.CreateReader(&buf)
	require.NoError(t, err)
	defer mr.Close()

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Graduate programme", subject)

	to, err := mr.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "li@example.edu", to[0].Address)

	var texts, htmls, files []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(p.Body)
		require.NoError(t, err)

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if ct == "text/html" {
				htmls = append(htmls, string(content))
			} else {
				texts = append(texts, string(content))
			}
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			files = append(files, name+"="+string(content))
		}
	}

	assert.Equal(t, []string{"Hello **there**"}, texts)
	require.Len(t, htmls, 1)
	assert.Contains(t, htmls[0], "<strong>there</strong>")
	assert.Equal(t, []string{"brochure.pdf=PDF"}, files)
}
